package wenshu

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"wenshu-pipeline/internal/fetcher"

	"github.com/google/uuid"
	"github.com/mazen160/go-random"
)

const (
	searchPath = "/website/parse/rest.q4w"
	detailPath = "/website/parse/detail/"
	indexPath  = "/website/wenshu/181029CAIRB5JXZA/index.html"

	searchSortFields = "s50:desc"
	searchCfg        = "com.lawyee.judge.dc.parse.dto.SearchDataDsoDTO@queryDoc"

	earliestDate = "1900-01-01"
)

// SessionHeaders are the headers the site expects on every request of a
// browsing session.
func SessionHeaders(baseUrl string) map[string]string {
	baseUrl = strings.TrimSuffix(baseUrl, "/")
	return map[string]string{
		"Accept":           "application/json, text/javascript, */*; q=0.01",
		"Accept-Language":  "zh-CN,zh;q=0.9,en;q=0.8",
		"Origin":           baseUrl,
		"Referer":          baseUrl + indexPath,
		"X-Requested-With": "XMLHttpRequest",
		"Connection":       "keep-alive",
	}
}

// DetailRequest is the request for the detail page of a document.
func DetailRequest(baseUrl, id string) fetcher.Request {
	return fetcher.Request{
		Method: http.MethodGet,
		Url:    strings.TrimSuffix(baseUrl, "/") + detailPath + url.PathEscape(id),
	}
}

type condition struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// conditions builds the queryCondition list, a date range with a single
// bound is completed with the earliest date or today.
func conditions(q SearchQuery, today string) []condition {
	out := []condition{{Key: "s8", Value: q.keyword}}
	if q.caseType != "" {
		out = append(out, condition{Key: "s9", Value: q.caseType})
	}
	if q.court != "" {
		out = append(out, condition{Key: "s2", Value: q.court})
	}
	if q.dateFrom != "" || q.dateTo != "" {
		from := q.dateFrom
		if from == "" {
			from = earliestDate
		}
		to := q.dateTo
		if to == "" {
			to = today
		}
		out = append(out, condition{Key: "cprq", Value: from + "," + to})
	}
	return out
}

func requestId() string {
	return strings.ToUpper(uuid.NewString())
}

func ciphertext() string {
	token, err := random.String(24)
	if err != nil {
		return requestId()
	}
	return token
}

// searchRequest builds the form POST for one result page.
func searchRequest(baseUrl string, q SearchQuery, page int, today string) (fetcher.Request, error) {
	conds, err := json.Marshal(conditions(q, today))
	if err != nil {
		return fetcher.Request{}, err
	}
	form := url.Values{}
	form.Set("pageId", requestId())
	form.Set("s8", q.keyword)
	form.Set("sortFields", searchSortFields)
	form.Set("ciphertext", ciphertext())
	form.Set("pageNum", strconv.Itoa(page))
	form.Set("pageSize", strconv.Itoa(q.pageSize))
	form.Set("queryCondition", string(conds))
	form.Set("cfg", searchCfg)

	return fetcher.Request{
		Method: http.MethodPost,
		Url:    strings.TrimSuffix(baseUrl, "/") + searchPath,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded; charset=UTF-8",
		},
		Form: form,
	}, nil
}
