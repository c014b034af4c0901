package wenshu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"wenshu-pipeline/internal/components/chrono"
	"wenshu-pipeline/internal/components/telemetry"
	"wenshu-pipeline/internal/fetcher"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	pages    [][]searchRow
	fail     map[int]error
	requests []fetcher.Request
}

func (f *fakeFetcher) Fetch(_ context.Context, req fetcher.Request) ([]byte, error) {
	f.requests = append(f.requests, req)
	if req.Method != http.MethodPost || !strings.HasSuffix(req.Url, searchPath) {
		return nil, fmt.Errorf("unexpected request %s %s", req.Method, req.Url)
	}
	page := len(f.requests)
	if err := f.fail[page]; err != nil {
		return nil, err
	}
	var rows []searchRow
	if page <= len(f.pages) {
		rows = f.pages[page-1]
	}
	return json.Marshal(map[string]any{
		"queryResult": map[string]any{"resultList": rows},
	})
}

func rows(page, n int) []searchRow {
	out := make([]searchRow, n)
	for i := range out {
		out[i] = searchRow{
			Rowkey:     fmt.Sprintf("doc-%d-%d", page, i),
			Title:      fmt.Sprintf("判决书 %d-%d", page, i),
			Court:      "广州市中级人民法院",
			CaseNumber: fmt.Sprintf("(2020)粤01民终%d号", page*100+i),
		}
	}
	return out
}

var fixedTime = chrono.FixedImpl{Time: time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)}

func newTestPaginator(f Fetcher) (Paginator, *telemetry.Recorder) {
	tel := &telemetry.Recorder{}
	return NewPaginator("https://wenshu.example", f, fixedTime, tel), tel
}

func collect(t testing.TB, p Paginator, q SearchQuery) ([]SearchHit, error) {
	var hits []SearchHit
	for hit, err := range p.Search(context.Background(), q) {
		if err != nil {
			return hits, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func TestSearchStopsAtMaxPages(t *testing.T) {
	f := &fakeFetcher{pages: [][]searchRow{rows(1, 3), rows(2, 3), rows(3, 3)}}
	p, _ := newTestPaginator(f)

	q, err := NewSearchQuery("合同纠纷", QueryOptions{MaxPages: 2})
	require.NoError(t, err)

	hits, err := collect(t, p, q)
	require.NoError(t, err)
	require.Len(t, f.requests, 2)
	require.Len(t, hits, 6)
	require.Equal(t, "doc-1-0", hits[0].Id)
	require.Equal(t, 2, hits[5].Page)
}

func TestSearchStopsAtFirstEmptyPage(t *testing.T) {
	f := &fakeFetcher{pages: [][]searchRow{rows(1, 2), {}, rows(3, 2)}}
	p, _ := newTestPaginator(f)

	q, err := NewSearchQuery("合同纠纷", QueryOptions{MaxPages: 5})
	require.NoError(t, err)

	hits, err := collect(t, p, q)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Len(t, f.requests, 2)
}

func TestSearchEmptyFirstPage(t *testing.T) {
	f := &fakeFetcher{}
	p, _ := newTestPaginator(f)

	q, err := NewSearchQuery("民间借贷", QueryOptions{MaxPages: 1})
	require.NoError(t, err)

	hits, err := collect(t, p, q)
	require.NoError(t, err)
	require.Empty(t, hits)
	require.Len(t, f.requests, 1)
	for _, req := range f.requests {
		require.NotContains(t, req.Url, detailPath)
	}
}

func TestSearchFetchErrorTerminates(t *testing.T) {
	pageErr := &fetcher.FetchError{Method: http.MethodPost, Url: "x", Status: 503, Attempts: 4, Err: errors.New("unavailable")}
	f := &fakeFetcher{
		pages: [][]searchRow{rows(1, 2), rows(2, 2), rows(3, 2)},
		fail:  map[int]error{2: pageErr},
	}
	p, tel := newTestPaginator(f)

	q, err := NewSearchQuery("合同纠纷", QueryOptions{MaxPages: 3})
	require.NoError(t, err)

	var hits []SearchHit
	var errs []error
	for hit, err := range p.Search(context.Background(), q) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		hits = append(hits, hit)
	}
	require.Len(t, hits, 2)
	require.Len(t, errs, 1)
	var fetchErr *fetcher.FetchError
	require.True(t, errors.As(errs[0], &fetchErr))
	require.Len(t, f.requests, 2)
	require.True(t, tel.Has("broken", report_paginator_search))
}

func TestSearchSkipsRowsWithoutRowkey(t *testing.T) {
	page := rows(1, 3)
	page[1].Rowkey = "  "
	f := &fakeFetcher{pages: [][]searchRow{page}}
	p, tel := newTestPaginator(f)

	q, err := NewSearchQuery("合同纠纷", QueryOptions{MaxPages: 1})
	require.NoError(t, err)

	hits, err := collect(t, p, q)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.True(t, tel.Has("warning", report_paginator_skip_row))
}

func TestSearchIsRestartable(t *testing.T) {
	f := &fakeFetcher{pages: [][]searchRow{rows(1, 1), rows(2, 1)}}
	p, _ := newTestPaginator(f)

	q, err := NewSearchQuery("合同纠纷", QueryOptions{MaxPages: 1})
	require.NoError(t, err)

	first, err := collect(t, p, q)
	require.NoError(t, err)
	f.requests = nil
	second, err := collect(t, p, q)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatal("second search differs from first", diff)
	}
}

func TestSearchBadPage(t *testing.T) {
	_, _, err := decodePage([]byte("<html>blocked</html>"), 1)
	require.ErrorIs(t, err, ErrBadPage)
	_, _, err = decodePage([]byte(`{"code": 9}`), 1)
	require.ErrorIs(t, err, ErrBadPage)
}

func TestSearchRequestForm(t *testing.T) {
	q, err := NewSearchQuery(" 合同纠纷 ", QueryOptions{
		CaseType: "民事案件",
		Court:    "广州市中级人民法院",
		DateFrom: "2020-01-01",
		PageSize: 20,
	})
	require.NoError(t, err)

	req, err := searchRequest("https://wenshu.example/", q, 3, "2024-03-05")
	require.NoError(t, err)
	require.Equal(t, "https://wenshu.example/website/parse/rest.q4w", req.Url)
	require.Equal(t, "合同纠纷", req.Form.Get("s8"))
	require.Equal(t, "3", req.Form.Get("pageNum"))
	require.Equal(t, "20", req.Form.Get("pageSize"))
	require.Equal(t, searchSortFields, req.Form.Get("sortFields"))
	require.Equal(t, searchCfg, req.Form.Get("cfg"))
	require.NotEmpty(t, req.Form.Get("pageId"))
	require.NotEmpty(t, req.Form.Get("ciphertext"))

	var conds []condition
	require.NoError(t, json.Unmarshal([]byte(req.Form.Get("queryCondition")), &conds))
	expected := []condition{
		{Key: "s8", Value: "合同纠纷"},
		{Key: "s9", Value: "民事案件"},
		{Key: "s2", Value: "广州市中级人民法院"},
		{Key: "cprq", Value: "2020-01-01,2024-03-05"},
	}
	if diff := cmp.Diff(expected, conds); diff != "" {
		t.Fatal("unexpected query conditions", diff)
	}
}

func TestNewSearchQuery(t *testing.T) {
	cases := []struct {
		keyword string
		opts    QueryOptions
		valid   bool
	}{
		{keyword: "民间借贷", valid: true},
		{keyword: "   ", valid: false},
		{keyword: "民间借贷", opts: QueryOptions{MaxPages: -1}, valid: false},
		{keyword: "民间借贷", opts: QueryOptions{DateFrom: "2021/01/01"}, valid: false},
		{keyword: "民间借贷", opts: QueryOptions{DateFrom: "2021-02-01", DateTo: "2021-01-01"}, valid: false},
		{keyword: "民间借贷", opts: QueryOptions{DateFrom: "2021-01-01", DateTo: "2021-01-01"}, valid: true},
	}
	for _, test := range cases {
		q, err := NewSearchQuery(test.keyword, test.opts)
		if !test.valid {
			require.ErrorIs(t, err, ErrInvalidQuery, "%q %+v", test.keyword, test.opts)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, DefaultPageSize, q.PageSize())
	}

	q, err := NewSearchQuery("民间借贷", QueryOptions{})
	require.NoError(t, err)
	require.Equal(t, DefaultMaxPages, q.MaxPages())
}

func TestDetailRequest(t *testing.T) {
	req := DetailRequest("https://wenshu.example/", "a1b2/c3")
	require.Equal(t, http.MethodGet, req.Method)
	require.Equal(t, "https://wenshu.example/website/parse/detail/a1b2%2Fc3", req.Url)
}
