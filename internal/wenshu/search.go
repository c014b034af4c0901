// Package wenshu talks to the China Judgements Online search api.
package wenshu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"wenshu-pipeline/internal/components/assert"
	"wenshu-pipeline/internal/components/chrono"
	"wenshu-pipeline/internal/components/telemetry"
	"wenshu-pipeline/internal/fetcher"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("wenshu/wenshu")

const (
	report_paginator_search    = "paginator.search"
	report_paginator_skip_row  = "paginator.skip-row"
	report_paginator_page_hits = "paginator.page-hits"
)

// ErrBadPage is returned when a result page cannot be decoded.
var ErrBadPage = errors.New("undecodable search result page")

// Fetcher is the subset of fetcher.Fetcher the search needs.
type Fetcher interface {
	Fetch(ctx context.Context, req fetcher.Request) ([]byte, error)
}

type searchRow struct {
	Rowkey      string `json:"rowkey"`
	Title       string `json:"s1"`
	Court       string `json:"s2"`
	CaseNumber  string `json:"s7"`
	PublishDate string `json:"s41"`
}

type searchResponse struct {
	QueryResult *struct {
		ResultList []searchRow `json:"resultList"`
	} `json:"queryResult"`
}

// Paginator walks the result pages of a query.
type Paginator struct {
	baseUrl string
	fetcher Fetcher
	time    chrono.API
	tel     telemetry.API
}

func NewPaginator(baseUrl string, f Fetcher, time chrono.API, tel telemetry.API) Paginator {
	assert.NotEmptyStr(baseUrl)
	assert.NotNil(f)
	assert.NotNil(time)
	assert.NotNil(tel)

	return Paginator{
		baseUrl: baseUrl,
		fetcher: f,
		time:    time,
		tel:     telemetry.NewScopedAPI("wenshu", tel),
	}
}

func decodePage(body []byte, page int) ([]SearchHit, int, error) {
	var res searchResponse
	err := json.Unmarshal(body, &res)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: page %d: %w", ErrBadPage, page, err)
	}
	if res.QueryResult == nil {
		return nil, 0, fmt.Errorf("%w: page %d: missing queryResult", ErrBadPage, page)
	}

	hits := make([]SearchHit, 0, len(res.QueryResult.ResultList))
	skipped := 0
	for _, row := range res.QueryResult.ResultList {
		id := strings.TrimSpace(row.Rowkey)
		if id == "" {
			skipped++
			continue
		}
		hits = append(hits, SearchHit{
			Id:          id,
			Title:       row.Title,
			Court:       row.Court,
			CaseNumber:  row.CaseNumber,
			PublishDate: row.PublishDate,
			Page:        page,
		})
	}
	return hits, skipped, nil
}

// Search lazily yields the hits of every result page in order. The sequence
// ends at the query's page limit, at the first page without rows, or after
// yielding the first error. Every call starts over from page 1.
func (p Paginator) Search(ctx context.Context, q SearchQuery) iter.Seq2[SearchHit, error] {
	return func(yield func(SearchHit, error) bool) {
		today := p.time.Now().Format(dateLayout)

		for page := 1; page <= q.maxPages; page++ {
			hits, rows, err := p.fetchPage(ctx, q, page, today)
			if err != nil {
				p.tel.ReportBroken(report_paginator_search, q.keyword, page, err)
				yield(SearchHit{}, err)
				return
			}
			if rows == 0 {
				p.tel.ReportDebug("no more results", "page", page)
				return
			}
			for _, hit := range hits {
				if !yield(hit, nil) {
					return
				}
			}
		}
	}
}

// fetchPage returns the usable hits of a page and the number of rows it had.
func (p Paginator) fetchPage(ctx context.Context, q SearchQuery, page int, today string) ([]SearchHit, int, error) {
	ctx, span := tracer.Start(ctx, "Search:page")
	defer span.End()
	span.SetAttributes(attribute.Int("page", page))

	req, err := searchRequest(p.baseUrl, q, page, today)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}
	body, err := p.fetcher.Fetch(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, "fetch page")
		return nil, 0, err
	}
	hits, skipped, err := decodePage(body, page)
	if err != nil {
		span.SetStatus(codes.Error, "decode page")
		return nil, 0, err
	}
	if skipped > 0 {
		p.tel.ReportWarning(report_paginator_skip_row, fmt.Errorf("page %d: %d row(s) without rowkey", page, skipped))
	}
	p.tel.ReportCount(report_paginator_page_hits, int64(len(hits)))
	span.SetAttributes(attribute.Int("hits", len(hits)))
	return hits, len(hits) + skipped, nil
}
