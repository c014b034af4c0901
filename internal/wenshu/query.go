package wenshu

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultMaxPages = 5
	DefaultPageSize = 10

	dateLayout = "2006-01-02"
)

var ErrInvalidQuery = errors.New("invalid search query")

// QueryOptions are the optional filters of a SearchQuery, zero values mean
// "not set".
type QueryOptions struct {
	CaseType string
	Court    string
	// DateFrom and DateTo are inclusive and formatted as YYYY-MM-DD.
	DateFrom string
	DateTo   string
	MaxPages int
	PageSize int
}

// SearchQuery is a validated keyword search, it cannot be changed after
// construction.
type SearchQuery struct {
	keyword  string
	caseType string
	court    string
	dateFrom string
	dateTo   string
	maxPages int
	pageSize int
}

func NewSearchQuery(keyword string, opts QueryOptions) (SearchQuery, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return SearchQuery{}, fmt.Errorf("%w: keyword is empty", ErrInvalidQuery)
	}
	if opts.MaxPages < 0 {
		return SearchQuery{}, fmt.Errorf("%w: max pages must be positive, got %d", ErrInvalidQuery, opts.MaxPages)
	}
	if opts.PageSize < 0 {
		return SearchQuery{}, fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidQuery, opts.PageSize)
	}

	var from, to time.Time
	var err error
	if opts.DateFrom != "" {
		from, err = time.Parse(dateLayout, opts.DateFrom)
		if err != nil {
			return SearchQuery{}, fmt.Errorf("%w: date from: %w", ErrInvalidQuery, err)
		}
	}
	if opts.DateTo != "" {
		to, err = time.Parse(dateLayout, opts.DateTo)
		if err != nil {
			return SearchQuery{}, fmt.Errorf("%w: date to: %w", ErrInvalidQuery, err)
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return SearchQuery{}, fmt.Errorf("%w: date from %s is after date to %s", ErrInvalidQuery, opts.DateFrom, opts.DateTo)
	}

	q := SearchQuery{
		keyword:  keyword,
		caseType: strings.TrimSpace(opts.CaseType),
		court:    strings.TrimSpace(opts.Court),
		dateFrom: opts.DateFrom,
		dateTo:   opts.DateTo,
		maxPages: opts.MaxPages,
		pageSize: opts.PageSize,
	}
	if q.maxPages == 0 {
		q.maxPages = DefaultMaxPages
	}
	if q.pageSize == 0 {
		q.pageSize = DefaultPageSize
	}
	return q, nil
}

func (q SearchQuery) Keyword() string  { return q.keyword }
func (q SearchQuery) CaseType() string { return q.caseType }
func (q SearchQuery) Court() string    { return q.court }
func (q SearchQuery) DateFrom() string { return q.dateFrom }
func (q SearchQuery) DateTo() string   { return q.dateTo }
func (q SearchQuery) MaxPages() int    { return q.maxPages }
func (q SearchQuery) PageSize() int    { return q.pageSize }

// SearchHit is one row of a result page.
type SearchHit struct {
	Id          string
	Title       string
	Court       string
	CaseNumber  string
	PublishDate string
	// Page is the 1-based result page the hit came from.
	Page int
}
