// Package extract turns judgement detail pages into structured records.
package extract

import (
	"bytes"
	"context"
	"fmt"

	"wenshu-pipeline/internal/components/assert"
	"wenshu-pipeline/internal/components/telemetry"
	"wenshu-pipeline/internal/document"
	"wenshu-pipeline/internal/fetcher"
	"wenshu-pipeline/internal/wenshu"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("wenshu/extract")

const (
	report_extractor_extract = "extractor.extract"
	report_extractor_field   = "extractor.field"
)

const (
	reasonNoStructure = "no recognizable document structure"
	reasonNoContent   = "document body not found"
)

type Fetcher interface {
	Fetch(ctx context.Context, req fetcher.Request) ([]byte, error)
}

type Extractor struct {
	baseUrl    string
	fetcher    Fetcher
	policy     Policy
	extractors []FieldExtractor
	tel        telemetry.API
}

// NewExtractor creates an extractor running DefaultExtractors, `f` may be nil
// if only Parse is used.
func NewExtractor(baseUrl string, f Fetcher, policy Policy, tel telemetry.API) Extractor {
	assert.NotNil(tel)
	if policy.required == nil {
		policy = DefaultPolicy()
	}
	return Extractor{
		baseUrl:    baseUrl,
		fetcher:    f,
		policy:     policy,
		extractors: DefaultExtractors(),
		tel:        telemetry.NewScopedAPI("extract", tel),
	}
}

// WithExtractors returns a copy of the extractor running the given field extractors instead.
func (e Extractor) WithExtractors(extractors ...FieldExtractor) Extractor {
	e.extractors = extractors
	return e
}

// Extract fetches the detail page of a hit and parses it. A page that could
// not be fetched becomes a failed record and a nil raw page.
func (e Extractor) Extract(ctx context.Context, hit wenshu.SearchHit) (document.ParsedDocument, []byte) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()
	span.SetAttributes(attribute.String("id", hit.Id))

	raw, err := e.Fetch(ctx, hit)
	if err != nil {
		span.SetStatus(codes.Error, "fetch detail page")

		doc := e.failed(hit.Id, fmt.Sprintf("fetch detail page: %s", err.Error()))
		doc.Title = hit.Title
		return doc, nil
	}

	doc := e.Parse(hit.Id, raw)
	span.SetAttributes(attribute.String("status", string(doc.Status)))
	return doc, raw
}

// Fetch downloads the detail page of a hit without parsing it.
func (e Extractor) Fetch(ctx context.Context, hit wenshu.SearchHit) ([]byte, error) {
	assert.NotNil(e.fetcher)
	raw, err := e.fetcher.Fetch(ctx, wenshu.DetailRequest(e.baseUrl, hit.Id))
	if err != nil {
		e.tel.ReportWarning(report_extractor_extract, hit.Id, err)
		return nil, err
	}
	return raw, nil
}

func (e Extractor) failed(id, reason string) document.ParsedDocument {
	doc := normalize(document.ParsedDocument{Id: id})
	_, doc.MissingFields = e.policy.Classify(doc)
	doc.Status = document.StatusFailed
	doc.Reason = reason
	return doc
}

// Parse extracts every field from a raw page, it is deterministic and does
// no io.
func (e Extractor) Parse(id string, raw []byte) document.ParsedDocument {
	html, err := goquery.NewDocumentFromReader(bytes.NewBuffer(raw))
	if err != nil {
		e.tel.ReportWarning(report_extractor_extract, id, err)
		return e.failed(id, fmt.Sprintf("parse html: %s", err.Error()))
	}

	page := NewPage(html)
	doc := document.ParsedDocument{Id: id}
	for _, fe := range e.extractors {
		e.runField(fe, page, &doc)
	}
	doc = normalize(doc)

	doc.Status, doc.MissingFields = e.policy.Classify(doc)
	switch doc.Status {
	case document.StatusFailed:
		if doc.CaseNumber == "" && doc.Court == "" && doc.Date == "" {
			doc.Reason = reasonNoStructure
		} else {
			doc.Reason = reasonNoContent
		}
	case document.StatusPartial:
		e.tel.ReportDebug("partial record", "id", id, "missing", doc.MissingFields)
	}
	return doc
}

// runField isolates a field extractor so that a panic only loses its own field.
func (e Extractor) runField(fe FieldExtractor, page *Page, doc *document.ParsedDocument) {
	defer func() {
		if r := recover(); r != nil {
			e.tel.ReportBroken(report_extractor_field, fe.Field(), doc.Id, r)
		}
	}()
	fe.Extract(page, doc)
}

// normalize replaces nil lists with empty ones so records always serialize the same way.
func normalize(doc document.ParsedDocument) document.ParsedDocument {
	lists := []*[]string{
		&doc.Parties,
		&doc.Judges,
		&doc.Keywords,
		&doc.LawsReferenced,
		&doc.MissingFields,
	}
	for _, l := range lists {
		if *l == nil {
			*l = []string{}
		}
	}
	return doc
}
