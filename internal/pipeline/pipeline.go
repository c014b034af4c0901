// Package pipeline runs the search, download, parse and upload stages one
// document at a time and collects their outcomes into a Summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"wenshu-pipeline/internal/components/assert"
	"wenshu-pipeline/internal/components/telemetry"
	"wenshu-pipeline/internal/db"
	"wenshu-pipeline/internal/document"
	"wenshu-pipeline/internal/fetcher"
	"wenshu-pipeline/internal/ragflow"
	"wenshu-pipeline/internal/runlog"
	"wenshu-pipeline/internal/store"
	"wenshu-pipeline/internal/wenshu"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("wenshu/pipeline")

const (
	report_pipeline_search = "pipeline.search"
	report_pipeline_stats  = "pipeline.stats"
	report_pipeline_upload = "pipeline.upload"
)

type Searcher interface {
	Search(ctx context.Context, q wenshu.SearchQuery) iter.Seq2[wenshu.SearchHit, error]
}

type Extractor interface {
	Fetch(ctx context.Context, hit wenshu.SearchHit) ([]byte, error)
	Extract(ctx context.Context, hit wenshu.SearchHit) (document.ParsedDocument, []byte)
	Parse(id string, raw []byte) document.ParsedDocument
}

type Uploader interface {
	UploadRecord(ctx context.Context, doc document.ParsedDocument) ragflow.UploadResult
	UploadFile(ctx context.Context, path string) ragflow.UploadResult
}

// Recorder receives the outcome of every item, *runlog.Run implements it.
type Recorder interface {
	Record(ctx context.Context, item runlog.Item) error
	// RecordAll writes a batch known up front, ex. the items an upload skips.
	RecordAll(ctx context.Context, items []runlog.Item) error
}

// Options holds the components of a pipeline, only the ones used by the
// stage being run need to be set.
type Options struct {
	Searcher  Searcher
	Extractor Extractor
	Uploader  Uploader
	Store     store.Store
	// Run may be nil.
	Run Recorder
	// SkipExisting reuses raw pages already in the download dir instead of
	// fetching them again.
	SkipExisting bool
	// ResultsDir, when set, receives UploadResultsFile after an upload.
	ResultsDir string
}

type Pipeline struct {
	opts Options
	tel  telemetry.API
}

func New(opts Options, tel telemetry.API) Pipeline {
	assert.NotNil(tel)
	return Pipeline{
		opts: opts,
		tel:  telemetry.NewScopedAPI("pipeline", tel),
	}
}

func (p Pipeline) record(ctx context.Context, item runlog.Item) {
	if p.opts.Run == nil {
		return
	}
	// failures are reported by the run log itself
	_ = p.opts.Run.Record(ctx, item)
}

func (p Pipeline) recordAll(ctx context.Context, items []runlog.Item) {
	if p.opts.Run == nil || len(items) == 0 {
		return
	}
	_ = p.opts.Run.RecordAll(ctx, items)
}

// search calls visit for every hit. A failed search page ends the search and
// is recorded as a failure, only an unreachable site, a cancelled context or
// an error from visit is returned.
func (p Pipeline) search(ctx context.Context, q wenshu.SearchQuery, summary *Summary, visit func(wenshu.SearchHit) error) error {
	assert.NotNil(p.opts.Searcher)

	for hit, err := range p.opts.Searcher.Search(ctx, q) {
		if err != nil {
			if errors.Is(err, fetcher.ErrUnreachable) || ctx.Err() != nil {
				return fmt.Errorf("search %q: %w", q.Keyword(), err)
			}
			p.tel.ReportWarning(report_pipeline_search, q.Keyword(), err)
			summary.fail(db.STAGE_SEARCH, q.Keyword(), err.Error())
			p.record(ctx, runlog.Item{Stage: db.STAGE_SEARCH, Name: q.Keyword(), Status: statusFailed, Reason: err.Error()})
			return nil
		}
		summary.Searched++
		err = visit(hit)
		if err != nil {
			return err
		}
	}
	return nil
}

// Download saves the raw detail page of every hit of the query.
func (p Pipeline) Download(ctx context.Context, q wenshu.SearchQuery) (Summary, error) {
	assert.NotNil(p.opts.Extractor)

	ctx, span := tracer.Start(ctx, "Download")
	defer span.End()
	span.SetAttributes(attribute.String("keyword", q.Keyword()))

	var summary Summary
	stats := newDownloadStats()
	err := p.search(ctx, q, &summary, func(hit wenshu.SearchHit) error {
		if p.opts.SkipExisting && p.opts.Store.HasRaw(hit.Id) {
			p.skipDownload(ctx, hit, &summary, &stats)
			return nil
		}
		raw, err := p.opts.Extractor.Fetch(ctx, hit)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.downloadFailed(ctx, hit, err.Error(), &summary, &stats)
			return nil
		}
		return p.saveRaw(ctx, hit, raw, &summary, &stats)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}

	p.writeStats(p.opts.Store.DownloadDir(), DownloadStatsFile, stats)
	p.report(summary)
	return summary, nil
}

// Parse extracts a record from every raw page in the download dir.
func (p Pipeline) Parse(ctx context.Context) (Summary, error) {
	assert.NotNil(p.opts.Extractor)

	ctx, span := tracer.Start(ctx, "Parse")
	defer span.End()

	var summary Summary
	ids, err := p.opts.Store.RawIDs()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return summary, fmt.Errorf("list raw pages: %w", err)
	}

	stats := newParseStats()
	for _, id := range ids {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		raw, err := p.opts.Store.LoadRaw(id)
		if err != nil {
			return summary, fmt.Errorf("load raw page %s: %w", id, err)
		}
		err = p.saveParsed(ctx, p.opts.Extractor.Parse(id, raw), &summary, &stats)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return summary, err
		}
	}

	p.writeStats(p.opts.Store.ParsedDir(), SummaryFile, stats)
	p.report(summary)
	return summary, nil
}

// DownloadParse downloads and parses every hit of the query as it is found.
func (p Pipeline) DownloadParse(ctx context.Context, q wenshu.SearchQuery) (Summary, error) {
	assert.NotNil(p.opts.Extractor)

	ctx, span := tracer.Start(ctx, "DownloadParse")
	defer span.End()
	span.SetAttributes(attribute.String("keyword", q.Keyword()))

	var summary Summary
	downloads := newDownloadStats()
	parses := newParseStats()
	err := p.search(ctx, q, &summary, func(hit wenshu.SearchHit) error {
		var doc document.ParsedDocument
		if p.opts.SkipExisting && p.opts.Store.HasRaw(hit.Id) {
			raw, err := p.opts.Store.LoadRaw(hit.Id)
			if err != nil {
				return fmt.Errorf("load raw page %s: %w", hit.Id, err)
			}
			p.skipDownload(ctx, hit, &summary, &downloads)
			doc = p.opts.Extractor.Parse(hit.Id, raw)
		} else {
			var raw []byte
			doc, raw = p.opts.Extractor.Extract(ctx, hit)
			if raw == nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// nothing is written for a page that was never fetched
				p.downloadFailed(ctx, hit, doc.Reason, &summary, &downloads)
				summary.Failed++
				return nil
			}
			err := p.saveRaw(ctx, hit, raw, &summary, &downloads)
			if err != nil {
				return err
			}
		}
		return p.saveParsed(ctx, doc, &summary, &parses)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}

	p.writeStats(p.opts.Store.DownloadDir(), DownloadStatsFile, downloads)
	p.writeStats(p.opts.Store.ParsedDir(), SummaryFile, parses)
	p.report(summary)
	return summary, nil
}

func (p Pipeline) skipDownload(ctx context.Context, hit wenshu.SearchHit, summary *Summary, stats *downloadStats) {
	summary.Skipped++
	stats.Skipped++
	stats.Total++
	p.record(ctx, runlog.Item{Stage: db.STAGE_DOWNLOAD, Name: hit.Id, Status: statusSkipped, Reason: "already downloaded"})
}

func (p Pipeline) downloadFailed(ctx context.Context, hit wenshu.SearchHit, reason string, summary *Summary, stats *downloadStats) {
	summary.DownloadFailed++
	summary.fail(db.STAGE_DOWNLOAD, hit.Id, reason)
	stats.Failed++
	stats.Total++
	p.record(ctx, runlog.Item{Stage: db.STAGE_DOWNLOAD, Name: hit.Id, Status: statusFailed, Reason: reason})
}

func (p Pipeline) saveRaw(ctx context.Context, hit wenshu.SearchHit, raw []byte, summary *Summary, stats *downloadStats) error {
	err := p.opts.Store.SaveRaw(hit.Id, raw)
	if err != nil {
		return fmt.Errorf("save raw page %s: %w", hit.Id, err)
	}
	summary.Downloaded++
	stats.Success++
	stats.Total++
	stats.Documents = append(stats.Documents, downloadedDocument{
		Id:          hit.Id,
		Title:       hit.Title,
		Court:       hit.Court,
		CaseNumber:  hit.CaseNumber,
		PublishDate: hit.PublishDate,
		File:        store.RawName(hit.Id),
	})
	p.record(ctx, runlog.Item{Stage: db.STAGE_DOWNLOAD, Name: hit.Id, Status: statusOk})
	return nil
}

func (p Pipeline) saveParsed(ctx context.Context, doc document.ParsedDocument, summary *Summary, stats *parseStats) error {
	doc.Source = store.RawName(doc.Id)
	path, err := p.opts.Store.SaveParsed(doc)
	if err != nil {
		return fmt.Errorf("save record %s: %w", doc.Id, err)
	}

	reason := doc.Reason
	switch doc.Status {
	case document.StatusComplete:
		summary.Complete++
		stats.Complete++
	case document.StatusPartial:
		summary.Partial++
		stats.Partial++
		reason = "missing " + strings.Join(doc.MissingFields, ", ")
		summary.fail(db.STAGE_PARSE, doc.Id, reason)
	default:
		summary.Failed++
		stats.Failed++
		summary.fail(db.STAGE_PARSE, doc.Id, reason)
	}
	stats.Total++
	stats.Documents = append(stats.Documents, parsedEntry{
		Id:            doc.Id,
		File:          path,
		Status:        doc.Status,
		MissingFields: doc.MissingFields,
	})
	p.record(ctx, runlog.Item{Stage: db.STAGE_PARSE, Name: doc.Id, Status: string(doc.Status), Reason: reason})
	return nil
}

// Upload sends every record in `dir` to the upload api. Failed records have
// no body worth indexing and are skipped.
func (p Pipeline) Upload(ctx context.Context, dir string) (Summary, error) {
	assert.NotNil(p.opts.Uploader)

	ctx, span := tracer.Start(ctx, "Upload")
	defer span.End()

	var summary Summary
	docs, err := store.LoadParsedDir(dir)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return summary, fmt.Errorf("load records: %w", err)
	}
	if len(docs) == 0 {
		p.tel.ReportWarning(report_pipeline_upload, dir, "no records found")
	}

	stats := newUploadStats()
	var pending []document.ParsedDocument
	var skipped []runlog.Item
	for _, doc := range docs {
		if doc.Status == document.StatusFailed {
			summary.UploadSkipped++
			stats.Skipped++
			skipped = append(skipped, runlog.Item{Stage: db.STAGE_UPLOAD, Name: doc.Id, Status: statusSkipped, Reason: "failed record"})
			continue
		}
		pending = append(pending, doc)
	}
	p.recordAll(ctx, skipped)

	for _, doc := range pending {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		p.uploaded(ctx, p.opts.Uploader.UploadRecord(ctx, doc), &summary, &stats)
	}

	p.writeUploadStats(stats)
	p.report(summary)
	return summary, nil
}

// UploadFiles sends every file under `dir` with one of the extensions and at
// most maxSize bytes.
func (p Pipeline) UploadFiles(ctx context.Context, dir string, extensions []string, maxSize int64) (Summary, error) {
	assert.NotNil(p.opts.Uploader)

	ctx, span := tracer.Start(ctx, "UploadFiles")
	defer span.End()

	var summary Summary
	files, skipped, err := ragflow.ScanFiles(dir, extensions, maxSize)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return summary, fmt.Errorf("scan %s: %w", dir, err)
	}
	stats := newUploadStats()
	items := make([]runlog.Item, 0, len(skipped))
	for _, s := range skipped {
		summary.UploadSkipped++
		stats.Skipped++
		p.tel.ReportDebug("skipped file", "path", s.Path, "reason", s.Reason)
		items = append(items, runlog.Item{Stage: db.STAGE_UPLOAD, Name: s.Path, Status: statusSkipped, Reason: s.Reason})
	}
	p.recordAll(ctx, items)
	if len(files) == 0 {
		p.tel.ReportWarning(report_pipeline_upload, dir, "no files found")
	}

	for _, path := range files {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		p.uploaded(ctx, p.opts.Uploader.UploadFile(ctx, path), &summary, &stats)
	}

	p.writeUploadStats(stats)
	p.report(summary)
	return summary, nil
}

func (p Pipeline) uploaded(ctx context.Context, result ragflow.UploadResult, summary *Summary, stats *uploadStats) {
	stats.add(result)

	item := runlog.Item{
		Stage:    db.STAGE_UPLOAD,
		Name:     result.Name,
		Status:   statusOk,
		Reason:   result.Reason,
		RemoteId: result.DocumentId,
	}
	if result.Success {
		summary.Uploaded++
	} else {
		summary.Rejected++
		summary.fail(db.STAGE_UPLOAD, result.Name, result.Reason)
		p.tel.ReportWarning(report_pipeline_upload, result.Name, result.Reason)
		item.Status = statusFailed
	}
	p.record(ctx, item)
}

func (p Pipeline) writeUploadStats(stats uploadStats) {
	if p.opts.ResultsDir == "" {
		return
	}
	p.writeStats(p.opts.ResultsDir, UploadResultsFile, stats)
}

func (p Pipeline) report(summary Summary) {
	p.tel.ReportCount("searched", int64(summary.Searched))
	p.tel.ReportCount("downloaded", int64(summary.Downloaded))
	p.tel.ReportCount("complete", int64(summary.Complete))
	p.tel.ReportCount("uploaded", int64(summary.Uploaded))
	p.tel.ReportCount("failures", int64(len(summary.Failures)))
}
