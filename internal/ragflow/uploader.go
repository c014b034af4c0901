package ragflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"wenshu-pipeline/internal/components/assert"
	"wenshu-pipeline/internal/components/telemetry"
	"wenshu-pipeline/internal/document"
	"wenshu-pipeline/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("wenshu/ragflow")

const report_uploader_status = "uploader.status"

// UploadResult is the outcome of uploading one record or file.
type UploadResult struct {
	Name       string
	DocumentId string
	Success    bool
	Reason     string
	// Status is the remote processing status, empty if it was never queried.
	Status string
}

// API is the subset of Client the uploader needs.
type API interface {
	Upload(ctx context.Context, payload Payload) (UploadResponse, error)
	Parse(ctx context.Context, documentId string) error
	Status(ctx context.Context, documentId string) (string, error)
}

type Uploader struct {
	api     API
	readers []FileReader
	tel     telemetry.API
}

func NewUploader(api API, tel telemetry.API) Uploader {
	assert.NotNil(api)
	assert.NotNil(tel)
	return Uploader{
		api:     api,
		readers: DefaultReaders(),
		tel:     telemetry.NewScopedAPI("ragflow", tel),
	}
}

// UploadRecord renders a parsed record into text and uploads it.
func (u Uploader) UploadRecord(ctx context.Context, doc document.ParsedDocument) UploadResult {
	name := store.FileName(doc.Id) + ".txt"
	return u.upload(ctx, name, Payload{
		Content: RenderRecord(doc),
		Metadata: Metadata{
			Filename:   name,
			Extension:  ".txt",
			SourcePath: doc.Source,
		},
	})
}

// UploadFile reads a local file and uploads its text.
func (u Uploader) UploadFile(ctx context.Context, path string) UploadResult {
	name := filepath.Base(path)

	var reader FileReader
	for _, r := range u.readers {
		if r.CanRead(path) {
			reader = r
			break
		}
	}
	if reader == nil {
		return UploadResult{Name: name, Reason: fmt.Sprintf("no reader for %s files", filepath.Ext(path))}
	}
	content, err := reader.ReadText(path)
	if err != nil {
		return UploadResult{Name: name, Reason: fmt.Sprintf("read file: %s", err.Error())}
	}

	return u.upload(ctx, name, Payload{
		Content: content,
		Metadata: Metadata{
			Filename:   name,
			Extension:  filepath.Ext(path),
			SourcePath: path,
		},
	})
}

func (u Uploader) upload(ctx context.Context, name string, payload Payload) UploadResult {
	ctx, span := tracer.Start(ctx, "Upload")
	defer span.End()
	span.SetAttributes(attribute.String("name", name))

	result := UploadResult{Name: name}
	if strings.TrimSpace(payload.Content) == "" {
		result.Reason = "empty content"
		span.SetStatus(codes.Error, result.Reason)
		return result
	}

	res, err := u.api.Upload(ctx, payload)
	if err != nil {
		result.Reason = err.Error()
		span.SetStatus(codes.Error, "upload")
		return result
	}
	result.DocumentId = res.DocumentId

	err = u.api.Parse(ctx, res.DocumentId)
	if err != nil {
		result.Reason = err.Error()
		span.SetStatus(codes.Error, "parse")
		return result
	}
	result.Success = true

	// the document is accepted at this point, a failed status query only loses the status
	status, err := u.api.Status(ctx, res.DocumentId)
	if err != nil {
		u.tel.ReportWarning(report_uploader_status, res.DocumentId, err)
		status = "unknown"
	}
	result.Status = status
	return result
}
