// Package ragflow uploads documents to a RAGFlow-style document parsing api.
package ragflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"wenshu-pipeline/internal/components/assert"
	"wenshu-pipeline/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
)

const (
	report_client_upload = "client.upload"
	report_client_parse  = "client.parse"
	report_client_status = "client.status"
)

// ErrRejected is returned when the api answers with a non-2xx status or
// without a document id.
var ErrRejected = errors.New("document rejected by upload api")

type Metadata struct {
	Filename   string `json:"filename"`
	Extension  string `json:"extension"`
	SourcePath string `json:"source_path"`
}

type Payload struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

type UploadResponse struct {
	DocumentId string `json:"document_id"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type Client struct {
	http *resty.Client
	tel  telemetry.API
}

type ClientOptions struct {
	ApiUrl  string
	ApiKey  string
	Timeout time.Duration
	// DumpHttp receives request/response transcripts when non-nil.
	DumpHttp telemetry.InstrumentOutput
}

func NewClient(opts ClientOptions, tel telemetry.API) (Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("ragflow", tel)

	parsed, err := url.Parse(opts.ApiUrl)
	if err != nil {
		return Client{}, fmt.Errorf("parse api url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return Client{}, fmt.Errorf("api url %q is not absolute", opts.ApiUrl)
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(opts.ApiUrl, "/"))
	client.SetAuthToken(opts.ApiKey)
	client.SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	telemetry.InstrumentResty(client, tel, opts.DumpHttp)

	return Client{http: client, tel: tel}, nil
}

func rejected(res *resty.Response) error {
	body := strings.TrimSpace(res.String())
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Errorf("%w: %s: %s", ErrRejected, res.Status(), body)
}

// Upload sends a document and returns the id the api assigned to it.
func (c Client) Upload(ctx context.Context, payload Payload) (UploadResponse, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/documents/upload")
	if err != nil {
		c.tel.ReportWarning(report_client_upload, payload.Metadata.Filename, err)
		return UploadResponse{}, fmt.Errorf("upload %s: %w", payload.Metadata.Filename, err)
	}
	if !res.IsSuccess() {
		err := rejected(res)
		c.tel.ReportWarning(report_client_upload, payload.Metadata.Filename, err)
		return UploadResponse{}, fmt.Errorf("upload %s: %w", payload.Metadata.Filename, err)
	}

	var out UploadResponse
	err = json.Unmarshal(res.Body(), &out)
	if err != nil || out.DocumentId == "" {
		err := fmt.Errorf("%w: response has no document_id", ErrRejected)
		c.tel.ReportWarning(report_client_upload, payload.Metadata.Filename, err)
		return UploadResponse{}, fmt.Errorf("upload %s: %w", payload.Metadata.Filename, err)
	}
	return out, nil
}

// Parse asks the api to start processing an uploaded document.
func (c Client) Parse(ctx context.Context, documentId string) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", documentId).
		Post("/documents/{id}/parse")
	if err != nil {
		c.tel.ReportWarning(report_client_parse, documentId, err)
		return fmt.Errorf("parse %s: %w", documentId, err)
	}
	if !res.IsSuccess() {
		err := rejected(res)
		c.tel.ReportWarning(report_client_parse, documentId, err)
		return fmt.Errorf("parse %s: %w", documentId, err)
	}
	return nil
}

// Status returns the processing status of a document, "unknown" if the api
// did not say.
func (c Client) Status(ctx context.Context, documentId string) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", documentId).
		Get("/documents/{id}/status")
	if err != nil {
		c.tel.ReportWarning(report_client_status, documentId, err)
		return "", fmt.Errorf("status %s: %w", documentId, err)
	}
	if !res.IsSuccess() {
		err := rejected(res)
		c.tel.ReportWarning(report_client_status, documentId, err)
		return "", fmt.Errorf("status %s: %w", documentId, err)
	}

	var out StatusResponse
	err = json.Unmarshal(res.Body(), &out)
	if err != nil {
		return "", fmt.Errorf("status %s: decode: %w", documentId, err)
	}
	if out.Status == "" {
		return "unknown", nil
	}
	return out.Status, nil
}
