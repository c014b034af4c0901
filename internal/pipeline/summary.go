package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"wenshu-pipeline/internal/document"
	"wenshu-pipeline/internal/ragflow"
)

// Exit codes of a command.
const (
	ExitOk         = 0
	ExitFatal      = 1
	ExitIncomplete = 2
)

// run log item statuses besides the record statuses
const (
	statusOk      = "ok"
	statusFailed  = "failed"
	statusSkipped = "skipped"
)

const (
	DownloadStatsFile = "download_stats.json"
	SummaryFile       = "summary.json"
	UploadResultsFile = "upload_results.json"
)

// Failure is a single item that did not make it through a stage.
type Failure struct {
	Stage  string
	Name   string
	Reason string
}

// Summary counts the outcome of a run.
type Summary struct {
	Searched       int
	Downloaded     int
	Skipped        int
	DownloadFailed int

	Complete int
	Partial  int
	Failed   int

	Uploaded      int
	Rejected      int
	UploadSkipped int

	Failures []Failure
}

func (s *Summary) fail(stage, name, reason string) {
	s.Failures = append(s.Failures, Failure{Stage: stage, Name: name, Reason: reason})
}

// ExitCode is ExitIncomplete when any item failed, was partial or was rejected.
func (s Summary) ExitCode() int {
	if len(s.Failures) > 0 {
		return ExitIncomplete
	}
	return ExitOk
}

func (s Summary) String() string {
	return fmt.Sprintf(
		"searched %d, downloaded %d, skipped %d, download failed %d, complete %d, partial %d, failed %d, uploaded %d, rejected %d",
		s.Searched, s.Downloaded, s.Skipped, s.DownloadFailed,
		s.Complete, s.Partial, s.Failed,
		s.Uploaded, s.Rejected,
	)
}

type downloadedDocument struct {
	Id          string `json:"id"`
	Title       string `json:"title"`
	Court       string `json:"court"`
	CaseNumber  string `json:"case_number"`
	PublishDate string `json:"publish_date"`
	File        string `json:"file"`
}

// downloadStats is written to the download dir after a download.
type downloadStats struct {
	Total     int                  `json:"total"`
	Success   int                  `json:"success"`
	Failed    int                  `json:"failed"`
	Skipped   int                  `json:"skipped"`
	Documents []downloadedDocument `json:"documents"`
}

func newDownloadStats() downloadStats {
	return downloadStats{Documents: []downloadedDocument{}}
}

type parsedEntry struct {
	Id            string          `json:"id"`
	File          string          `json:"file"`
	Status        document.Status `json:"status"`
	MissingFields []string        `json:"missing_fields,omitempty"`
}

// parseStats is written to the parsed dir after a parse.
type parseStats struct {
	Total     int           `json:"total"`
	Complete  int           `json:"complete"`
	Partial   int           `json:"partial"`
	Failed    int           `json:"failed"`
	Documents []parsedEntry `json:"documents"`
}

func newParseStats() parseStats {
	return parseStats{Documents: []parsedEntry{}}
}

type uploadEntry struct {
	Name       string `json:"name"`
	Success    bool   `json:"success"`
	DocumentId string `json:"document_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// uploadStats is written to the results dir after an upload.
type uploadStats struct {
	Total     int           `json:"total"`
	Success   int           `json:"success"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Documents []uploadEntry `json:"documents"`
}

func newUploadStats() uploadStats {
	return uploadStats{Documents: []uploadEntry{}}
}

func (s *uploadStats) add(result ragflow.UploadResult) {
	s.Total++
	if result.Success {
		s.Success++
	} else {
		s.Failed++
	}
	s.Documents = append(s.Documents, uploadEntry{
		Name:       result.Name,
		Success:    result.Success,
		DocumentId: result.DocumentId,
		Status:     result.Status,
		Reason:     result.Reason,
	})
}

// writeStats is best effort, the records are already on disk.
func (p Pipeline) writeStats(dir, name string, stats any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(stats)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_stats, name, err)
		return
	}

	err = os.MkdirAll(dir, 0755)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_stats, name, err)
		return
	}
	err = os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0644)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_stats, name, err)
	}
}
