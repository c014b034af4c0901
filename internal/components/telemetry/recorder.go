package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call captured by Recorder.
type Report struct {
	Kind   string
	Id     string
	Params []any
	Count  int64
}

// Recorder is an API that keeps every report in memory, it is meant for tests.
type Recorder struct {
	lock    sync.Mutex
	reports []Report
}

func (r *Recorder) add(report Report) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.reports = append(r.reports, report)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add(Report{Kind: "broken", Id: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add(Report{Kind: "warning", Id: id, Params: params})
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add(Report{Kind: "debug", Id: msg, Params: params})
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add(Report{Kind: "count", Id: id, Count: count})
}

// Reports returns a copy of the reports of the given kind, an empty kind returns everything.
func (r *Recorder) Reports(kind string) []Report {
	r.lock.Lock()
	defer r.lock.Unlock()

	var out []Report
	for _, rep := range r.reports {
		if kind == "" || rep.Kind == kind {
			out = append(out, rep)
		}
	}
	return out
}

// Has returns true if a report of the given kind has an id containing `id`.
func (r *Recorder) Has(kind, id string) bool {
	for _, rep := range r.Reports(kind) {
		if strings.Contains(rep.Id, id) {
			return true
		}
	}
	return false
}
