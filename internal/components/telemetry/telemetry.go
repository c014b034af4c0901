package telemetry

import (
	"fmt"
)

// API is where every component reports what went wrong or what it counted.
// Tests swap in a Recorder to assert on reports.
type API interface {
	// ReportBroken reports a component that failed and needs attention. The id
	// names the component, usually `<struct>.<method>` (ex. `extractor.extract`),
	// lowercase, with ScopedAPI supplying the package.
	ReportBroken(id string, params ...any)
	// ReportWarning reports something worth a look that did not stop the run.
	ReportWarning(id string, params ...any)
	// ReportDebug is dropped unless debug logging is on.
	ReportDebug(msg string, params ...any)
	// ReportCount reports a point-in-time count, not a delta.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every report with a namespace.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
