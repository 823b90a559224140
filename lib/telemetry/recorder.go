package telemetry

import (
	"fmt"
	"sync"
)

// Report is a single call made against a RecorderAPI.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

// RecorderAPI keeps every report in memory, it is meant for tests that want to
// assert a component reported (or did not report) something.
type RecorderAPI struct {
	mu      sync.Mutex
	reports []Report
}

func (r *RecorderAPI) record(kind, id string, params []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
}

func (r *RecorderAPI) ReportBroken(id string, params ...any) {
	r.record("broken", id, params)
}

func (r *RecorderAPI) ReportWarning(id string, params ...any) {
	r.record("warning", id, params)
}

func (r *RecorderAPI) ReportDebug(msg string, params ...any) {
	r.record("debug", msg, params)
}

func (r *RecorderAPI) ReportCount(id string, count int64) {
	r.record("count", id, []any{count})
}

// Reports returns a copy of all reports of the given kind.
func (r *RecorderAPI) Reports(kind string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Report
	for _, rep := range r.reports {
		if rep.Kind == kind {
			out = append(out, rep)
		}
	}
	return out
}

func (r Report) String() string {
	return fmt.Sprintf("%s %s %v", r.Kind, r.ID, r.Params)
}
