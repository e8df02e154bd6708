package telemetry

import "sync"

type ReportKind int

const (
	KindBroken ReportKind = iota
	KindWarning
	KindDebug
	KindCount
)

type Report struct {
	Kind   ReportKind
	ID     string
	Params []any
}

// Recorder is an API that keeps every report in memory so tests can assert
// on what a component reported.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *Recorder) add(kind ReportKind, id string, params []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add(KindBroken, id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add(KindWarning, id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add(KindDebug, msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add(KindCount, id, []any{count})
}

// IDs returns the ids of every report of the given kind in the order they
// were made.
func (r *Recorder) IDs(kind ReportKind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, rep := range r.reports {
		if rep.Kind == kind {
			out = append(out, rep.ID)
		}
	}
	return out
}
