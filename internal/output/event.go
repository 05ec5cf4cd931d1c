package output

import "ownerscan/internal/report"

// Event is a lifecycle record for NDJSON streaming output. Every event
// written by a run carries the same RunID.
//
// Types:
// - run.started (Org, Repos)
// - repo.analyzed (Record)
// - run.finished (Summary, ExitCode)
//
// CSV and JSON outputs only consume records.
type Event struct {
	Type     string                 `json:"type"`
	RunID    string                 `json:"run_id,omitempty"`
	Org      string                 `json:"org,omitempty"`
	Repos    int                    `json:"repos,omitempty"`
	Record   *report.AnalysisRecord `json:"record,omitempty"`
	Summary  *report.Summary        `json:"summary,omitempty"`
	Path     string                 `json:"path,omitempty"`
	ExitCode int                    `json:"exit_code,omitempty"`
}

const (
	EventRunStarted   = "run.started"
	EventRepoAnalyzed = "repo.analyzed"
	EventRunFinished  = "run.finished"
)

func eventFromRecord(r report.AnalysisRecord) Event {
	return Event{Type: EventRepoAnalyzed, Record: &r}
}

// recordOf extracts the analysis record carried by v, whether it was written
// bare or wrapped in a repo.analyzed event.
func recordOf(v any) (report.AnalysisRecord, bool) {
	switch t := v.(type) {
	case report.AnalysisRecord:
		return t, true
	case Event:
		if t.Type == EventRepoAnalyzed && t.Record != nil {
			return *t.Record, true
		}
	}
	return report.AnalysisRecord{}, false
}
