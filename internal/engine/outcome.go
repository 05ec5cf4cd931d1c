package engine

import "ownerscan/internal/report"

// Status classifies how a batch ended.
type Status int

const (
	StatusSuccess Status = iota
	StatusEmpty
	StatusCancelled
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusEmpty:
		return "empty"
	case StatusCancelled:
		return "cancelled"
	case StatusFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Exit code contract:
// 0 = report written
// 2 = no repositories matched, nothing written
// 3 = fatal error, nothing written
// 130 = cancelled by the user, nothing written
const (
	ExitSuccess   = 0
	ExitEmpty     = 2
	ExitFatal     = 3
	ExitCancelled = 130
)

// Outcome is the result of one batch. Records and Summary are populated once
// analysis finished, even if writing the report then failed.
type Outcome struct {
	Status  Status
	Records []report.AnalysisRecord
	Summary report.Summary
	Err     error
}

func (o Outcome) ExitCode() int {
	switch o.Status {
	case StatusSuccess:
		return ExitSuccess
	case StatusEmpty:
		return ExitEmpty
	case StatusCancelled:
		return ExitCancelled
	default:
		return ExitFatal
	}
}
