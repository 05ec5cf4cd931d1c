package report

import "ownerscan/internal/codeowners"

// Summary aggregates a finished run.
type Summary struct {
	Total             int                         `json:"total"`
	WithCodeowners    int                         `json:"with_codeowners"`
	WithoutCodeowners int                         `json:"without_codeowners"`
	ByLocation        map[codeowners.Location]int `json:"by_location,omitempty"`
}

func Summarize(records []AnalysisRecord) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		if !r.HasCodeownersFile {
			continue
		}
		s.WithCodeowners++
		if s.ByLocation == nil {
			s.ByLocation = make(map[codeowners.Location]int)
		}
		s.ByLocation[r.CodeownersLocation]++
	}
	s.WithoutCodeowners = s.Total - s.WithCodeowners
	return s
}
