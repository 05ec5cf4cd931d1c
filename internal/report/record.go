package report

import (
	"encoding/json"

	"ownerscan/internal/codeowners"
	"ownerscan/internal/discovery"
)

// NoCodeownersOwner is reported when no primary owner could be derived.
const NoCodeownersOwner = "No CODEOWNERS file"

// Columns is the fixed column order of the tabular report.
var Columns = []string{
	"repository_url",
	"repository_name",
	"has_codeowner_file",
	"codeowners_file_location",
	"primary_owner",
}

// AnalysisRecord is one row of the report.
type AnalysisRecord struct {
	RepositoryURL      string
	RepositoryName     string
	HasCodeownersFile  bool
	CodeownersLocation codeowners.Location
	PrimaryOwner       string
}

// Assemble builds the record for repo. owner and ok are the parser's output.
func Assemble(repo discovery.RepositoryDescriptor, res codeowners.Result, owner string, ok bool) AnalysisRecord {
	rec := AnalysisRecord{
		RepositoryURL:  repo.HTMLURL,
		RepositoryName: repo.Name,
		PrimaryOwner:   NoCodeownersOwner,
	}
	if !res.Found {
		return rec
	}
	rec.HasCodeownersFile = true
	rec.CodeownersLocation = res.Location
	if ok && owner != "" {
		rec.PrimaryOwner = owner
	}
	return rec
}

// Row renders the record in Columns order. Booleans are written as
// True/False and an absent location as an empty cell.
func (r AnalysisRecord) Row() []string {
	has := "False"
	if r.HasCodeownersFile {
		has = "True"
	}
	return []string{
		r.RepositoryURL,
		r.RepositoryName,
		has,
		r.CodeownersLocation.Path(),
		r.PrimaryOwner,
	}
}

type recordJSON struct {
	RepositoryURL      string  `json:"repository_url"`
	RepositoryName     string  `json:"repository_name"`
	HasCodeownersFile  bool    `json:"has_codeowner_file"`
	CodeownersLocation *string `json:"codeowners_file_location"`
	PrimaryOwner       string  `json:"primary_owner"`
}

// MarshalJSON uses the report column names and null for an absent location.
func (r AnalysisRecord) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		RepositoryURL:     r.RepositoryURL,
		RepositoryName:    r.RepositoryName,
		HasCodeownersFile: r.HasCodeownersFile,
		PrimaryOwner:      r.PrimaryOwner,
	}
	if !r.CodeownersLocation.IsZero() {
		p := r.CodeownersLocation.Path()
		out.CodeownersLocation = &p
	}
	return json.Marshal(out)
}
