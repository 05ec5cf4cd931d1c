package codeowners

// Location is one of the paths GitHub searches for a CODEOWNERS file.
// The zero value means no file was found.
type Location int

const (
	LocationNone Location = iota
	LocationGitHubDir
	LocationRoot
	LocationDocs
)

// SearchOrder lists candidate locations in GitHub's documented resolution order.
var SearchOrder = []Location{
	LocationGitHubDir,
	LocationRoot,
	LocationDocs,
}

// Path returns the repository-relative path for l, or "" for LocationNone.
func (l Location) Path() string {
	switch l {
	case LocationGitHubDir:
		return ".github/CODEOWNERS"
	case LocationRoot:
		return "CODEOWNERS"
	case LocationDocs:
		return "docs/CODEOWNERS"
	default:
		return ""
	}
}

func (l Location) String() string {
	return l.Path()
}

func (l Location) IsZero() bool {
	return l == LocationNone
}

// MarshalText renders the location as its path so JSON output carries
// ".github/CODEOWNERS" rather than an integer.
func (l Location) MarshalText() ([]byte, error) {
	return []byte(l.Path()), nil
}

// Result is the outcome of a CODEOWNERS search for one repository.
type Result struct {
	Found    bool
	Location Location
	Content  string
}
