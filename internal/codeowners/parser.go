package codeowners

import "strings"

// OwnerRule is a single parsed CODEOWNERS line.
type OwnerRule interface {
	// PrimaryOwner returns the owner this rule contributes to the report,
	// without a leading '@'.
	PrimaryOwner() string
}

// TeamOnly is a line made of a single @user or @org/team token with no path pattern.
type TeamOnly struct {
	Name string
}

func (r TeamOnly) PrimaryOwner() string {
	return r.Name
}

// PatternOwners is a conventional "pattern owner1 owner2 ..." line.
type PatternOwners struct {
	Pattern string
	Owners  []string
}

func (r PatternOwners) PrimaryOwner() string {
	if len(r.Owners) == 0 {
		return ""
	}
	return strings.TrimPrefix(r.Owners[0], "@")
}

// ParseRule parses one line of a CODEOWNERS file. It reports false for blank
// lines, comments, and lines that carry no owner (a lone pattern).
func ParseRule(line string) (OwnerRule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, false
	}

	fields := strings.Fields(line)
	switch {
	case len(fields) == 1 && strings.HasPrefix(fields[0], "@"):
		return TeamOnly{Name: strings.TrimPrefix(fields[0], "@")}, true
	case len(fields) >= 2:
		return PatternOwners{Pattern: fields[0], Owners: fields[1:]}, true
	default:
		return nil, false
	}
}

// ParsePrimaryOwner returns the owner named by the first qualifying rule in a
// CODEOWNERS file.
//
// Note: GitHub resolves ownership with last-match-wins per path. This reports
// the first rule in the file instead, which is a coarse per-repository signal
// and not the owner GitHub would request a review from for any given path.
func ParsePrimaryOwner(content string) (string, bool) {
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		rule, ok := ParseRule(line)
		if !ok {
			continue
		}
		owner := rule.PrimaryOwner()
		// A bare "@" decides the file but names nobody.
		if owner == "" {
			return "", false
		}
		return owner, true
	}
	return "", false
}
