package codeowners

import "testing"

func TestParsePrimaryOwner(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantOK  bool
	}{
		{name: "pattern with team owner", content: "* @alice\n", want: "alice", wantOK: true},
		{name: "team-only line", content: "@platform-team", want: "platform-team", wantOK: true},
		{name: "owner without at sign", content: "/docs/ jane", want: "jane", wantOK: true},
		{name: "org team owner", content: "*.go @acme/backend @carol", want: "acme/backend", wantOK: true},
		{
			name:    "comments and blanks are skipped",
			content: "# Owners\n\n   # indented comment\n*.md @docs-team\n* @everyone\n",
			want:    "docs-team",
			wantOK:  true,
		},
		{
			name:    "first qualifying rule wins over later rules",
			content: "* @first\n/src/ @second\n",
			want:    "first",
			wantOK:  true,
		},
		{
			name:    "lone pattern is skipped",
			content: "/build/\n* @builder",
			want:    "builder",
			wantOK:  true,
		},
		{name: "only comments", content: "# nobody\n\n#still nobody\n", wantOK: false},
		{name: "empty", content: "", wantOK: false},
		{name: "whitespace", content: " \n\t\n", wantOK: false},
		{name: "only malformed", content: "README.md\nsrc", wantOK: false},
		{name: "bare at sign names nobody", content: "@\n* @later", wantOK: false},
		{name: "CRLF line endings", content: "# c\r\n* @alice\r\n", want: "alice", wantOK: true},
		{name: "tabs between tokens", content: "*\t\t@alice", want: "alice", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrimaryOwner(tt.content)
			if ok != tt.wantOK {
				t.Fatalf("ParsePrimaryOwner(%q) ok = %v, want %v", tt.content, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("ParsePrimaryOwner(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestParseRule(t *testing.T) {
	t.Run("team only", func(t *testing.T) {
		rule, ok := ParseRule("  @platform  ")
		if !ok {
			t.Fatal("expected rule")
		}
		team, isTeam := rule.(TeamOnly)
		if !isTeam {
			t.Fatalf("expected TeamOnly, got %T", rule)
		}
		if team.Name != "platform" {
			t.Fatalf("unexpected name %q", team.Name)
		}
	})

	t.Run("pattern owners keeps every owner", func(t *testing.T) {
		rule, ok := ParseRule("/api/ @a @b c@example.com")
		if !ok {
			t.Fatal("expected rule")
		}
		po, isPattern := rule.(PatternOwners)
		if !isPattern {
			t.Fatalf("expected PatternOwners, got %T", rule)
		}
		if po.Pattern != "/api/" {
			t.Fatalf("unexpected pattern %q", po.Pattern)
		}
		if len(po.Owners) != 3 || po.Owners[2] != "c@example.com" {
			t.Fatalf("unexpected owners %v", po.Owners)
		}
		if po.PrimaryOwner() != "a" {
			t.Fatalf("unexpected primary owner %q", po.PrimaryOwner())
		}
	})

	t.Run("skipped lines", func(t *testing.T) {
		for _, line := range []string{"", "   ", "# comment", "   # comment", "lonely-pattern"} {
			if _, ok := ParseRule(line); ok {
				t.Errorf("ParseRule(%q) should be skipped", line)
			}
		}
	})
}

func TestPatternOwners_NoOwners(t *testing.T) {
	if got := (PatternOwners{Pattern: "*"}).PrimaryOwner(); got != "" {
		t.Fatalf("expected empty owner, got %q", got)
	}
}
