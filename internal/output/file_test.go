package output

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"ownerscan/internal/codeowners"
	"ownerscan/internal/report"
)

func testRecords() []report.AnalysisRecord {
	return []report.AnalysisRecord{
		{
			RepositoryURL:      "https://github.com/acme/api",
			RepositoryName:     "api",
			HasCodeownersFile:  true,
			CodeownersLocation: codeowners.LocationGitHubDir,
			PrimaryOwner:       "bob",
		},
		{
			RepositoryURL:  "https://github.com/acme/web",
			RepositoryName: "web",
			PrimaryOwner:   report.NoCodeownersOwner,
		},
	}
}

func writeAll(t *testing.T, s *FileSink) {
	t.Helper()
	if err := s.Write(Event{Type: EventRunStarted, Org: "acme", Repos: 2}); err != nil {
		t.Fatalf("Write(run.started) failed: %v", err)
	}
	for _, r := range testRecords() {
		if err := s.Write(r); err != nil {
			t.Fatalf("Write(record) failed: %v", err)
		}
	}
	sum := report.Summarize(testRecords())
	if err := s.Write(Event{Type: EventRunFinished, Summary: &sum}); err != nil {
		t.Fatalf("Write(run.finished) failed: %v", err)
	}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFileSink_CSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codeowners_analysis.csv")

	s, err := NewFileSink(path, "csv")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	writeAll(t, s)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("report must not exist before Close, stat err=%v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	want := [][]string{
		report.Columns,
		{"https://github.com/acme/api", "api", "True", ".github/CODEOWNERS", "bob"},
		{"https://github.com/acme/web", "web", "False", "", "No CODEOWNERS file"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("got rows %v\nwant %v", rows, want)
	}
	if names := dirEntries(t, dir); len(names) != 1 {
		t.Fatalf("expected only the report in %s, got %v", dir, names)
	}
}

func TestFileSink_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	s, err := NewFileSink(path, "json")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	writeAll(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("expected JSON array, got %s: %v", b, err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0]["codeowners_file_location"] != ".github/CODEOWNERS" || got[0]["primary_owner"] != "bob" {
		t.Fatalf("unexpected first record %v", got[0])
	}
	if got[1]["codeowners_file_location"] != nil || got[1]["has_codeowner_file"] != false {
		t.Fatalf("unexpected second record %v", got[1])
	}
}

func TestFileSink_CSVAcceptsWrappedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := NewFileSink(path, "csv")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	for _, r := range testRecords() {
		if err := s.Write(Event{Type: EventRepoAnalyzed, RunID: "run-1", Record: &r}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	// Wrong type or missing record: ignored.
	if err := s.Write(Event{Type: EventRunStarted, Record: &report.AnalysisRecord{RepositoryName: "x"}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Write(Event{Type: EventRepoAnalyzed}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(string(b))).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(rows) != 3 || rows[1][1] != "api" || rows[2][1] != "web" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestFileSink_JSONEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	s, err := NewFileSink(path, "json")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	b, _ := os.ReadFile(path)
	if strings.TrimSpace(string(b)) != "[]" {
		t.Fatalf("expected empty array, got %q", b)
	}
}

func TestFileSink_NDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndjson")
	s, err := NewFileSink(path, "ndjson")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	writeAll(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	var types []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("invalid line %q: %v", sc.Text(), err)
		}
		types = append(types, ev.Type)
	}
	want := []string{EventRunStarted, EventRepoAnalyzed, EventRepoAnalyzed, EventRunFinished}
	if !reflect.DeepEqual(types, want) {
		t.Fatalf("got event types %v, want %v", types, want)
	}
}

func TestFileSink_AbortLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")

	s, err := NewFileSink(path, "csv")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	writeAll(t, s)
	if err := s.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}
	if names := dirEntries(t, dir); len(names) != 0 {
		t.Fatalf("expected empty directory after Abort, got %v", names)
	}
	if err := s.Write(testRecords()[0]); err == nil {
		t.Fatal("expected Write after Abort to fail")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close after Abort should be a no-op, got %v", err)
	}
}

func TestFileSink_ReplacesExistingReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	if err := os.WriteFile(path, []byte("stale\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	s, err := NewFileSink(path, "csv")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	if err := s.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "stale\n" {
		t.Fatalf("aborted run must not touch the existing report, got %q", b)
	}

	s, err = NewFileSink(path, "csv")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	writeAll(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	b, _ = os.ReadFile(path)
	if !strings.HasPrefix(string(b), strings.Join(report.Columns, ",")+"\n") {
		t.Fatalf("expected fresh report, got %q", b)
	}
}

func TestFileSink_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "report.csv")
	s, err := NewFileSink(path, "csv")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected report at %s: %v", path, err)
	}
}

func TestNewFileSink_InvalidArguments(t *testing.T) {
	if _, err := NewFileSink("", "csv"); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := NewFileSink(filepath.Join(t.TempDir(), "x.xml"), "xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
