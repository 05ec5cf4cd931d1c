package output

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ownerscan/internal/report"

	"github.com/m-mizutani/goerr/v2"
)

// FileSink writes the report to a file.
//
// Output goes to a temporary file next to the destination and is renamed
// into place by Close, so a run that never reaches Close (cancellation, a
// fatal error) leaves no report behind. Abort removes the temporary file.
type FileSink struct {
	path    string
	format  string
	tmp     *os.File
	buf     *bufio.Writer
	csv     *csv.Writer
	mu      sync.Mutex
	records []report.AnalysisRecord
	done    bool
}

func NewFileSink(path string, format string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path required")
	}
	if format != "csv" && format != "json" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, goerr.Wrap(err, "failed to create output directory", goerr.V("dir", dir))
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create output file", goerr.V("path", path))
	}

	s := &FileSink{
		path:   path,
		format: format,
		tmp:    tmp,
		buf:    bufio.NewWriter(tmp),
	}
	if format == "csv" {
		s.csv = csv.NewWriter(s.buf)
		if err := s.csv.Write(report.Columns); err != nil {
			_ = s.discardLocked()
			return nil, goerr.Wrap(err, "failed to write CSV header", goerr.V("path", path))
		}
	}
	return s, nil
}

func (s *FileSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return fmt.Errorf("file sink for %s is closed", s.path)
	}

	switch s.format {
	case "csv":
		r, ok := recordOf(v)
		if !ok {
			return nil
		}
		return s.csv.Write(r.Row())
	case "json":
		r, ok := recordOf(v)
		if !ok {
			// Ignore lifecycle events in JSON aggregate mode.
			return nil
		}
		s.records = append(s.records, r)
		return nil
	case "ndjson":
		encoder := json.NewEncoder(s.buf)
		switch t := v.(type) {
		case Event:
			return encoder.Encode(t)
		case report.AnalysisRecord:
			return encoder.Encode(eventFromRecord(t))
		default:
			return nil
		}
	}
	return nil
}

// Close flushes the report and moves it to its final path.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil
	}

	var err error
	switch s.format {
	case "csv":
		s.csv.Flush()
		err = s.csv.Error()
	case "json":
		records := s.records
		if records == nil {
			records = []report.AnalysisRecord{}
		}
		encoder := json.NewEncoder(s.buf)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(records)
	}
	if err == nil {
		err = s.buf.Flush()
	}
	if err != nil {
		_ = s.discardLocked()
		return goerr.Wrap(err, "failed to write report", goerr.V("path", s.path))
	}

	tmpName := s.tmp.Name()
	s.done = true
	// CreateTemp opens files 0600; reports are ordinary files.
	_ = s.tmp.Chmod(0o644)
	if err := s.tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return goerr.Wrap(err, "failed to close report", goerr.V("path", s.path))
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return goerr.Wrap(err, "failed to move report into place", goerr.V("path", s.path))
	}
	return nil
}

// Abort drops everything written so far.
func (s *FileSink) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	return s.discardLocked()
}

func (s *FileSink) discardLocked() error {
	s.done = true
	name := s.tmp.Name()
	_ = s.tmp.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
