package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"ownerscan/internal/codeowners"
	"ownerscan/internal/report"

	"github.com/fatih/color"
)

// ConsoleSink prints run progress for humans ("text") or streams every event
// as one JSON object per line ("ndjson").
type ConsoleSink struct {
	writer io.Writer
	format string
	mu     sync.Mutex
}

func NewConsoleSink(w io.Writer, format string) (*ConsoleSink, error) {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported console format: %s", format)
	}
	return &ConsoleSink{writer: w, format: format}, nil
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "ndjson" {
		encoder := json.NewEncoder(s.writer)
		switch t := v.(type) {
		case Event:
			if err := encoder.Encode(t); err != nil {
				return err
			}
		case report.AnalysisRecord:
			if err := encoder.Encode(eventFromRecord(t)); err != nil {
				return err
			}
		default:
			return nil
		}
		return flushIfPossible(s.writer)
	}

	e, ok := v.(Event)
	if !ok || e.Type != EventRunFinished || e.Summary == nil {
		// Per-repository progress goes to the log, not the console.
		return nil
	}
	if err := writeSummary(s.writer, e.Path, *e.Summary); err != nil {
		return err
	}
	return flushIfPossible(s.writer)
}

func (s *ConsoleSink) Close() error {
	return nil
}

func writeSummary(w io.Writer, path string, sum report.Summary) error {
	bold := color.New(color.Bold)
	good := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)

	if path != "" {
		if _, err := fmt.Fprintf(w, "\nResults saved to: %s\n", path); err != nil {
			return err
		}
	}
	if _, err := bold.Fprintln(w, "Summary:"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  Total repositories: %d\n", sum.Total); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  Repositories with CODEOWNERS: %s\n", good.Sprint(sum.WithCodeowners)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  Repositories without CODEOWNERS: %s\n", warn.Sprint(sum.WithoutCodeowners)); err != nil {
		return err
	}

	locs := make([]codeowners.Location, 0, len(sum.ByLocation))
	for loc := range sum.ByLocation {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i] < locs[j] })
	for _, loc := range locs {
		if _, err := fmt.Fprintf(w, "    %s: %d\n", loc.Path(), sum.ByLocation[loc]); err != nil {
			return err
		}
	}
	return nil
}

type flusher interface {
	Flush() error
}

func flushIfPossible(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
