package output

import (
	"errors"
	"fmt"
)

// Sink defines a destination for report records and run events.
type Sink interface {
	Write(v any) error
	Close() error
}

// Aborter is implemented by sinks that can discard what they have written.
// Manager.Abort calls it instead of Close.
type Aborter interface {
	Abort() error
}

// Manager coordinates writing results to multiple sinks.
type Manager struct {
	sinks []Sink
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if s == nil {
		return fmt.Errorf("sink must not be nil")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

func (m *Manager) Write(v any) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(v); err != nil {
			errs = append(errs, fmt.Errorf("write %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors writing to sinks: %w", errors.Join(errs...))
	}
	return nil
}

// Close commits every sink.
func (m *Manager) Close() error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing sinks: %w", errors.Join(errs...))
	}
	return nil
}

// Abort discards partial output. Sinks that cannot discard are closed.
func (m *Manager) Abort() error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		var err error
		if a, ok := s.(Aborter); ok {
			err = a.Abort()
		} else {
			err = s.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("abort %T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors aborting sinks: %w", errors.Join(errs...))
	}
	return nil
}
