// Package report hands processed results to the outputs of a measurement run.
package report

import (
	"errors"

	"github.com/mpapenbr/pipeflow/internal/processor"
)

// Sink receives every processed result in order.
type Sink interface {
	Report(r *processor.Result) error
	Close() error
}

// Multi passes results to all sinks. A failing sink does not stop the others.
type Multi []Sink

func (m Multi) Report(r *processor.Result) error {
	var errs []error
	for _, s := range m {
		if err := s.Report(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
