// Package util carries small helpers shared by the ring packages and the
// command line tools.
package util

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ContextualError pairs an underlying error with a human message and
// structured fields, so callers deep in setup code can hand errors up to a
// single logging site without losing detail.
type ContextualError struct {
	RealError error
	Fields    map[string]any
	Context   string
}

func NewContextualError(msg string, fields map[string]any, realError error) *ContextualError {
	return &ContextualError{Context: msg, Fields: fields, RealError: realError}
}

// ContextualizeIfNeeded wraps err with msg unless it already carries its own
// context.
func ContextualizeIfNeeded(msg string, err error) error {
	var ce *ContextualError
	if errors.As(err, &ce) {
		return err
	}
	return NewContextualError(msg, nil, err)
}

// LogWithContextIfNeeded logs err through its own context when it has one,
// falling back to msg otherwise.
func LogWithContextIfNeeded(msg string, err error, l *logrus.Logger) {
	var ce *ContextualError
	if errors.As(err, &ce) {
		ce.Log(l)
		return
	}
	l.WithError(err).Error(msg)
}

func (ce *ContextualError) Error() string {
	if ce.RealError == nil {
		return ce.Context
	}
	return fmt.Errorf("%s (%v): %w", ce.Context, ce.Fields, ce.RealError).Error()
}

func (ce *ContextualError) Unwrap() error {
	if ce.RealError == nil {
		return errors.New(ce.Context)
	}
	return ce.RealError
}

func (ce *ContextualError) Log(lr *logrus.Logger) {
	if ce.RealError != nil {
		lr.WithFields(ce.Fields).WithError(ce.RealError).Error(ce.Context)
		return
	}
	lr.WithFields(ce.Fields).Error(ce.Context)
}
