package analytics

import (
	"errors"
	"fmt"
)

// The engine applies a two-tier error policy. Critical-path persistence
// failures (session creation, the primary interaction write) are fatal and
// propagate to the caller; enrichment failures (accuracy analysis, issue
// storage, template stats, insight generation) are advisory and are logged
// and swallowed so they never abort an in-progress automation attempt.

// FatalError wraps a critical-path failure.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// AdvisoryError wraps an enrichment-path failure.
type AdvisoryError struct {
	Op  string
	Err error
}

func (e *AdvisoryError) Error() string {
	return fmt.Sprintf("%s (advisory): %v", e.Op, e.Err)
}

func (e *AdvisoryError) Unwrap() error {
	return e.Err
}

// errMissingInteraction marks an enrichment call that lost its parent
// interaction reference.
var errMissingInteraction = errors.New("no interaction to attach report to")

func fatal(op string, err error) error {
	return &FatalError{Op: op, Err: err}
}

func advisory(op string, err error) error {
	return &AdvisoryError{Op: op, Err: err}
}

// IsFatal reports whether err is (or wraps) a critical-path failure.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsAdvisory reports whether err is (or wraps) an enrichment-path failure.
func IsAdvisory(err error) bool {
	var ae *AdvisoryError
	return errors.As(err, &ae)
}
