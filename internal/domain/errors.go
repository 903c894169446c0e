package domain

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

// Recoverable conditions. A unit that fails with one of these is skipped.
var (
	// ErrResourceUnavailable is returned when a release or page does not exist
	// or could not be retrieved.
	ErrResourceUnavailable = errors.New("resource unavailable")
	// ErrParseUnavailable is returned when a retrieved resource does not have
	// the expected structure.
	ErrParseUnavailable = errors.New("parse unavailable")
)

// UnrecognizedInstrumentError is returned when no classification rule
// matches a raw instrument description.
type UnrecognizedInstrumentError struct {
	Raw    string
	Reason string // "no rule", "session", "maturity"
}

func (e *UnrecognizedInstrumentError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("instrument not recognized: %q", e.Raw)
	}
	return fmt.Sprintf("instrument not recognized (%s): %q", e.Reason, e.Raw)
}

// UnrecognizedMaturityBucketError is returned for a fixed-rate annotation
// whose maturity does not map to a known bucket.
type UnrecognizedMaturityBucketError struct {
	Years int
}

func (e *UnrecognizedMaturityBucketError) Error() string {
	return fmt.Sprintf("unrecognized fixed-rate maturity bucket: %d years", e.Years)
}

// UnrecognizedTableShapeError is returned when a release sheet has a column
// count that matches no known layout.
type UnrecognizedTableShapeError struct {
	Columns int
}

func (e *UnrecognizedTableShapeError) Error() string {
	return fmt.Sprintf("unrecognized release table shape: %d columns", e.Columns)
}

// OrphanAnnotationError is returned when a fixed-rate annotation names a
// bucket with no transaction on the same day.
type OrphanAnnotationError struct {
	Date       civil.Date
	Maturity   int
	Instrument string
}

func (e *OrphanAnnotationError) Error() string {
	return fmt.Sprintf("fixed-rate annotation for %d-year JGB on %s has no matching %q transaction",
		e.Maturity, e.Date, e.Instrument)
}

// DuplicateInstrumentError is returned when an operation already holds a
// transaction for the instrument being added.
type DuplicateInstrumentError struct {
	Date       civil.Date
	Instrument string
}

func (e *DuplicateInstrumentError) Error() string {
	return fmt.Sprintf("duplicate transaction for %q on %s", e.Instrument, e.Date)
}

// ConflictingRateError is returned when two fixed-rate annotations give one
// bucket different yields on the same day.
type ConflictingRateError struct {
	Date       civil.Date
	Instrument string
	First      float64
	Second     float64
}

func (e *ConflictingRateError) Error() string {
	return fmt.Sprintf("conflicting fixed-rate yields for %q on %s: %g%% and %g%%",
		e.Instrument, e.Date, e.First, e.Second)
}

// IsFatal reports whether err (or anything it wraps) must abort an ingestion run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var (
		instrument *UnrecognizedInstrumentError
		bucket     *UnrecognizedMaturityBucketError
		shape      *UnrecognizedTableShapeError
		orphan     *OrphanAnnotationError
		duplicate  *DuplicateInstrumentError
		conflict   *ConflictingRateError
	)
	return errors.As(err, &instrument) ||
		errors.As(err, &bucket) ||
		errors.As(err, &shape) ||
		errors.As(err, &orphan) ||
		errors.As(err, &duplicate) ||
		errors.As(err, &conflict)
}

// IsSkippable reports whether err marks a unit that should be skipped.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrResourceUnavailable) || errors.Is(err, ErrParseUnavailable)
}
