package telemetry

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a line was rejected.
type ErrorKind int

const (
	// KindFieldCount means the line split into fewer than FieldCount fields
	KindFieldCount ErrorKind = iota + 1

	// KindNumericField means one of fields 0-9 is not a float
	KindNumericField

	// KindNonFinite means a numeric field parsed to NaN or ±Inf
	// (only reported when Parser.RejectNonFinite is set)
	KindNonFinite
)

// Sentinel errors for errors.Is checks against a *ParseError.
var (
	ErrFieldCount   = errors.New("telemetry: too few fields")
	ErrNumericField = errors.New("telemetry: invalid numeric field")
	ErrNonFinite    = errors.New("telemetry: non-finite numeric field")
)

// String returns a short label used for logs and metric labels.
func (k ErrorKind) String() string {
	switch k {
	case KindFieldCount:
		return "field_count"
	case KindNumericField:
		return "numeric_field"
	case KindNonFinite:
		return "non_finite"
	default:
		return "unknown"
	}
}

// ParseError describes a rejected telemetry line.
type ParseError struct {
	Kind ErrorKind

	// Index is the offending field index, or -1 for KindFieldCount
	Index int

	// Got is the number of fields found (KindFieldCount only)
	Got int

	// Value is the trimmed text of the offending field
	Value string

	// Err is the underlying strconv error, if any
	Err error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindFieldCount:
		return fmt.Sprintf("telemetry: expected %d fields, got %d", FieldCount, e.Got)
	case KindNumericField:
		return fmt.Sprintf("telemetry: field %d (%s) is not numeric: %q", e.Index, fieldName(e.Index), e.Value)
	case KindNonFinite:
		return fmt.Sprintf("telemetry: field %d (%s) is not finite: %q", e.Index, fieldName(e.Index), e.Value)
	default:
		return "telemetry: parse error"
	}
}

// Is matches the sentinel error for the error's kind.
func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrFieldCount:
		return e.Kind == KindFieldCount
	case ErrNumericField:
		return e.Kind == KindNumericField
	case ErrNonFinite:
		return e.Kind == KindNonFinite
	}
	return false
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or 0 if err is not a *ParseError.
func KindOf(err error) ErrorKind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
