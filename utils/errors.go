package utils

import (
	"fmt"

	"github.com/pkg/errors"
)

// ParseError is returned when a file or stream does not follow the expected layout.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse error: " + e.Reason
}

// NewParseError is used when input cannot be decoded.
func NewParseError(format string, args ...interface{}) error {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}

// DimensionError is returned when attribute arrays of a cloud disagree in length.
type DimensionError struct {
	Attribute string
	Expected  int
	Actual    int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension error: %s has %d entries, expected %d", e.Attribute, e.Actual, e.Expected)
}

// NewDimensionError is used when an attribute array has the wrong length.
func NewDimensionError(attribute string, expected, actual int) error {
	return &DimensionError{Attribute: attribute, Expected: expected, Actual: actual}
}

// RangeError is returned when a numeric parameter lies outside its domain.
type RangeError struct {
	Name  string
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range error: %s=%v is outside [%v, %v]", e.Name, e.Value, e.Min, e.Max)
}

// NewRangeError is used when a parameter is outside of [min, max].
func NewRangeError(name string, value, min, max float64) error {
	return &RangeError{Name: name, Value: value, Min: min, Max: max}
}

// DegenerateInputError is returned for inputs with no usable direction, such as
// zero length axes or normals.
type DegenerateInputError struct {
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return "degenerate input: " + e.Reason
}

// NewDegenerateInputError is used when an input vector or point set has no usable direction.
func NewDegenerateInputError(format string, args ...interface{}) error {
	return &DegenerateInputError{Reason: fmt.Sprintf(format, args...)}
}

// NonRigidTransformError is returned when a matrix is not a rotation plus translation.
type NonRigidTransformError struct {
	Deviation float64
	Reason    string
}

func (e *NonRigidTransformError) Error() string {
	return fmt.Sprintf("transform is not rigid: %s (deviation %g)", e.Reason, e.Deviation)
}

// NewNonRigidTransformError is used when the rotation block fails the orthonormality check.
func NewNonRigidTransformError(reason string, deviation float64) error {
	return &NonRigidTransformError{Reason: reason, Deviation: deviation}
}

// UnsupportedOperationError is returned when an operation needs an attribute the cloud lacks.
type UnsupportedOperationError struct {
	Operation string
	Missing   string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation: %s requires %s", e.Operation, e.Missing)
}

// NewUnsupportedOperationError is used when a cloud lacks the attribute an operation needs.
func NewUnsupportedOperationError(operation, missing string) error {
	return &UnsupportedOperationError{Operation: operation, Missing: missing}
}

// IOError wraps a filesystem failure together with the path involved.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error on %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying filesystem error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// IsTyped reports whether err is, or wraps, one of the errors defined in this package.
func IsTyped(err error) bool {
	var (
		parseErr       *ParseError
		dimensionErr   *DimensionError
		rangeErr       *RangeError
		degenerateErr  *DegenerateInputError
		nonRigidErr    *NonRigidTransformError
		unsupportedErr *UnsupportedOperationError
		ioErr          *IOError
	)
	return errors.As(err, &parseErr) ||
		errors.As(err, &dimensionErr) ||
		errors.As(err, &rangeErr) ||
		errors.As(err, &degenerateErr) ||
		errors.As(err, &nonRigidErr) ||
		errors.As(err, &unsupportedErr) ||
		errors.As(err, &ioErr)
}

// NewIOError wraps err as an IOError for path. A nil err yields nil.
func NewIOError(path string, err error) error {
	if err == nil {
		return nil
	}
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &IOError{Path: path, Err: err}
}
