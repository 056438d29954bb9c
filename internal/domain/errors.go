package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrZeroRange signals a reference range with max == min.
	ErrZeroRange = errors.New("zero-width reference range")
	// ErrDimensionMismatch signals a point whose length differs from the centroid set.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrMissingDimension signals a record lacking a dimension required by a feature space.
	ErrMissingDimension = errors.New("missing dimension")
	// ErrEmptyInput signals an empty point set passed to training.
	ErrEmptyInput = errors.New("empty input")
	// ErrInvalidK signals an unusable cluster count.
	ErrInvalidK = errors.New("invalid cluster count")
	// ErrInvalidRecord signals a raw value that cannot be interpreted.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrInvalidModel signals a malformed centroid set or regression model.
	ErrInvalidModel = errors.New("invalid model")
	// ErrStaleModel signals an artifact trained against a different feature reference table.
	ErrStaleModel = errors.New("model trained against a different feature table")
	// ErrModelNotLoaded signals that inference was attempted before models were loaded.
	ErrModelNotLoaded = errors.New("model not loaded")
)

// DimensionError wraps ErrDimensionMismatch with the expected and actual lengths.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: want %d, got %d", ErrDimensionMismatch.Error(), e.Want, e.Got)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(want, got int) error {
	return &DimensionError{Want: want, Got: got}
}

// RangeError wraps ErrZeroRange with the offending feature name.
type RangeError struct {
	Feature string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: feature %q", ErrZeroRange.Error(), e.Feature)
}

func (e *RangeError) Unwrap() error { return ErrZeroRange }
