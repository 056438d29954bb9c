package cohortlens

import "github.com/kailas-cloud/cohortlens/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrInvalidRecord     = domain.ErrInvalidRecord
	ErrMissingDimension  = domain.ErrMissingDimension
	ErrDimensionMismatch = domain.ErrDimensionMismatch
	ErrEmptyInput        = domain.ErrEmptyInput
	ErrInvalidK          = domain.ErrInvalidK
	ErrInvalidModel      = domain.ErrInvalidModel
	ErrStaleModel        = domain.ErrStaleModel
	ErrModelNotLoaded    = domain.ErrModelNotLoaded
)
