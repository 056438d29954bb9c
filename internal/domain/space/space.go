// Package space declares ordered feature spaces and projects named values onto them.
package space

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
	"github.com/kailas-cloud/cohortlens/internal/domain/theme"
)

// Well-known space names.
const (
	Academic = "academic"
	Persona  = "persona"
)

// Point is a coordinate vector laid out in a Schema's dimension order.
type Point []float64

// Clone returns an independent copy.
func (p Point) Clone() Point {
	return append(Point(nil), p...)
}

// Schema is a named, ordered list of dimensions.
// Training and inference must project through the same schema.
type Schema struct {
	name string
	dims []string
}

// NewSchema validates and creates a Schema.
func NewSchema(name string, dims ...string) (Schema, error) {
	if name == "" {
		return Schema{}, fmt.Errorf("schema name is required")
	}
	if len(dims) == 0 {
		return Schema{}, fmt.Errorf("schema %s: at least one dimension is required", name)
	}
	seen := make(map[string]bool, len(dims))
	for _, d := range dims {
		if d == "" {
			return Schema{}, fmt.Errorf("schema %s: empty dimension name", name)
		}
		if seen[d] {
			return Schema{}, fmt.Errorf("schema %s: duplicate dimension %q", name, d)
		}
		seen[d] = true
	}
	return Schema{name: name, dims: append([]string(nil), dims...)}, nil
}

// AcademicSchema is the 2-D academic space.
func AcademicSchema() Schema {
	return Schema{name: Academic, dims: []string{feature.ExamScore, feature.PreviousScores}}
}

// PersonaSchema is the 5-D thematic space in theme declaration order.
func PersonaSchema() Schema {
	return Schema{name: Persona, dims: theme.DefaultGroups().Names()}
}

// Name returns the space name.
func (s Schema) Name() string { return s.name }

// Dims returns a copy of the dimension names.
func (s Schema) Dims() []string { return append([]string(nil), s.dims...) }

// Len returns the dimensionality.
func (s Schema) Len() int { return len(s.dims) }

// Equal reports whether two schemas have the same name and dimension order.
func (s Schema) Equal(o Schema) bool {
	if s.name != o.name || len(s.dims) != len(o.dims) {
		return false
	}
	for i := range s.dims {
		if s.dims[i] != o.dims[i] {
			return false
		}
	}
	return true
}

func (s Schema) String() string {
	return s.name + "(" + strings.Join(s.dims, ",") + ")"
}

// Project lays out values in schema order. Every dimension is required.
func (s Schema) Project(values map[string]float64) (Point, error) {
	p := make(Point, len(s.dims))
	for i, d := range s.dims {
		v, ok := values[d]
		if !ok {
			return nil, fmt.Errorf("%s space: %s: %w", s.name, d, domain.ErrMissingDimension)
		}
		p[i] = v
	}
	return p, nil
}

// ProjectAll projects every row; the error names the failing row.
func (s Schema) ProjectAll(rows []map[string]float64) ([]Point, error) {
	out := make([]Point, len(rows))
	for i, r := range rows {
		p, err := s.Project(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// Check verifies that p matches the schema's dimensionality.
func (s Schema) Check(p Point) error {
	if len(p) != len(s.dims) {
		return domain.NewDimensionMismatch(len(s.dims), len(p))
	}
	return nil
}
