package feature

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/cohortlens/internal/domain"
)

// Kind distinguishes how a raw attribute value is turned into a number.
type Kind string

// Feature kinds.
const (
	// Ordinal is a categorical attribute with ordered labels (Low < Medium < High).
	Ordinal Kind = "ordinal"
	// Binary is a two-label categorical attribute (No/Yes).
	Binary Kind = "binary"
	// Continuous is a raw numeric measurement.
	Continuous Kind = "continuous"
)

// IsValid checks if the kind is supported.
func (k Kind) IsValid() bool {
	return k == Ordinal || k == Binary || k == Continuous
}

// IsCategorical reports whether values are looked up in a label map.
func (k Kind) IsCategorical() bool {
	return k == Ordinal || k == Binary
}

// Sentinel is the encoded value of an unrecognized or empty categorical label.
// After scaling it lands outside [0,1] on purpose.
const Sentinel = -1.0

// Range is a fixed reference min/max shared by training and inference.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Width returns Max - Min.
func (r Range) Width() float64 { return r.Max - r.Min }

// Spec is an immutable value object describing one attribute of a raw record.
type Spec struct {
	name     string
	kind     Kind
	rng      Range
	labels   map[string]int
	inverted bool
}

// New validates and creates a Spec.
// Categorical kinds require a non-empty label map, continuous kinds must not carry one.
// A zero-width range is rejected with a *domain.RangeError.
func New(name string, kind Kind, rng Range, labels map[string]int) (Spec, error) {
	if name == "" {
		return Spec{}, fmt.Errorf("feature name is required")
	}
	if !kind.IsValid() {
		return Spec{}, fmt.Errorf("invalid feature kind %q for %q", kind, name)
	}
	if kind.IsCategorical() && len(labels) == 0 {
		return Spec{}, fmt.Errorf("feature %q: %s kind requires labels", name, kind)
	}
	if kind == Continuous && len(labels) > 0 {
		return Spec{}, fmt.Errorf("feature %q: continuous kind must not have labels", name)
	}
	if rng.Width() == 0 {
		return Spec{}, &domain.RangeError{Feature: name}
	}

	var copied map[string]int
	if len(labels) > 0 {
		copied = make(map[string]int, len(labels))
		for k, v := range labels {
			copied[k] = v
		}
	}
	return Spec{name: name, kind: kind, rng: rng, labels: copied}, nil
}

// MustNew is New that panics on error. Intended for package-level tables.
func MustNew(name string, kind Kind, rng Range, labels map[string]int) Spec {
	s, err := New(name, kind, rng, labels)
	if err != nil {
		panic(err)
	}
	return s
}

// LowerIsBetter returns a copy of the spec whose scaled value is inverted (1 - x).
func (s Spec) LowerIsBetter() Spec {
	s.inverted = true
	return s
}

// Name returns the attribute name.
func (s Spec) Name() string { return s.name }

// Kind returns the attribute kind.
func (s Spec) Kind() Kind { return s.kind }

// Range returns the fixed reference range.
func (s Spec) Range() Range { return s.rng }

// Inverted reports whether the feature is "lower is better".
func (s Spec) Inverted() bool { return s.inverted }

// Labels returns a copy of the label map (nil for continuous features).
func (s Spec) Labels() map[string]int {
	if s.labels == nil {
		return nil
	}
	out := make(map[string]int, len(s.labels))
	for k, v := range s.labels {
		out[k] = v
	}
	return out
}

// Status classifies the outcome of encoding one raw cell.
type Status int

// Encoding outcomes.
const (
	// Known is a parsed number or a recognized label.
	Known Status = iota
	// Unknown is an unrecognized or empty categorical label, encoded as Sentinel.
	Unknown
	// Absent is an empty continuous cell; callers drop the attribute.
	Absent
)

// Encode turns a raw cell into its pre-scaling number.
func (s Spec) Encode(raw string) (float64, Status, error) {
	raw = strings.TrimSpace(raw)
	if s.kind.IsCategorical() {
		v, found := s.labels[raw]
		if !found {
			return Sentinel, Unknown, nil
		}
		return float64(v), Known, nil
	}

	if raw == "" {
		return 0, Absent, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, Absent, fmt.Errorf("%w: %s=%q is not a number", domain.ErrInvalidRecord, s.name, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, Absent, fmt.Errorf("%w: %s=%q is not finite", domain.ErrInvalidRecord, s.name, raw)
	}
	return v, Known, nil
}

// Scale applies fixed-reference min-max scaling followed by inversion when configured.
// The result is not clamped.
func (s Spec) Scale(x float64) (float64, error) {
	width := s.rng.Width()
	if width == 0 {
		return 0, &domain.RangeError{Feature: s.name}
	}
	scaled := (x - s.rng.Min) / width
	if s.inverted {
		scaled = 1.0 - scaled
	}
	return scaled, nil
}
