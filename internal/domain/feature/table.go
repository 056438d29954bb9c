package feature

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Raw is one input record: attribute name -> raw cell text.
// Attributes not declared in the table are ignored.
type Raw map[string]string

// Vector maps feature name -> normalized value. Values are nominally in [0,1]
// but are not clamped: the categorical sentinel and out-of-range inputs fall outside.
type Vector map[string]float64

// Table is the fixed reference table consumed by the normalizer.
// Changing it invalidates every centroid set trained against it, see Version.
type Table struct {
	specs   []Spec
	index   map[string]int
	version string
}

// NewTable validates and creates a Table. Feature names must be unique.
func NewTable(specs ...Spec) (*Table, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("feature table requires at least one spec")
	}
	index := make(map[string]int, len(specs))
	for i, s := range specs {
		if s.name == "" {
			return nil, fmt.Errorf("feature table: spec %d has no name", i)
		}
		if _, dup := index[s.name]; dup {
			return nil, fmt.Errorf("feature table: duplicate feature %q", s.name)
		}
		index[s.name] = i
	}
	t := &Table{specs: append([]Spec(nil), specs...), index: index}
	t.version = t.fingerprint()
	return t, nil
}

// Specs returns the specs in declaration order.
func (t *Table) Specs() []Spec {
	return append([]Spec(nil), t.specs...)
}

// Lookup finds a spec by feature name.
func (t *Table) Lookup(name string) (Spec, bool) {
	i, ok := t.index[name]
	if !ok {
		return Spec{}, false
	}
	return t.specs[i], true
}

// Version is a stable fingerprint of the table contents.
func (t *Table) Version() string { return t.version }

// Normalize maps one raw record onto the reference scale:
// categorical label -> integer (Sentinel when unknown), fixed min-max rescale, then inversion.
// Attributes missing from the record stay missing from the result.
func (t *Table) Normalize(r Raw) (Vector, error) {
	out := make(Vector, len(t.specs))
	for _, s := range t.specs {
		cell, present := r[s.name]
		if !present {
			continue
		}
		x, status, err := s.Encode(cell)
		if err != nil {
			return nil, err
		}
		if status == Absent {
			continue
		}
		v, err := s.Scale(x)
		if err != nil {
			return nil, err
		}
		out[s.name] = v
	}
	return out, nil
}

// NormalizeBatch applies Normalize to every row. Row i of the result equals
// Normalize(rows[i]): nothing is derived from the batch itself.
func (t *Table) NormalizeBatch(rows []Raw) ([]Vector, error) {
	out := make([]Vector, len(rows))
	for i, r := range rows {
		v, err := t.Normalize(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// OutOfDomain lists the categorical features of r that will normalize to the sentinel.
func (t *Table) OutOfDomain(r Raw) []string {
	var names []string
	for _, s := range t.specs {
		if !s.kind.IsCategorical() {
			continue
		}
		cell, present := r[s.name]
		if !present {
			continue
		}
		if _, status, _ := s.Encode(cell); status == Unknown {
			names = append(names, s.name)
		}
	}
	return names
}

func (t *Table) fingerprint() string {
	var b strings.Builder
	for _, s := range t.specs {
		b.WriteString(s.name)
		b.WriteByte('|')
		b.WriteString(string(s.kind))
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(s.rng.Min, 'g', -1, 64))
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(s.rng.Max, 'g', -1, 64))
		b.WriteByte('|')
		b.WriteString(strconv.FormatBool(s.inverted))

		labels := make([]string, 0, len(s.labels))
		for k := range s.labels {
			labels = append(labels, k)
		}
		sort.Strings(labels)
		for _, k := range labels {
			b.WriteByte('|')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(strconv.Itoa(s.labels[k]))
		}
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}
