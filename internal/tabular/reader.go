// Package tabular reads student tables into raw records keyed by column name.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
)

// Options control how a table is read.
type Options struct {
	// Comma is the field delimiter. Defaults to ','.
	Comma rune
	// MaxRows rejects tables with more data rows. Zero means unlimited.
	MaxRows int
	// Columns keeps only the named columns when non-empty.
	Columns []string
}

// ReadFile reads a table from path. A .tsv extension switches the delimiter to tab.
func ReadFile(path string, opts Options) ([]feature.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if opts.Comma == 0 && strings.EqualFold(filepath.Ext(path), ".tsv") {
		opts.Comma = '\t'
	}
	rows, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// Read parses a header row followed by data rows. Cells are trimmed; an empty
// cell stays present with an empty value so the normalizer can tell it apart
// from a column the table does not have. Blank lines are skipped.
func Read(r io.Reader, opts Options) ([]feature.Raw, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	head, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("table has no header: %w", domain.ErrEmptyInput)
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w: %w", domain.ErrInvalidRecord, err)
	}
	header, err := parseHeader(head, opts.Columns)
	if err != nil {
		return nil, err
	}

	var out []feature.Raw
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w: %w", len(out), domain.ErrInvalidRecord, err)
		}
		if opts.MaxRows > 0 && len(out) == opts.MaxRows {
			return nil, fmt.Errorf("table exceeds %d rows: %w", opts.MaxRows, domain.ErrInvalidRecord)
		}
		row := make(feature.Raw, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			row[name] = strings.TrimSpace(rec[i])
		}
		out = append(out, row)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("table has no rows: %w", domain.ErrEmptyInput)
	}
	return out, nil
}

// parseHeader cleans column names. Columns filtered out map to "".
func parseHeader(cells []string, keep []string) ([]string, error) {
	var allowed map[string]bool
	if len(keep) > 0 {
		allowed = make(map[string]bool, len(keep))
		for _, c := range keep {
			allowed[c] = true
		}
	}

	header := make([]string, len(cells))
	seen := make(map[string]bool, len(cells))
	for i, c := range cells {
		name := strings.TrimSpace(c)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if name == "" {
			return nil, fmt.Errorf("header column %d is empty: %w", i, domain.ErrInvalidRecord)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q: %w", name, domain.ErrInvalidRecord)
		}
		seen[name] = true
		if allowed != nil && !allowed[name] {
			continue
		}
		header[i] = name
	}
	return header, nil
}
