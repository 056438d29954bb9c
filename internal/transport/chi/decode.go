package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
	"github.com/kailas-cloud/cohortlens/internal/tabular"
)

// errUnsupportedMedia is returned for bodies that are neither JSON nor CSV.
var errUnsupportedMedia = errors.New("unsupported content type")

func mediaType(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return "application/json"
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return mt
}

func isCSV(mt string) bool {
	switch mt {
	case "text/csv", "application/csv", "text/tab-separated-values":
		return true
	}
	return false
}

// decodeRecord reads one JSON object. Numbers keep their literal form; null
// reads as an empty cell, the same as a blank CSV field.
func decodeRecord(body io.Reader) (feature.Raw, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("invalid JSON record: %w: %w", domain.ErrInvalidRecord, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("record must be a JSON object: %w", domain.ErrInvalidRecord)
	}
	return rawFromJSON(obj)
}

func rawFromJSON(obj map[string]any) (feature.Raw, error) {
	out := make(feature.Raw, len(obj))
	for k, v := range obj {
		switch x := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = strings.TrimSpace(x)
		case json.Number:
			out[k] = x.String()
		default:
			return nil, fmt.Errorf("%s must be a string or number: %w", k, domain.ErrInvalidRecord)
		}
	}
	return out, nil
}

// decodeTable reads a CSV/TSV body or a JSON {"records": [...]} body.
func decodeTable(r *http.Request, maxRows int) ([]feature.Raw, error) {
	mt := mediaType(r)
	switch {
	case isCSV(mt):
		opts := tabular.Options{MaxRows: maxRows}
		if mt == "text/tab-separated-values" {
			opts.Comma = '\t'
		}
		return tabular.Read(r.Body, opts)
	case mt == "application/json":
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var req BatchRequest
		if err := dec.Decode(&req); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w: %w", domain.ErrInvalidRecord, err)
		}
		if len(req.Records) == 0 {
			return nil, fmt.Errorf("records: %w", domain.ErrEmptyInput)
		}
		if maxRows > 0 && len(req.Records) > maxRows {
			return nil, fmt.Errorf("table exceeds %d rows: %w", maxRows, domain.ErrInvalidRecord)
		}
		rows := make([]feature.Raw, len(req.Records))
		for i, rec := range req.Records {
			raw, err := rawFromJSON(rec)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			rows[i] = raw
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%w %q", errUnsupportedMedia, mt)
	}
}
