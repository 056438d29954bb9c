package analysis

import "github.com/kailas-cloud/cohortlens/internal/domain/feature"

// Kind tags an Input.
type Kind int

// Input kinds.
const (
	KindSingle Kind = iota + 1
	KindBatch
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindBatch:
		return "batch"
	default:
		return "unknown"
	}
}

// Input is either one record or a table of records, resolved once at the boundary.
type Input struct {
	kind   Kind
	record feature.Raw
	rows   []feature.Raw
}

// Single wraps one interactive record.
func Single(r feature.Raw) Input { return Input{kind: KindSingle, record: r} }

// Batch wraps an uploaded table.
func Batch(rows []feature.Raw) Input { return Input{kind: KindBatch, rows: rows} }

// Kind returns the input tag.
func (i Input) Kind() Kind { return i.kind }

// Result carries exactly one of Single or Batch, matching Kind.
type Result struct {
	Kind   Kind
	Single *SingleResult
	Batch  *BatchResult
}
