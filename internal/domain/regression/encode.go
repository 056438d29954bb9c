package regression

import (
	"fmt"

	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
)

// Predictors is the fixed predictor order of the score model.
func Predictors() []string {
	return []string{
		feature.HoursStudied,
		feature.Attendance,
		feature.ParentalInvolvement,
		feature.AccessToResources,
		feature.ExtracurricularActivities,
		feature.SleepHours,
		feature.PreviousScores,
		feature.MotivationLevel,
		feature.InternetAccess,
		feature.TutoringSessions,
		feature.FamilyIncome,
		feature.TeacherQuality,
		feature.SchoolType,
		feature.PeerInfluence,
		feature.PhysicalActivity,
		feature.LearningDisabilities,
		feature.ParentalEducationLevel,
		feature.DistanceFromHome,
		feature.Gender,
	}
}

// Encoder turns raw records into predictor rows.
// Unknown labels and missing values encode as 0, not as the normalizer sentinel.
type Encoder struct {
	table *feature.Table
	names []string
}

// NewEncoder validates that every predictor is declared in table.
func NewEncoder(table *feature.Table, names []string) (*Encoder, error) {
	for _, n := range names {
		if _, ok := table.Lookup(n); !ok {
			return nil, fmt.Errorf("regression encoder: predictor %q not in feature table", n)
		}
	}
	return &Encoder{table: table, names: append([]string(nil), names...)}, nil
}

// Names returns the predictor order.
func (e *Encoder) Names() []string { return append([]string(nil), e.names...) }

// Encode encodes one raw record.
func (e *Encoder) Encode(r feature.Raw) ([]float64, error) {
	out := make([]float64, len(e.names))
	for i, n := range e.names {
		cell, ok := r[n]
		if !ok {
			continue
		}
		spec, _ := e.table.Lookup(n)
		x, status, err := spec.Encode(cell)
		if err != nil {
			return nil, err
		}
		if status == feature.Known {
			out[i] = x
		}
	}
	return out, nil
}

// EncodeAll encodes every row; the error names the failing row.
func (e *Encoder) EncodeAll(rows []feature.Raw) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		v, err := e.Encode(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
