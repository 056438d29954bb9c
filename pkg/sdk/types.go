package cohortlens

import (
	"io"
	"time"

	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
	"github.com/kailas-cloud/cohortlens/internal/domain/regression"
	"github.com/kailas-cloud/cohortlens/internal/tabular"
	analysisuc "github.com/kailas-cloud/cohortlens/internal/usecase/analysis"
	"github.com/kailas-cloud/cohortlens/internal/usecase/models"
	traininguc "github.com/kailas-cloud/cohortlens/internal/usecase/training"
)

// Record is one student: attribute name to raw cell text.
// An absent Exam_Score asks for imputation.
type Record map[string]string

// ReadCSV parses a comma separated table with a header row into records.
func ReadCSV(r io.Reader) ([]Record, error) {
	rows, err := tabular.Read(r, tabular.Options{})
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = Record(row)
	}
	return out, nil
}

// Theme is one persona theme value in [0, 1].
type Theme struct {
	Name  string
	Value float64
}

// Report is the analysis of one record.
type Report struct {
	Score     float64
	Predicted bool
	Themes    []Theme
	Academic  string
	Persona   string
	// OutOfDomain lists categorical attributes with labels the reference table does not know.
	OutOfDomain []string
	// Missing lists theme attributes the record lacked. Each counted as zero.
	Missing []string
}

// Share is one label's slice of a group.
type Share struct {
	Label      string
	Count      int
	Percentage float64
}

// BatchReport is the analysis of a table.
type BatchReport struct {
	Total     int
	Predicted int
	Rows      []Report
	// Academic and Persona list every cluster in label order, empty ones included.
	Academic []Share
	Persona  []Share
	// PersonaByAcademic breaks each non-empty academic cluster down by persona.
	PersonaByAcademic map[string][]Share
}

// CentroidSet describes one published centroid set.
type CentroidSet struct {
	Space          string
	Dims           []string
	Labels         []string
	Points         [][]float64
	FeatureVersion string
	RunID          string
	TrainedAt      time.Time
}

// ScoreModel describes the published score model.
type ScoreModel struct {
	Features       []string
	Coef           []float64
	Intercept      float64
	FeatureVersion string
	TrainedAt      time.Time
}

// Models describes the model context in use.
type Models struct {
	Source   string
	LoadedAt time.Time
	Academic CentroidSet
	Persona  CentroidSet
	// Score is nil when imputation is unavailable.
	Score *ScoreModel
}

// TrainOptions configures one training run. Zero values use the client defaults.
type TrainOptions struct {
	AcademicK      int
	PersonaK       int
	Precision      float64
	MaxIterations  int
	AcademicLabels []string
	PersonaLabels  []string
	FitRegression  bool
	DryRun         bool
}

// SpaceResult is the training outcome for one space.
type SpaceResult struct {
	Centroids  CentroidSet
	Iterations int
	Converged  bool
	Sizes      []int
}

// TrainSummary is the outcome of a training run.
type TrainSummary struct {
	RunID     string
	Rows      int
	Academic  SpaceResult
	Persona   SpaceResult
	Score     *ScoreModel
	Persisted bool
	Published bool
}

func toRaw(r Record) feature.Raw { return feature.Raw(r) }

func toRawRows(rows []Record) []feature.Raw {
	out := make([]feature.Raw, len(rows))
	for i, r := range rows {
		out[i] = toRaw(r)
	}
	return out
}

func fromRow(r analysisuc.RowResult) Report {
	themes := make([]Theme, len(r.Themes))
	for i, t := range r.Themes {
		themes[i] = Theme{Name: t.Name, Value: t.Value}
	}
	return Report{
		Score:       r.Score,
		Predicted:   r.Predicted,
		Themes:      themes,
		Academic:    r.Academic,
		Persona:     r.Persona,
		OutOfDomain: r.OutOfDomain,
		Missing:     r.Missing,
	}
}

func fromBatch(b analysisuc.BatchResult) BatchReport {
	out := BatchReport{
		Total:             b.Total,
		Predicted:         b.Predicted,
		Rows:              make([]Report, len(b.Rows)),
		Academic:          shares(analysisuc.Distribution(b.Academic)),
		Persona:           shares(analysisuc.Distribution(b.Persona)),
		PersonaByAcademic: make(map[string][]Share, len(b.CrossTab.Academic)),
	}
	for i, r := range b.Rows {
		out.Rows[i] = fromRow(r)
	}
	for _, a := range b.CrossTab.Academic {
		out.PersonaByAcademic[a] = shares(b.CrossTab.Cells[a])
	}
	return out
}

func shares(in []analysisuc.Share) []Share {
	out := make([]Share, len(in))
	for i, s := range in {
		out[i] = Share{Label: s.Label, Count: s.Count, Percentage: s.Percentage}
	}
	return out
}

func fromSet(s centroid.Set) CentroidSet {
	pts := s.Points()
	points := make([][]float64, len(pts))
	for i, p := range pts {
		points[i] = []float64(p)
	}
	return CentroidSet{
		Space:          s.Schema().Name(),
		Dims:           s.Schema().Dims(),
		Labels:         s.Labels(),
		Points:         points,
		FeatureVersion: s.FeatureVersion(),
		RunID:          s.RunID(),
		TrainedAt:      fromMillis(s.TrainedAt()),
	}
}

func fromRegression(m *regression.Model) *ScoreModel {
	if m == nil {
		return nil
	}
	return &ScoreModel{
		Features:       m.Features(),
		Coef:           m.Coef(),
		Intercept:      m.Intercept(),
		FeatureVersion: m.FeatureVersion(),
		TrainedAt:      fromMillis(m.TrainedAt()),
	}
}

func fromSnapshot(s *models.Snapshot) Models {
	return Models{
		Source:   string(s.Source),
		LoadedAt: s.LoadedAt,
		Academic: fromSet(s.Academic),
		Persona:  fromSet(s.Persona),
		Score:    fromRegression(s.Regression),
	}
}

func fromSpace(s traininguc.SpaceSummary) SpaceResult {
	return SpaceResult{
		Centroids:  fromSet(s.Set),
		Iterations: s.Iterations,
		Converged:  s.Converged,
		Sizes:      s.Sizes,
	}
}

func fromSummary(s traininguc.Summary) TrainSummary {
	return TrainSummary{
		RunID:     s.RunID,
		Rows:      s.Rows,
		Academic:  fromSpace(s.Academic),
		Persona:   fromSpace(s.Persona),
		Score:     fromRegression(s.Regression),
		Persisted: s.Persisted,
		Published: s.Published,
	}
}

// fromMillis treats fixture timestamps (0 or 1) as unset.
func fromMillis(ms int64) time.Time {
	if ms <= 1 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
