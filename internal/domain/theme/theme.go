// Package theme reduces a normalized feature vector to a handful of named composite scores.
package theme

import (
	"fmt"

	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
)

// Theme names.
const (
	AcademicDrive          = "Academic_Drive"
	ResourceAccess         = "Resource_Access"
	FamilyCapital          = "Family_Capital"
	PersonalWellbeing      = "Personal_Wellbeing"
	EnvironmentalStability = "Environmental_Stability"
)

// Group is a named theme and its ordered constituent features.
type Group struct {
	Name     string
	Features []string
}

// Groups is an ordered list of themes.
type Groups []Group

// DefaultGroups returns the five student-record themes in their canonical order.
func DefaultGroups() Groups {
	return Groups{
		{Name: AcademicDrive, Features: []string{
			feature.HoursStudied, feature.Attendance, feature.PreviousScores, feature.MotivationLevel,
		}},
		{Name: ResourceAccess, Features: []string{
			feature.AccessToResources, feature.InternetAccess, feature.TutoringSessions,
			feature.FamilyIncome, feature.TeacherQuality, feature.SchoolType,
		}},
		{Name: FamilyCapital, Features: []string{
			feature.ParentalInvolvement, feature.ParentalEducationLevel,
		}},
		{Name: PersonalWellbeing, Features: []string{
			feature.SleepHours, feature.PhysicalActivity, feature.ExtracurricularActivities,
		}},
		{Name: EnvironmentalStability, Features: []string{
			feature.PeerInfluence, feature.DistanceFromHome, feature.LearningDisabilities,
		}},
	}
}

// Validate checks for empty or duplicate themes.
func (g Groups) Validate() error {
	if len(g) == 0 {
		return fmt.Errorf("at least one theme is required")
	}
	seen := make(map[string]bool, len(g))
	for _, grp := range g {
		if grp.Name == "" {
			return fmt.Errorf("theme name is required")
		}
		if seen[grp.Name] {
			return fmt.Errorf("duplicate theme: %s", grp.Name)
		}
		if len(grp.Features) == 0 {
			return fmt.Errorf("theme %s has no features", grp.Name)
		}
		seen[grp.Name] = true
	}
	return nil
}

// Names returns the theme names in order.
func (g Groups) Names() []string {
	out := make([]string, len(g))
	for i, grp := range g {
		out[i] = grp.Name
	}
	return out
}

// Vector is the per-record reduction: theme scores plus the passed-through target.
type Vector struct {
	Scores map[string]float64
	// Target is the normalized Exam_Score when the input carried one.
	Target *float64
}

// Reduce averages each theme's constituents. A missing constituent counts as 0
// and still contributes to the denominator.
func (g Groups) Reduce(v feature.Vector) Vector {
	scores := make(map[string]float64, len(g))
	for _, grp := range g {
		var sum float64
		for _, f := range grp.Features {
			sum += v[f]
		}
		scores[grp.Name] = sum / float64(len(grp.Features))
	}

	out := Vector{Scores: scores}
	if t, ok := v[feature.ExamScore]; ok {
		out.Target = &t
	}
	return out
}

// ReduceBatch applies Reduce to every row.
func (g Groups) ReduceBatch(rows []feature.Vector) []Vector {
	out := make([]Vector, len(rows))
	for i, r := range rows {
		out[i] = g.Reduce(r)
	}
	return out
}

// Missing lists the constituents absent from v in theme declaration order.
// Reduce counts each of them as zero.
func (g Groups) Missing(v feature.Vector) []string {
	var out []string
	for _, grp := range g {
		for _, f := range grp.Features {
			if _, ok := v[f]; !ok {
				out = append(out, f)
			}
		}
	}
	return out
}
