package centroid

import "github.com/kailas-cloud/cohortlens/internal/domain/space"

// Academic tier labels of the shipped fixture.
const (
	SteadyProgress  = "Steady Progress Students"
	HighlyImproved  = "Highly Improved Students"
	DecliningScores = "Declining Students"
)

// AcademicFixture is the shipped 3-cluster academic set (Exam_Score, Previous_Scores).
func AcademicFixture() Set {
	s, err := New(space.AcademicSchema(),
		[]string{SteadyProgress, HighlyImproved, DecliningScores},
		[]space.Point{
			{0.26407826, 0.4980978},
			{0.28523119, 0.83384127},
			{0.24843434, 0.16748274},
		},
		Meta{TrainedAt: 1},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// PersonaFixture is the shipped 5-cluster persona set over the theme space.
func PersonaFixture() Set {
	s, err := New(space.PersonaSchema(),
		DefaultLabels(5),
		[]space.Point{
			{0.48434735, 0.51876055, 0.35172773, 0.32871612, 0.69163936},
			{0.47051680, 0.51762281, 0.72973323, 0.31982215, 0.69597686},
			{0.47009039, 0.51307385, 0.73488024, 0.67072522, 0.73466401},
			{0.47050352, 0.52125862, 0.34757303, 0.67812502, 0.73516515},
			{0.48512111, 0.51239632, 0.34586241, 0.32626084, 0.23126512},
		},
		Meta{TrainedAt: 1},
	)
	if err != nil {
		panic(err)
	}
	return s
}
