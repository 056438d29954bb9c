package feature

// Attribute names of a student record.
const (
	HoursStudied              = "Hours_Studied"
	Attendance                = "Attendance"
	ParentalInvolvement       = "Parental_Involvement"
	AccessToResources         = "Access_to_Resources"
	ExtracurricularActivities = "Extracurricular_Activities"
	SleepHours                = "Sleep_Hours"
	PreviousScores            = "Previous_Scores"
	MotivationLevel           = "Motivation_Level"
	InternetAccess            = "Internet_Access"
	TutoringSessions          = "Tutoring_Sessions"
	FamilyIncome              = "Family_Income"
	TeacherQuality            = "Teacher_Quality"
	SchoolType                = "School_Type"
	PeerInfluence             = "Peer_Influence"
	PhysicalActivity          = "Physical_Activity"
	LearningDisabilities      = "Learning_Disabilities"
	ParentalEducationLevel    = "Parental_Education_Level"
	DistanceFromHome          = "Distance_from_Home"
	Gender                    = "Gender"

	// ExamScore is the target score. It is scaled like any other attribute
	// and imputed by the regression model when absent.
	ExamScore = "Exam_Score"
)

var (
	lowMediumHigh = map[string]int{"Low": 0, "Medium": 1, "High": 2}
	noYes         = map[string]int{"No": 0, "Yes": 1}
	schoolType    = map[string]int{"Public": 0, "Private": 1}
	peer          = map[string]int{"Negative": 0, "Neutral": 1, "Positive": 2}
	education     = map[string]int{"High School": 0, "College": 1, "Postgraduate": 2}
	distance      = map[string]int{"Near": 0, "Moderate": 1, "Far": 2}
	gender        = map[string]int{"Female": 0, "Male": 1}
)

// DefaultSpecs returns the student-record reference table in declaration order.
// Some categorical ranges start at -1 so that the sentinel maps exactly to 0.
func DefaultSpecs() []Spec {
	return []Spec{
		MustNew(HoursStudied, Continuous, Range{Min: 1, Max: 44}, nil),
		MustNew(Attendance, Continuous, Range{Min: 60, Max: 100}, nil),
		MustNew(ParentalInvolvement, Ordinal, Range{Min: 0, Max: 2}, lowMediumHigh),
		MustNew(AccessToResources, Ordinal, Range{Min: 0, Max: 2}, lowMediumHigh),
		MustNew(ExtracurricularActivities, Binary, Range{Min: 0, Max: 1}, noYes),
		MustNew(SleepHours, Continuous, Range{Min: 4, Max: 10}, nil),
		MustNew(PreviousScores, Continuous, Range{Min: 50, Max: 100}, nil),
		MustNew(MotivationLevel, Ordinal, Range{Min: 0, Max: 2}, lowMediumHigh),
		MustNew(InternetAccess, Binary, Range{Min: 0, Max: 1}, noYes),
		MustNew(TutoringSessions, Continuous, Range{Min: 0, Max: 8}, nil),
		MustNew(FamilyIncome, Ordinal, Range{Min: 0, Max: 2}, lowMediumHigh),
		MustNew(TeacherQuality, Ordinal, Range{Min: -1, Max: 2}, lowMediumHigh),
		MustNew(SchoolType, Binary, Range{Min: 0, Max: 1}, schoolType),
		MustNew(PeerInfluence, Ordinal, Range{Min: 0, Max: 2}, peer),
		MustNew(PhysicalActivity, Continuous, Range{Min: 0, Max: 6}, nil),
		MustNew(LearningDisabilities, Binary, Range{Min: 0, Max: 1}, noYes).LowerIsBetter(),
		MustNew(ParentalEducationLevel, Ordinal, Range{Min: -1, Max: 2}, education),
		MustNew(DistanceFromHome, Ordinal, Range{Min: -1, Max: 2}, distance).LowerIsBetter(),
		MustNew(Gender, Binary, Range{Min: 0, Max: 1}, gender),
		MustNew(ExamScore, Continuous, Range{Min: 55, Max: 101}, nil),
	}
}

// DefaultTable builds the reference table from DefaultSpecs.
func DefaultTable() *Table {
	t, err := NewTable(DefaultSpecs()...)
	if err != nil {
		panic(err)
	}
	return t
}
