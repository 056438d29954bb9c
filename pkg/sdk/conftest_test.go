package cohortlens

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
)

var (
	levels = []string{"Low", "Medium", "High"}
	noYes  = []string{"No", "Yes"}
)

// students generates n complete records whose exam score tracks previous
// scores and study hours.
func students(n int, seed uint64) []Record {
	rng := rand.New(rand.NewPCG(seed, seed))
	pick := func(xs []string) string { return xs[rng.IntN(len(xs))] }
	out := make([]Record, n)
	for i := range out {
		hours := 1 + rng.IntN(44)
		prev := 50 + rng.IntN(51)
		out[i] = Record{
			"Hours_Studied":              fmt.Sprint(hours),
			"Attendance":                 fmt.Sprint(60 + rng.IntN(41)),
			"Parental_Involvement":       pick(levels),
			"Access_to_Resources":        pick(levels),
			"Extracurricular_Activities": pick(noYes),
			"Sleep_Hours":                fmt.Sprint(4 + rng.IntN(7)),
			"Previous_Scores":            fmt.Sprint(prev),
			"Motivation_Level":           pick(levels),
			"Internet_Access":            pick(noYes),
			"Tutoring_Sessions":          fmt.Sprint(rng.IntN(9)),
			"Family_Income":              pick(levels),
			"Teacher_Quality":            pick(levels),
			"School_Type":                pick([]string{"Public", "Private"}),
			"Peer_Influence":             pick([]string{"Negative", "Neutral", "Positive"}),
			"Physical_Activity":          fmt.Sprint(rng.IntN(7)),
			"Learning_Disabilities":      pick(noYes),
			"Parental_Education_Level":   pick([]string{"High School", "College", "Postgraduate"}),
			"Distance_from_Home":         pick([]string{"Near", "Moderate", "Far"}),
			"Gender":                     pick([]string{"Female", "Male"}),
			"Exam_Score":                 fmt.Sprintf("%.0f", 55+float64(prev-50)*0.5+float64(hours)*0.3),
		}
	}
	return out
}

func newFileClient(t *testing.T, dir string, opts ...Option) *Client {
	t.Helper()
	c, err := New(context.Background(), append([]Option{WithFileStore(dir), WithSeed(7)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func without(r Record, key string) Record {
	out := make(Record, len(r))
	for k, v := range r {
		if k != key {
			out[k] = v
		}
	}
	return out
}
