package analysis

import (
	"github.com/kailas-cloud/cohortlens/internal/domain/cluster"
)

// Share is one label's slice of a population.
type Share struct {
	Label      string
	Count      int
	Percentage float64
}

// CrossTab breaks each academic cluster down by persona.
// Percentages are relative to the academic cluster.
type CrossTab struct {
	// Academic lists every academic cluster in label order, empty ones included.
	Academic []string
	// Cells lists the non-empty persona intersections in persona label order.
	// An empty academic cluster maps to an empty, non-nil slice.
	Cells map[string][]Share
}

// CrossTabulate intersects the two assignments of the same rows.
func CrossTabulate(academic, persona cluster.Assignment) CrossTab {
	out := CrossTab{
		Academic: append([]string(nil), academic.Labels...),
		Cells:    make(map[string][]Share, len(academic.Labels)),
	}
	for _, a := range academic.Labels {
		members := academic.Members[a]
		cells := []Share{}
		if len(members) == 0 {
			out.Cells[a] = cells
			continue
		}
		counts := make(map[string]int, len(persona.Labels))
		for _, idx := range members {
			counts[persona.Rows[idx]]++
		}
		for _, p := range persona.Labels {
			if n := counts[p]; n > 0 {
				cells = append(cells, Share{
					Label:      p,
					Count:      n,
					Percentage: 100 * float64(n) / float64(len(members)),
				})
			}
		}
		out.Cells[a] = cells
	}
	return out
}

// Distribution lists every cluster of a in label order, with zero counts for empty ones.
func Distribution(a cluster.Assignment) []Share {
	total := len(a.Rows)
	out := make([]Share, len(a.Labels))
	for i, l := range a.Labels {
		n := len(a.Members[l])
		out[i] = Share{Label: l, Count: n}
		if total > 0 {
			out[i].Percentage = 100 * float64(n) / float64(total)
		}
	}
	return out
}
