// Package scoring computes the heuristic pWin ("probability of win") score
// from the set of supporting document categories attached to a bid.
package scoring

import "govbid/internal/domain"

// Table holds the additive scoring parameters. The zero value scores
// everything as 0; use DefaultTable for production values.
type Table struct {
	Base    int
	Boosts  map[string]int
	Ceiling int
}

func DefaultTable() Table {
	return Table{
		Base: 20,
		Boosts: map[string]int{
			domain.DocTypePastPerformance:     25,
			domain.DocTypeCapabilityStatement: 20,
			domain.DocTypeTeamResumes:         10,
			domain.DocTypeCertifications:      10,
		},
		Ceiling: 85,
	}
}

// Score returns min(Base + sum of boosts, Ceiling). Each category counts
// once however many times it appears; unknown categories add nothing.
func (t Table) Score(categories []string) int {
	seen := make(map[string]struct{}, len(categories))
	score := t.Base
	for _, c := range categories {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		score += t.Boosts[c]
	}
	if score > t.Ceiling {
		return t.Ceiling
	}
	return score
}

// Known reports whether category carries a boost in this table.
func (t Table) Known(category string) bool {
	_, ok := t.Boosts[category]
	return ok
}
