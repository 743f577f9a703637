package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"govbid/internal/domain"
)

func TestScore_DefaultTable(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name       string
		categories []string
		want       int
	}{
		{"no documents", nil, 20},
		{"past performance only", []string{domain.DocTypePastPerformance}, 45},
		{"past performance and capability statement", []string{domain.DocTypePastPerformance, domain.DocTypeCapabilityStatement}, 65},
		{"resumes and certifications", []string{domain.DocTypeTeamResumes, domain.DocTypeCertifications}, 40},
		{"all four clamp to ceiling", domain.DocTypes, 85},
		{"duplicates count once", []string{domain.DocTypeTeamResumes, domain.DocTypeTeamResumes}, 30},
		{"unknown category adds nothing", []string{"cover-letter"}, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Score(tt.categories))
		})
	}
}

func TestScore_NeverExceedsCeilingForAnySubset(t *testing.T) {
	table := DefaultTable()
	cats := domain.DocTypes

	for mask := 0; mask < 1<<len(cats); mask++ {
		var subset []string
		sum := table.Base
		for i, c := range cats {
			if mask&(1<<i) != 0 {
				subset = append(subset, c)
				sum += table.Boosts[c]
			}
		}
		assert.Equal(t, min(sum, table.Ceiling), table.Score(subset), "subset %v", subset)
	}
}

func TestScore_InjectedTable(t *testing.T) {
	table := Table{Base: 5, Boosts: map[string]int{"a": 50, "b": 50}, Ceiling: 60}

	assert.Equal(t, 55, table.Score([]string{"a"}))
	assert.Equal(t, 60, table.Score([]string{"a", "b"}))
	assert.True(t, table.Known("a"))
	assert.False(t, table.Known("c"))
}
