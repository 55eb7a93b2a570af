package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssessComplexity_Low(t *testing.T) {
	task := &Task{Name: "small", Description: "short description"}

	report := AssessComplexity(task, DefaultComplexityThresholds())

	assert.Equal(t, ComplexityLow, report.Level)
	assert.Equal(t, len(task.Description), report.Metrics.DescriptionLength)
	assert.Equal(t, 0, report.Metrics.DependenciesCount)
	assert.False(t, report.Metrics.HasNotes)
	assert.NotEmpty(t, report.Recommendations)
}

func TestAssessComplexity_LevelIsMaxAcrossMetrics(t *testing.T) {
	// Short description but many dependencies: the dependency metric wins.
	task := &Task{
		Name:         "fan-in",
		Description:  "short",
		Dependencies: make([]string, 10),
	}

	report := AssessComplexity(task, DefaultComplexityThresholds())
	assert.Equal(t, ComplexityVeryHigh, report.Level)
}

func TestAssessComplexity_DescriptionThresholds(t *testing.T) {
	th := DefaultComplexityThresholds()

	cases := []struct {
		length int
		want   ComplexityLevel
	}{
		{100, ComplexityLow},
		{th.DescriptionMedium, ComplexityMedium},
		{th.DescriptionHigh, ComplexityHigh},
		{th.DescriptionVeryHigh, ComplexityVeryHigh},
	}
	for _, tc := range cases {
		task := &Task{Description: strings.Repeat("x", tc.length)}
		report := AssessComplexity(task, th)
		assert.Equal(t, tc.want, report.Level, "description length %d", tc.length)
	}
}

func TestAssessComplexity_NotesMetric(t *testing.T) {
	th := DefaultComplexityThresholds()
	task := &Task{
		Description: "short",
		Notes:       strings.Repeat("n", th.NotesHigh),
	}

	report := AssessComplexity(task, th)
	assert.Equal(t, ComplexityHigh, report.Level)
	assert.True(t, report.Metrics.HasNotes)
}

func TestAssessComplexity_VeryLongDescriptionRecommendation(t *testing.T) {
	th := DefaultComplexityThresholds()
	task := &Task{Description: strings.Repeat("x", th.DescriptionVeryHigh+1)}

	report := AssessComplexity(task, th)

	found := false
	for _, rec := range report.Recommendations {
		if strings.Contains(rec, "description is very long") {
			found = true
		}
	}
	assert.True(t, found, "expected an extra recommendation for a very long description")
}
