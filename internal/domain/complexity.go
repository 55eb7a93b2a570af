package domain

// ComplexityLevel is a qualitative rating derived from structural metrics.
type ComplexityLevel string

const (
	ComplexityLow      ComplexityLevel = "low"
	ComplexityMedium   ComplexityLevel = "medium"
	ComplexityHigh     ComplexityLevel = "high"
	ComplexityVeryHigh ComplexityLevel = "very_high"
)

var levelRank = map[ComplexityLevel]int{
	ComplexityLow:      0,
	ComplexityMedium:   1,
	ComplexityHigh:     2,
	ComplexityVeryHigh: 3,
}

// ComplexityThresholds holds the per-metric boundaries for the medium, high
// and very-high ratings. Each metric is rated independently; the task's
// overall level is the maximum across metrics.
type ComplexityThresholds struct {
	DescriptionMedium   int `yaml:"descriptionMedium"`
	DescriptionHigh     int `yaml:"descriptionHigh"`
	DescriptionVeryHigh int `yaml:"descriptionVeryHigh"`

	DependenciesMedium   int `yaml:"dependenciesMedium"`
	DependenciesHigh     int `yaml:"dependenciesHigh"`
	DependenciesVeryHigh int `yaml:"dependenciesVeryHigh"`

	NotesMedium   int `yaml:"notesMedium"`
	NotesHigh     int `yaml:"notesHigh"`
	NotesVeryHigh int `yaml:"notesVeryHigh"`
}

// DefaultComplexityThresholds mirrors the ratings the planning workflow was
// tuned against.
func DefaultComplexityThresholds() ComplexityThresholds {
	return ComplexityThresholds{
		DescriptionMedium:    500,
		DescriptionHigh:      1000,
		DescriptionVeryHigh:  2000,
		DependenciesMedium:   2,
		DependenciesHigh:     5,
		DependenciesVeryHigh: 10,
		NotesMedium:          200,
		NotesHigh:            500,
		NotesVeryHigh:        1000,
	}
}

// ComplexityMetrics are the raw structural measurements behind a rating.
type ComplexityMetrics struct {
	DescriptionLength int  `json:"descriptionLength"`
	DependenciesCount int  `json:"dependenciesCount"`
	NotesLength       int  `json:"notesLength"`
	HasNotes          bool `json:"hasNotes"`
}

// ComplexityReport is advisory output; it never blocks any operation.
type ComplexityReport struct {
	Level           ComplexityLevel   `json:"level"`
	Metrics         ComplexityMetrics `json:"metrics"`
	Recommendations []string          `json:"recommendations"`
}

func rate(value, medium, high, veryHigh int) ComplexityLevel {
	switch {
	case value >= veryHigh:
		return ComplexityVeryHigh
	case value >= high:
		return ComplexityHigh
	case value >= medium:
		return ComplexityMedium
	}
	return ComplexityLow
}

func maxLevel(levels ...ComplexityLevel) ComplexityLevel {
	out := ComplexityLow
	for _, l := range levels {
		if levelRank[l] > levelRank[out] {
			out = l
		}
	}
	return out
}

// AssessComplexity rates a task against the given thresholds.
func AssessComplexity(task *Task, th ComplexityThresholds) *ComplexityReport {
	metrics := ComplexityMetrics{
		DescriptionLength: len(task.Description),
		DependenciesCount: len(task.Dependencies),
		NotesLength:       len(task.Notes),
		HasNotes:          task.Notes != "",
	}

	level := maxLevel(
		rate(metrics.DescriptionLength, th.DescriptionMedium, th.DescriptionHigh, th.DescriptionVeryHigh),
		rate(metrics.DependenciesCount, th.DependenciesMedium, th.DependenciesHigh, th.DependenciesVeryHigh),
		rate(metrics.NotesLength, th.NotesMedium, th.NotesHigh, th.NotesVeryHigh),
	)

	return &ComplexityReport{
		Level:           level,
		Metrics:         metrics,
		Recommendations: recommendations(level, metrics, th),
	}
}

func recommendations(level ComplexityLevel, m ComplexityMetrics, th ComplexityThresholds) []string {
	var recs []string

	switch level {
	case ComplexityLow:
		recs = append(recs, "This task is straightforward and can be executed directly.")
	case ComplexityMedium:
		recs = append(recs,
			"Outline the implementation steps before starting.",
			"Record intermediate findings in the task notes.")
	case ComplexityHigh:
		recs = append(recs,
			"Consider splitting this task into smaller subtasks.",
			"Define clear verification criteria before starting.",
			"Check in progress against the implementation guide regularly.")
	case ComplexityVeryHigh:
		recs = append(recs,
			"Strongly consider splitting this task before execution.",
			"Establish milestones and verify each one independently.",
			"Document assumptions and decisions as you go; a task this large rarely survives contact unchanged.")
	}

	if m.DescriptionLength >= th.DescriptionVeryHigh {
		recs = append(recs, "The description is very long; extract a concise implementation guide so the goal stays visible.")
	}
	if m.DependenciesCount >= th.DependenciesHigh {
		recs = append(recs, "This task waits on many dependencies; confirm they are genuinely required before blocking on them.")
	}
	if !m.HasNotes && level != ComplexityLow {
		recs = append(recs, "No notes are attached; capture context that exists outside the description.")
	}

	return recs
}
