package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
)

// ValidStatus reports whether s is one of the recognized task statuses.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// UpdateMode selects how a batch of drafts is reconciled against the
// existing collection.
type UpdateMode string

const (
	ModeAppend    UpdateMode = "append"
	ModeOverwrite UpdateMode = "overwrite"
	ModeSelective UpdateMode = "selective"
	ModeClearAll  UpdateMode = "clearAllTasks"
)

func ValidUpdateMode(m UpdateMode) bool {
	switch m {
	case ModeAppend, ModeOverwrite, ModeSelective, ModeClearAll:
		return true
	}
	return false
}

type RelatedFileType string

const (
	FileToModify   RelatedFileType = "TO_MODIFY"
	FileReference  RelatedFileType = "REFERENCE"
	FileCreate     RelatedFileType = "CREATE"
	FileDependency RelatedFileType = "DEPENDENCY"
	FileOther      RelatedFileType = "OTHER"
)

func ValidRelatedFileType(ft RelatedFileType) bool {
	switch ft {
	case FileToModify, FileReference, FileCreate, FileDependency, FileOther:
		return true
	}
	return false
}

// RelatedFile links a task to a file it touches or consults. LineStart and
// LineEnd must both be present or both absent.
type RelatedFile struct {
	Path        string          `json:"path"`
	Type        RelatedFileType `json:"type"`
	Description string          `json:"description,omitempty"`
	LineStart   *int            `json:"lineStart,omitempty"`
	LineEnd     *int            `json:"lineEnd,omitempty"`
}

// Validate checks the relation kind and the line-range pair invariant.
func (rf RelatedFile) Validate() error {
	if strings.TrimSpace(rf.Path) == "" {
		return NewValidationError("related file path is required")
	}
	if !ValidRelatedFileType(rf.Type) {
		return NewValidationError(fmt.Sprintf("related file %s has unknown relation type %q", rf.Path, rf.Type))
	}
	if (rf.LineStart == nil) != (rf.LineEnd == nil) {
		return NewValidationError(fmt.Sprintf("related file %s must set both lineStart and lineEnd or neither", rf.Path))
	}
	if rf.LineStart != nil && *rf.LineStart > *rf.LineEnd {
		return NewValidationError(fmt.Sprintf("related file %s has lineStart %d greater than lineEnd %d", rf.Path, *rf.LineStart, *rf.LineEnd))
	}
	return nil
}

// Task is a unit of work in the dependency graph. ID is immutable once
// assigned; CreatedAt and UpdatedAt are owned by the store, never by callers.
type Task struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Notes        string     `json:"notes,omitempty"`
	Status       TaskStatus `json:"status"`
	Dependencies []string   `json:"dependencies"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Summary      string     `json:"summary,omitempty"`

	ImplementationGuide  string        `json:"implementationGuide,omitempty"`
	VerificationCriteria string        `json:"verificationCriteria,omitempty"`
	AnalysisResult       string        `json:"analysisResult,omitempty"`
	Agent                string        `json:"agent,omitempty"`
	RelatedFiles         []RelatedFile `json:"relatedFiles,omitempty"`
}

// NewTask builds a pending task from a draft, assigning a fresh id and
// timestamps. Dependencies are left empty; the reconciler resolves and
// attaches them afterwards.
func NewTask(draft TaskDraft) *Task {
	now := time.Now()
	return &Task{
		ID:                   uuid.New().String(),
		Name:                 draft.Name,
		Description:          draft.Description,
		Notes:                draft.Notes,
		Status:               StatusPending,
		Dependencies:         make([]string, 0),
		CreatedAt:            now,
		UpdatedAt:            now,
		ImplementationGuide:  draft.ImplementationGuide,
		VerificationCriteria: draft.VerificationCriteria,
		Agent:                draft.Agent,
		RelatedFiles:         draft.RelatedFiles,
	}
}

// TaskDraft is an incoming task description submitted by a caller. Declared
// dependencies may reference other tasks by id or by name.
type TaskDraft struct {
	Name                 string        `json:"name"`
	Description          string        `json:"description"`
	Notes                string        `json:"notes,omitempty"`
	Dependencies         []string      `json:"dependencies,omitempty"`
	ImplementationGuide  string        `json:"implementationGuide,omitempty"`
	VerificationCriteria string        `json:"verificationCriteria,omitempty"`
	Agent                string        `json:"agent,omitempty"`
	RelatedFiles         []RelatedFile `json:"relatedFiles,omitempty"`
}

// Validate checks the draft's required fields and related-file records.
func (d TaskDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return NewValidationError("task name is required")
	}
	if strings.TrimSpace(d.Description) == "" {
		return NewValidationError(fmt.Sprintf("task %q requires a non-empty description", d.Name))
	}
	for _, rf := range d.RelatedFiles {
		if err := rf.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDrafts validates each draft and rejects duplicate names within the
// batch. Name uniqueness against pre-existing tasks is deliberately not
// checked; selective reconciliation updates by name.
func ValidateDrafts(drafts []TaskDraft) error {
	seen := make(map[string]bool, len(drafts))
	for _, d := range drafts {
		if err := d.Validate(); err != nil {
			return err
		}
		if seen[d.Name] {
			return NewValidationError(fmt.Sprintf("duplicate task name %q in batch", d.Name))
		}
		seen[d.Name] = true
	}
	return nil
}

// DependsOn reports whether the task's dependency list contains id.
func (t *Task) DependsOn(id string) bool {
	for _, dep := range t.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}
