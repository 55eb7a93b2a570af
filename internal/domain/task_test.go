package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	draft := TaskDraft{
		Name:        "Build login form",
		Description: "Render the login form with validation",
		Notes:       "Reuse the form component",
	}

	task := NewTask(draft)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, draft.Name, task.Name)
	assert.Equal(t, draft.Description, task.Description)
	assert.Equal(t, draft.Notes, task.Notes)
	assert.Equal(t, StatusPending, task.Status)
	assert.NotNil(t, task.Dependencies)
	assert.Empty(t, task.Dependencies)
	assert.NotZero(t, task.CreatedAt)
	assert.NotZero(t, task.UpdatedAt)
	assert.Nil(t, task.CompletedAt)
}

func TestNewTask_UniqueIDs(t *testing.T) {
	draft := TaskDraft{Name: "a", Description: "b"}
	first := NewTask(draft)
	second := NewTask(draft)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestTaskDraftValidate(t *testing.T) {
	valid := TaskDraft{Name: "Task", Description: "Do the thing"}
	assert.NoError(t, valid.Validate())

	missingName := TaskDraft{Description: "Do the thing"}
	err := missingName.Validate()
	require.Error(t, err)
	assert.IsType(t, &ValidationError{}, err)

	missingDescription := TaskDraft{Name: "Task", Description: "   "}
	assert.Error(t, missingDescription.Validate())
}

func TestValidateDrafts_DuplicateNames(t *testing.T) {
	drafts := []TaskDraft{
		{Name: "X", Description: "first"},
		{Name: "X", Description: "second"},
	}
	err := ValidateDrafts(drafts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestRelatedFileValidate(t *testing.T) {
	start, end := 10, 20

	valid := RelatedFile{Path: "main.go", Type: FileToModify, LineStart: &start, LineEnd: &end}
	assert.NoError(t, valid.Validate())

	noRange := RelatedFile{Path: "main.go", Type: FileReference}
	assert.NoError(t, noRange.Validate())

	halfRange := RelatedFile{Path: "main.go", Type: FileToModify, LineStart: &start}
	assert.Error(t, halfRange.Validate())

	inverted := RelatedFile{Path: "main.go", Type: FileToModify, LineStart: &end, LineEnd: &start}
	assert.Error(t, inverted.Validate())

	badType := RelatedFile{Path: "main.go", Type: RelatedFileType("WEIRD")}
	assert.Error(t, badType.Validate())
}

func TestValidStatus(t *testing.T) {
	for _, status := range []TaskStatus{StatusPending, StatusInProgress, StatusCompleted, StatusBlocked} {
		assert.True(t, ValidStatus(status))
	}
	assert.False(t, ValidStatus(TaskStatus("done")))
}

func TestValidUpdateMode(t *testing.T) {
	for _, mode := range []UpdateMode{ModeAppend, ModeOverwrite, ModeSelective, ModeClearAll} {
		assert.True(t, ValidUpdateMode(mode))
	}
	assert.False(t, ValidUpdateMode(UpdateMode("merge")))
}

func TestDependsOn(t *testing.T) {
	task := Task{Dependencies: []string{"a", "b"}}
	assert.True(t, task.DependsOn("a"))
	assert.False(t, task.DependsOn("c"))
}
