package search

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocln/mcp-shrimp-task-manager/internal/domain"
	"github.com/quocln/mcp-shrimp-task-manager/internal/storage"
)

func fixture(name, description string, updatedAt time.Time) domain.Task {
	return domain.Task{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Status:      domain.StatusPending,
		CreatedAt:   updatedAt,
		UpdatedAt:   updatedAt,
	}
}

func completedFixture(name string, completedAt time.Time) domain.Task {
	t := fixture(name, "finished work", completedAt)
	t.Status = domain.StatusCompleted
	t.Summary = "done"
	t.CompletedAt = &completedAt
	return t
}

func newTestEngine(t *testing.T, tasks ...domain.Task) (*Engine, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.ReplaceAll(tasks, "seed"))
	return NewEngine(store, 0, 0, nil), store
}

func TestSearch_KeywordsMustAllMatch(t *testing.T) {
	engine, _ := newTestEngine(t,
		fixture("build parser", "tokenizer for the config language", time.Now()),
		fixture("build server", "http listener", time.Now()),
	)

	result, err := engine.Search("build tokenizer", false, 1, 0)
	require.NoError(t, err)
	require.Len(t, result.Tasks, 1)
	assert.Equal(t, "build parser", result.Tasks[0].Name)
}

func TestSearch_CaseInsensitiveAcrossFields(t *testing.T) {
	task := fixture("deploy", "release to production", time.Now())
	task.Notes = "Remember the FEATURE flag"
	engine, _ := newTestEngine(t, task)

	result, err := engine.Search("feature", false, 1, 0)
	require.NoError(t, err)
	assert.Len(t, result.Tasks, 1)
}

func TestSearch_EmptyQueryMatchesAll(t *testing.T) {
	engine, _ := newTestEngine(t,
		fixture("a", "x", time.Now()),
		fixture("b", "y", time.Now()),
	)

	result, err := engine.Search("", false, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Pagination.TotalResults)
}

func TestSearch_ByID(t *testing.T) {
	task := fixture("target", "findable by id", time.Now())
	engine, _ := newTestEngine(t, task, fixture("other", "noise", time.Now()))

	result, err := engine.Search(task.ID, true, 1, 0)
	require.NoError(t, err)
	require.Len(t, result.Tasks, 1)
	assert.Equal(t, task.ID, result.Tasks[0].ID)

	result, err = engine.Search(uuid.New().String(), true, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, result.Tasks)
}

func TestSearch_IncludesArchivesWithLivePrecedence(t *testing.T) {
	archivedOnly := completedFixture("archived migration", time.Now().Add(-time.Hour))
	shared := completedFixture("shared task", time.Now().Add(-2*time.Hour))

	store := storage.NewMemoryStore()
	_, err := store.ArchiveCompleted([]domain.Task{archivedOnly, shared})
	require.NoError(t, err)

	liveCopy := shared
	liveCopy.Summary = "live version"
	require.NoError(t, store.ReplaceAll([]domain.Task{liveCopy}, "seed"))

	engine := NewEngine(store, 0, 0, nil)
	result, err := engine.Search("", false, 1, 0)
	require.NoError(t, err)
	require.Len(t, result.Tasks, 2)

	for _, task := range result.Tasks {
		if task.ID == shared.ID {
			assert.Equal(t, "live version", task.Summary, "live copy wins over its archived twin")
		}
	}
}

func TestSearch_RecencyOrdering(t *testing.T) {
	base := time.Now()
	oldCompleted := completedFixture("old done", base.Add(-3*time.Hour))
	newCompleted := completedFixture("new done", base.Add(-time.Hour))
	pending := fixture("still pending", "recent edit", base)

	engine, _ := newTestEngine(t, pending, oldCompleted, newCompleted)

	result, err := engine.Search("", false, 1, 0)
	require.NoError(t, err)
	require.Len(t, result.Tasks, 3)
	assert.Equal(t, "new done", result.Tasks[0].Name)
	assert.Equal(t, "old done", result.Tasks[1].Name)
	assert.Equal(t, "still pending", result.Tasks[2].Name)
}

func TestSearch_Pagination(t *testing.T) {
	tasks := make([]domain.Task, 0, 7)
	for i := 0; i < 7; i++ {
		tasks = append(tasks, fixture(fmt.Sprintf("task %d", i), "filler", time.Now().Add(time.Duration(i)*time.Minute)))
	}
	engine, _ := newTestEngine(t, tasks...)

	t.Run("first page", func(t *testing.T) {
		result, err := engine.Search("", false, 1, 5)
		require.NoError(t, err)
		assert.Len(t, result.Tasks, 5)
		assert.Equal(t, Pagination{Page: 1, TotalPages: 2, TotalResults: 7, HasMore: true}, result.Pagination)
	})

	t.Run("last page is partial", func(t *testing.T) {
		result, err := engine.Search("", false, 2, 5)
		require.NoError(t, err)
		assert.Len(t, result.Tasks, 2)
		assert.False(t, result.Pagination.HasMore)
	})

	t.Run("page clamped low", func(t *testing.T) {
		result, err := engine.Search("", false, 0, 5)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Pagination.Page)
	})

	t.Run("page clamped high", func(t *testing.T) {
		result, err := engine.Search("", false, 99, 5)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Pagination.Page)
		assert.Len(t, result.Tasks, 2)
	})

	t.Run("no matches still reports one page", func(t *testing.T) {
		result, err := engine.Search("zzz-nothing", false, 1, 5)
		require.NoError(t, err)
		assert.Empty(t, result.Tasks)
		assert.Equal(t, Pagination{Page: 1, TotalPages: 1, TotalResults: 0, HasMore: false}, result.Pagination)
	})
}

func TestSearch_ArchiveScanLimit(t *testing.T) {
	store := storage.NewMemoryStore()
	older := completedFixture("beyond the scan window", time.Now().Add(-2*time.Hour))
	newer := completedFixture("inside the scan window", time.Now().Add(-time.Hour))

	_, err := store.ArchiveCompleted([]domain.Task{older})
	require.NoError(t, err)
	_, err = store.ArchiveCompleted([]domain.Task{newer})
	require.NoError(t, err)

	engine := NewEngine(store, 0, 1, nil)
	result, err := engine.Search("window", false, 1, 0)
	require.NoError(t, err)
	require.Len(t, result.Tasks, 1)
	assert.Equal(t, "inside the scan window", result.Tasks[0].Name)
}
