package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocln/mcp-shrimp-task-manager/internal/domain"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	return store, dir
}

func makeTask(name string, status domain.TaskStatus) domain.Task {
	task := domain.NewTask(domain.TaskDraft{Name: name, Description: "description of " + name})
	task.Status = status
	if status == domain.StatusCompleted {
		now := time.Now()
		task.CompletedAt = &now
		task.Summary = "done"
	}
	return *task
}

func TestFileStore_LoadAllEmptyOnFirstAccess(t *testing.T) {
	store, dir := newTestStore(t)

	tasks, err := store.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, tasks)

	// The snapshot file is lazily created.
	_, err = os.Stat(filepath.Join(dir, "tasks.json"))
	assert.NoError(t, err)
}

func TestFileStore_ReplaceAllRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	tasks := []domain.Task{makeTask("first", domain.StatusPending), makeTask("second", domain.StatusInProgress)}
	require.NoError(t, store.ReplaceAll(tasks, "seed two tasks"))

	loaded, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "first", loaded[0].Name)
	assert.Equal(t, "second", loaded[1].Name)
	assert.Equal(t, tasks[0].ID, loaded[0].ID)
}

func TestFileStore_ReplaceAllAppendsChangeLog(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.ReplaceAll([]domain.Task{makeTask("a", domain.StatusPending)}, "first write"))
	require.NoError(t, store.ReplaceAll([]domain.Task{}, "second write"))

	entries, err := store.ChangeLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first write", entries[0].Message)
	assert.Equal(t, "second write", entries[1].Message)
	assert.Equal(t, entries[0].Hash, entries[1].PrevHash)
}

func TestFileStore_CorruptSnapshotIsStoreIOError(t *testing.T) {
	store, dir := newTestStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.json"), []byte("{not json"), 0644))

	_, err := store.LoadAll()
	require.Error(t, err)
	var ioErr *domain.StoreIOError
	assert.True(t, errors.As(err, &ioErr))
}

func TestFileStore_ArchiveCompleted(t *testing.T) {
	store, _ := newTestStore(t)

	tasks := []domain.Task{
		makeTask("done", domain.StatusCompleted),
		makeTask("open", domain.StatusPending),
	}

	name, err := store.ArchiveCompleted(tasks)
	require.NoError(t, err)
	assert.Contains(t, name, "tasks_memory_")

	archived, err := store.LoadArchive(name)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "done", archived[0].Name)
	assert.Equal(t, domain.StatusCompleted, archived[0].Status)

	names, err := store.ListArchives()
	require.NoError(t, err)
	assert.Equal(t, []string{name}, names)
}

func TestFileStore_ArchiveNamesDistinctWithinSameSecond(t *testing.T) {
	store, _ := newTestStore(t)

	first, err := store.ArchiveCompleted(nil)
	require.NoError(t, err)
	second, err := store.ArchiveCompleted(nil)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	names, err := store.ListArchives()
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func TestFileStore_ChangeLogFailureDoesNotBlockSnapshot(t *testing.T) {
	store, dir := newTestStore(t)

	// Replace the change log with a directory so appends fail.
	logPath := filepath.Join(dir, "changelog.jsonl")
	require.NoError(t, os.MkdirAll(logPath, 0755))

	err := store.ReplaceAll([]domain.Task{makeTask("a", domain.StatusPending)}, "write with broken log")
	assert.NoError(t, err)

	loaded, err := store.LoadAll()
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestMemoryStore_ContractParity(t *testing.T) {
	store := NewMemoryStore()

	tasks, err := store.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, tasks)

	require.NoError(t, store.ReplaceAll([]domain.Task{makeTask("x", domain.StatusCompleted)}, "seed"))

	loaded, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	name, err := store.ArchiveCompleted(loaded)
	require.NoError(t, err)

	archived, err := store.LoadArchive(name)
	require.NoError(t, err)
	assert.Len(t, archived, 1)

	names, err := store.ListArchives()
	require.NoError(t, err)
	assert.Equal(t, []string{name}, names)

	entries, err := store.ChangeLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
