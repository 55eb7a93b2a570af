package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/quocln/mcp-shrimp-task-manager/internal/domain"
)

// MemoryStore keeps the collection and archives in process memory. It backs
// tests and ephemeral sessions with the same contract as FileStore.
type MemoryStore struct {
	mu           sync.RWMutex
	tasks        []domain.Task
	archiveNames []string
	archives     map[string][]domain.Task
	changes      []ChangeEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:    []domain.Task{},
		archives: make(map[string][]domain.Task),
	}
}

func (ms *MemoryStore) LoadAll() ([]domain.Task, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]domain.Task, len(ms.tasks))
	copy(out, ms.tasks)
	return out, nil
}

func (ms *MemoryStore) ReplaceAll(tasks []domain.Task, changeDescription string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.tasks = make([]domain.Task, len(tasks))
	copy(ms.tasks, tasks)

	now := time.Now()
	prev := ""
	if len(ms.changes) > 0 {
		prev = ms.changes[len(ms.changes)-1].Hash
	}
	ms.changes = append(ms.changes, ChangeEntry{
		Timestamp: now,
		Message:   changeDescription,
		PrevHash:  prev,
		Hash:      entryHash(now, changeDescription, prev),
	})
	return nil
}

func (ms *MemoryStore) ArchiveCompleted(tasks []domain.Task) (string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	completed := make([]domain.Task, 0)
	for _, t := range tasks {
		if t.Status == domain.StatusCompleted {
			completed = append(completed, t)
		}
	}

	name := fmt.Sprintf("%s%s_%d%s", archivePrefix, time.Now().Format("2006-01-02T15-04-05"), len(ms.archiveNames), archiveSuffix)
	ms.archives[name] = completed
	// Most recent first, matching FileStore's lexical ordering guarantee.
	ms.archiveNames = append([]string{name}, ms.archiveNames...)
	return name, nil
}

func (ms *MemoryStore) ListArchives() ([]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]string, len(ms.archiveNames))
	copy(out, ms.archiveNames)
	return out, nil
}

func (ms *MemoryStore) LoadArchive(name string) ([]domain.Task, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	tasks, ok := ms.archives[name]
	if !ok {
		return nil, domain.NewStoreIOError("read archive "+name, fmt.Errorf("no such archive"))
	}
	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	return out, nil
}

// ChangeLogEntries returns the recorded audit trail.
func (ms *MemoryStore) ChangeLogEntries() ([]ChangeEntry, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]ChangeEntry, len(ms.changes))
	copy(out, ms.changes)
	return out, nil
}
