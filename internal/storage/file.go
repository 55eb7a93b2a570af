package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quocln/mcp-shrimp-task-manager/internal/domain"
)

const (
	tasksFileName     = "tasks.json"
	changeLogFileName = "changelog.jsonl"
	memoryDirName     = "memory"

	archivePrefix = "tasks_memory_"
	archiveSuffix = ".json"
)

// snapshot is the on-disk shape of the task collection.
type snapshot struct {
	Tasks []domain.Task `json:"tasks"`
}

// FileStore owns the canonical snapshot file plus the archive directory of
// completed-task snapshots. Writes replace the whole collection atomically;
// the change log records a best-effort audit trail alongside.
type FileStore struct {
	dir     string
	mu      sync.RWMutex
	changes *ChangeLog
	logger  *zap.Logger
}

// NewFileStore prepares the data directory layout and opens the change log.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Join(dir, memoryDirName), 0755); err != nil {
		return nil, domain.NewStoreIOError("init", err)
	}

	changes, err := OpenChangeLog(filepath.Join(dir, changeLogFileName))
	if err != nil {
		// The trail is advisory; start a fresh chain rather than fail.
		logger.Warn("change log unreadable, continuing without history", zap.Error(err))
		changes = &ChangeLog{path: filepath.Join(dir, changeLogFileName)}
	}

	s := &FileStore{dir: dir, changes: changes, logger: logger}

	if _, err := os.Stat(s.SnapshotPath()); os.IsNotExist(err) {
		if err := s.saveJSON(s.SnapshotPath(), snapshot{Tasks: []domain.Task{}}); err != nil {
			return nil, domain.NewStoreIOError("init snapshot", err)
		}
	}

	return s, nil
}

// SnapshotPath is the canonical task collection file.
func (s *FileStore) SnapshotPath() string {
	return filepath.Join(s.dir, tasksFileName)
}

func (s *FileStore) memoryDir() string {
	return filepath.Join(s.dir, memoryDirName)
}

func (s *FileStore) saveJSON(path string, data interface{}) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	return os.Rename(tempPath, path)
}

func (s *FileStore) loadJSON(path string, target interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(target)
}

// LoadAll reads the full ordered task collection. A missing snapshot is the
// empty collection, never an error.
func (s *FileStore) LoadAll() ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap snapshot
	err := s.loadJSON(s.SnapshotPath(), &snap)
	if os.IsNotExist(err) {
		return []domain.Task{}, nil
	}
	if err != nil {
		return nil, domain.NewStoreIOError("read snapshot", err)
	}
	if snap.Tasks == nil {
		snap.Tasks = []domain.Task{}
	}
	return snap.Tasks, nil
}

// ReplaceAll atomically overwrites the snapshot with tasks in the given
// order, then appends one change-log entry. The log append runs after the
// snapshot write is durable and outside the store lock; its failure is
// logged and swallowed.
func (s *FileStore) ReplaceAll(tasks []domain.Task, changeDescription string) error {
	if tasks == nil {
		tasks = []domain.Task{}
	}

	s.mu.Lock()
	err := s.saveJSON(s.SnapshotPath(), snapshot{Tasks: tasks})
	s.mu.Unlock()
	if err != nil {
		return domain.NewStoreIOError("write snapshot", err)
	}

	if err := s.changes.Append(changeDescription); err != nil {
		s.logger.Warn("change log append failed",
			zap.String("message", changeDescription),
			zap.Error(err))
	}
	return nil
}

// ArchiveCompleted writes a read-only snapshot containing only the completed
// tasks among the given collection and returns its file name.
func (s *FileStore) ArchiveCompleted(tasks []domain.Task) (string, error) {
	completed := make([]domain.Task, 0)
	for _, t := range tasks {
		if t.Status == domain.StatusCompleted {
			completed = append(completed, t)
		}
	}

	name := archiveName(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	// Same-second archives get distinct names.
	path := filepath.Join(s.memoryDir(), name)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		name = strings.TrimSuffix(archiveName(time.Now()), archiveSuffix) + fmt.Sprintf("_%d", i) + archiveSuffix
		path = filepath.Join(s.memoryDir(), name)
	}

	if err := s.saveJSON(path, snapshot{Tasks: completed}); err != nil {
		return "", domain.NewStoreIOError("write archive", err)
	}
	return name, nil
}

func archiveName(t time.Time) string {
	return archivePrefix + t.Format("2006-01-02T15-04-05") + archiveSuffix
}

// ListArchives returns archive snapshot names, most recent first. The names
// embed a sortable timestamp, so lexical order is creation order.
func (s *FileStore) ListArchives() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.memoryDir())
	if err != nil {
		return nil, domain.NewStoreIOError("list archives", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// LoadArchive reads one archive snapshot by name.
func (s *FileStore) LoadArchive(name string) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap snapshot
	if err := s.loadJSON(filepath.Join(s.memoryDir(), name), &snap); err != nil {
		return nil, domain.NewStoreIOError("read archive "+name, err)
	}
	return snap.Tasks, nil
}

// ChangeLogEntries exposes the audit trail for inspection.
func (s *FileStore) ChangeLogEntries() ([]ChangeEntry, error) {
	return s.changes.Entries()
}
