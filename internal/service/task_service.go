package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quocln/mcp-shrimp-task-manager/internal/domain"
)

// TaskStore is the persistence contract the service mutates through.
type TaskStore interface {
	LoadAll() ([]domain.Task, error)
	ReplaceAll(tasks []domain.Task, changeDescription string) error
	ArchiveCompleted(tasks []domain.Task) (string, error)
}

// Change describes one successful mutation of the collection, delivered to
// registered observers.
type Change struct {
	Operation string
	Affected  int
}

// ClearResult reports the outcome of ClearAll.
type ClearResult struct {
	ArchiveID              string `json:"archiveId"`
	RemovedCount           int    `json:"removedCount"`
	RetainedCompletedCount int    `json:"retainedCompletedCount"`
}

// TaskUpdate is a partial field update. Nil pointers leave the field alone.
type TaskUpdate struct {
	Name                 *string
	Description          *string
	Notes                *string
	ImplementationGuide  *string
	VerificationCriteria *string
	Summary              *string
	AnalysisResult       *string
	Agent                *string
	Dependencies         *[]string
	RelatedFiles         *[]domain.RelatedFile
}

// TaskService owns the task collection's semantics: reconciliation, the
// status state machine, dependency gating and deletion rules. Every mutation
// is a serialized read-modify-write over the whole snapshot.
type TaskService struct {
	store      TaskStore
	thresholds domain.ComplexityThresholds
	logger     *zap.Logger

	// writeMu serializes mutations; reads go straight to the store.
	writeMu sync.Mutex

	obsMu     sync.RWMutex
	observers []func(Change)
}

func NewTaskService(store TaskStore, thresholds domain.ComplexityThresholds, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		store:      store,
		thresholds: thresholds,
		logger:     logger,
	}
}

// OnChange registers an observer invoked after every successful mutation.
// Observers run synchronously on the mutating goroutine and must be quick.
func (s *TaskService) OnChange(fn func(Change)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *TaskService) notify(operation string, affected int) {
	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()

	change := Change{Operation: operation, Affected: affected}
	for _, fn := range observers {
		fn(change)
	}
}

// List returns the full ordered collection.
func (s *TaskService) List() ([]domain.Task, error) {
	return s.store.LoadAll()
}

// Get returns the task with the given id.
func (s *TaskService) Get(id string) (*domain.Task, error) {
	tasks, err := s.store.LoadAll()
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].ID == id {
			t := tasks[i]
			return &t, nil
		}
	}
	return nil, domain.NewNotFoundError(id)
}

// CanExecute reports whether the task could move to in_progress right now,
// along with the ids of incomplete dependencies gating it. A completed task
// is never executable.
func (s *TaskService) CanExecute(id string) (bool, []string, error) {
	tasks, err := s.store.LoadAll()
	if err != nil {
		return false, nil, err
	}

	var task *domain.Task
	byID := make(map[string]*domain.Task, len(tasks))
	for i := range tasks {
		byID[tasks[i].ID] = &tasks[i]
		if tasks[i].ID == id {
			task = &tasks[i]
		}
	}
	if task == nil {
		return false, nil, domain.NewNotFoundError(id)
	}
	if task.Status == domain.StatusCompleted {
		return false, nil, nil
	}

	blocking := make([]string, 0)
	for _, dep := range task.Dependencies {
		depTask, ok := byID[dep]
		if !ok || depTask.Status != domain.StatusCompleted {
			blocking = append(blocking, dep)
		}
	}
	return len(blocking) == 0, blocking, nil
}

// AssessComplexity rates the task's structural complexity. Advisory only.
func (s *TaskService) AssessComplexity(id string) (*domain.ComplexityReport, error) {
	task, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return domain.AssessComplexity(task, s.thresholds), nil
}

// Reconcile computes the new authoritative collection from the existing one
// and a batch of drafts, then persists it. It returns the tasks created or
// updated by this batch, in draft order.
func (s *TaskService) Reconcile(drafts []domain.TaskDraft, mode domain.UpdateMode, globalAnalysis string) ([]domain.Task, error) {
	if !domain.ValidUpdateMode(mode) {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown update mode %q", mode))
	}
	if err := domain.ValidateDrafts(drafts); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.store.LoadAll()
	if err != nil {
		return nil, err
	}

	var merged []domain.Task
	archiveID := ""

	switch mode {
	case domain.ModeAppend, domain.ModeSelective:
		merged = append(merged, existing...)
	case domain.ModeOverwrite:
		for _, t := range existing {
			if t.Status == domain.StatusCompleted {
				merged = append(merged, t)
			}
		}
	case domain.ModeClearAll:
		archiveID, err = s.store.ArchiveCompleted(existing)
		if err != nil {
			return nil, err
		}
	}

	// Index of non-completed retained tasks for selective name matching.
	nameIdx := make(map[string]int)
	if mode == domain.ModeSelective {
		for i, t := range merged {
			if t.Status != domain.StatusCompleted {
				nameIdx[t.Name] = i
			}
		}
	}

	// First pass: place every draft in the merged collection and remember
	// which slot it owns, so dependency resolution can see the whole batch.
	touched := make([]int, 0, len(drafts))
	now := time.Now()
	for _, draft := range drafts {
		if mode == domain.ModeSelective {
			if i, ok := nameIdx[draft.Name]; ok {
				t := &merged[i]
				t.Description = draft.Description
				t.Notes = draft.Notes
				t.ImplementationGuide = draft.ImplementationGuide
				t.VerificationCriteria = draft.VerificationCriteria
				t.Agent = draft.Agent
				t.RelatedFiles = draft.RelatedFiles
				t.UpdatedAt = now
				touched = append(touched, i)
				continue
			}
		}
		merged = append(merged, *domain.NewTask(draft))
		touched = append(touched, len(merged)-1)
	}

	// Second pass: resolve declared dependencies against retained tasks and
	// the whole batch, dropping references that resolve to nothing.
	nameToID := make(map[string]string, len(merged))
	idUniverse := make(map[string]struct{}, len(merged))
	for _, t := range merged {
		nameToID[t.Name] = t.ID
		idUniverse[t.ID] = struct{}{}
	}

	for di, draft := range drafts {
		task := &merged[touched[di]]
		task.Dependencies = s.resolveDependencies(task.Name, draft.Dependencies, nameToID, idUniverse)
		if globalAnalysis != "" {
			task.AnalysisResult = globalAnalysis
		}
	}

	message := fmt.Sprintf("reconcile %s: %d task(s) affected", mode, len(drafts))
	if mode == domain.ModeClearAll {
		message = fmt.Sprintf("reconcile %s: archived to %s, created %d task(s)", mode, archiveID, len(drafts))
	}
	if err := s.store.ReplaceAll(merged, message); err != nil {
		return nil, err
	}
	s.notify(string(mode), len(drafts))

	affected := make([]domain.Task, 0, len(touched))
	for _, i := range touched {
		affected = append(affected, merged[i])
	}
	return affected, nil
}

// resolveDependencies maps references to canonical ids and deduplicates
// while preserving declaration order. Unresolvable references are dropped
// with a warning, never an error.
func (s *TaskService) resolveDependencies(taskName string, refs []string, nameToID map[string]string, idUniverse map[string]struct{}) []string {
	resolved := make([]string, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		id, ok := ResolveDependency(ref, nameToID, idUniverse)
		if !ok {
			s.logger.Warn("dropping unresolvable dependency",
				zap.String("task", taskName),
				zap.String("reference", ref))
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		resolved = append(resolved, id)
	}
	return resolved
}

// UpdateFields applies a partial update. On a completed task only Summary
// and RelatedFiles may change; everything else is rejected.
func (s *TaskService) UpdateFields(id string, update TaskUpdate) (*domain.Task, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tasks, err := s.store.LoadAll()
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range tasks {
		if tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, domain.NewNotFoundError(id)
	}
	task := &tasks[idx]

	if task.Status == domain.StatusCompleted && restrictedUpdate(update) {
		return nil, domain.NewStateConflictError(
			fmt.Sprintf("task %q is completed; only summary and related files may change", task.Name))
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, domain.NewValidationError("task name is required")
		}
		for i := range tasks {
			if i != idx && tasks[i].Name == name {
				return nil, domain.NewValidationError(fmt.Sprintf("task name %q is already in use", name))
			}
		}
		task.Name = name
	}
	if update.Description != nil {
		if strings.TrimSpace(*update.Description) == "" {
			return nil, domain.NewValidationError(fmt.Sprintf("task %q requires a non-empty description", task.Name))
		}
		task.Description = *update.Description
	}
	if update.Notes != nil {
		task.Notes = *update.Notes
	}
	if update.ImplementationGuide != nil {
		task.ImplementationGuide = *update.ImplementationGuide
	}
	if update.VerificationCriteria != nil {
		task.VerificationCriteria = *update.VerificationCriteria
	}
	if update.Summary != nil {
		task.Summary = *update.Summary
	}
	if update.AnalysisResult != nil {
		task.AnalysisResult = *update.AnalysisResult
	}
	if update.Agent != nil {
		task.Agent = *update.Agent
	}
	if update.RelatedFiles != nil {
		for _, rf := range *update.RelatedFiles {
			if err := rf.Validate(); err != nil {
				return nil, err
			}
		}
		task.RelatedFiles = *update.RelatedFiles
	}
	if update.Dependencies != nil {
		nameToID := make(map[string]string, len(tasks))
		idUniverse := make(map[string]struct{}, len(tasks))
		for _, t := range tasks {
			nameToID[t.Name] = t.ID
			idUniverse[t.ID] = struct{}{}
		}
		task.Dependencies = s.resolveDependencies(task.Name, *update.Dependencies, nameToID, idUniverse)
	}

	task.UpdatedAt = time.Now()

	if err := s.store.ReplaceAll(tasks, fmt.Sprintf("update task %q", task.Name)); err != nil {
		return nil, err
	}
	s.notify("update", 1)

	out := *task
	return &out, nil
}

// restrictedUpdate reports whether the update touches anything beyond the
// fields writable on a completed task.
func restrictedUpdate(u TaskUpdate) bool {
	return u.Name != nil || u.Description != nil || u.Notes != nil ||
		u.ImplementationGuide != nil || u.VerificationCriteria != nil ||
		u.AnalysisResult != nil || u.Agent != nil || u.Dependencies != nil
}

// Transition moves a task to a new status, enforcing the legal transitions:
// pending to in_progress (dependencies permitting) and in_progress to
// completed (summary required). Transitioning to the current status is a
// no-op. Completion is irreversible.
func (s *TaskService) Transition(id string, newStatus domain.TaskStatus, summary string) (*domain.Task, error) {
	if !domain.ValidStatus(newStatus) {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown status %q", newStatus))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tasks, err := s.store.LoadAll()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Task, len(tasks))
	var task *domain.Task
	for i := range tasks {
		byID[tasks[i].ID] = &tasks[i]
		if tasks[i].ID == id {
			task = &tasks[i]
		}
	}
	if task == nil {
		return nil, domain.NewNotFoundError(id)
	}

	if task.Status == newStatus {
		out := *task
		return &out, nil
	}

	switch {
	case task.Status == domain.StatusCompleted:
		return nil, domain.NewStateConflictError(
			fmt.Sprintf("task %q is completed; completion cannot be reverted", task.Name))

	case newStatus == domain.StatusBlocked:
		return nil, domain.NewStateConflictError(
			"blocked is a derived classification, not an assignable status")

	case task.Status == domain.StatusPending && newStatus == domain.StatusInProgress:
		blocking := make([]string, 0)
		for _, dep := range task.Dependencies {
			depTask, ok := byID[dep]
			if !ok || depTask.Status != domain.StatusCompleted {
				blocking = append(blocking, dep)
			}
		}
		if len(blocking) > 0 {
			return nil, domain.NewStateConflictError(
				fmt.Sprintf("task %q has incomplete dependencies", task.Name), blocking...)
		}
		task.Status = domain.StatusInProgress

	case task.Status == domain.StatusInProgress && newStatus == domain.StatusCompleted:
		if strings.TrimSpace(summary) == "" {
			return nil, domain.NewValidationError(
				fmt.Sprintf("completing task %q requires a summary", task.Name))
		}
		now := time.Now()
		task.Status = domain.StatusCompleted
		task.Summary = summary
		task.CompletedAt = &now

	default:
		return nil, domain.NewStateConflictError(
			fmt.Sprintf("transition %s to %s is not permitted", task.Status, newStatus))
	}

	task.UpdatedAt = time.Now()

	if err := s.store.ReplaceAll(tasks, fmt.Sprintf("task %q: %s", task.Name, task.Status)); err != nil {
		return nil, err
	}
	s.notify("transition", 1)

	out := *task
	return &out, nil
}

// Delete removes a task. Completed tasks and tasks that other tasks depend
// on cannot be deleted; the rejection names the dependents.
func (s *TaskService) Delete(id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tasks, err := s.store.LoadAll()
	if err != nil {
		return err
	}

	idx := -1
	for i := range tasks {
		if tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.NewNotFoundError(id)
	}
	task := tasks[idx]

	if task.Status == domain.StatusCompleted {
		return domain.NewStateConflictError(
			fmt.Sprintf("task %q is completed and cannot be deleted", task.Name))
	}

	var dependents []string
	for i := range tasks {
		if i != idx && tasks[i].DependsOn(id) {
			dependents = append(dependents, tasks[i].Name)
		}
	}
	if len(dependents) > 0 {
		return domain.NewStateConflictError(
			fmt.Sprintf("task %q is a dependency of other tasks", task.Name), dependents...)
	}

	remaining := append(tasks[:idx:idx], tasks[idx+1:]...)
	if err := s.store.ReplaceAll(remaining, fmt.Sprintf("delete task %q", task.Name)); err != nil {
		return err
	}
	s.notify("delete", 1)
	return nil
}

// ClearAll archives completed tasks into a dated snapshot and resets the
// live collection to empty.
func (s *TaskService) ClearAll() (ClearResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tasks, err := s.store.LoadAll()
	if err != nil {
		return ClearResult{}, err
	}

	archiveID, err := s.store.ArchiveCompleted(tasks)
	if err != nil {
		return ClearResult{}, err
	}

	completed := 0
	for _, t := range tasks {
		if t.Status == domain.StatusCompleted {
			completed++
		}
	}

	message := fmt.Sprintf("clear all tasks: removed %d, archived %d completed to %s", len(tasks), completed, archiveID)
	if err := s.store.ReplaceAll([]domain.Task{}, message); err != nil {
		return ClearResult{}, err
	}
	s.notify("clearAll", len(tasks))

	return ClearResult{
		ArchiveID:              archiveID,
		RemovedCount:           len(tasks),
		RetainedCompletedCount: completed,
	}, nil
}
