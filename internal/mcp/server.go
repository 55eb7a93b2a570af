package mcp

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/quocln/mcp-shrimp-task-manager/internal/domain"
	"github.com/quocln/mcp-shrimp-task-manager/internal/search"
	"github.com/quocln/mcp-shrimp-task-manager/internal/service"
)

// Server maps tool invocations onto the task service and search engine.
type Server struct {
	tasks    *service.TaskService
	searcher *search.Engine
	logger   *zap.Logger
	onClose  []func()
}

func NewServer(tasks *service.TaskService, searcher *search.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{tasks: tasks, searcher: searcher, logger: logger}
}

// OnShutdown registers cleanup run when the transport exits.
func (s *Server) OnShutdown(fn func()) {
	s.onClose = append(s.onClose, fn)
}

// Shutdown runs registered cleanup hooks.
func (s *Server) Shutdown() {
	for _, fn := range s.onClose {
		fn()
	}
}

// HandleCommand dispatches one tool call by name.
func (s *Server) HandleCommand(method string, params json.RawMessage) (interface{}, error) {
	s.logger.Debug("handling tool call", zap.String("tool", method))

	switch method {
	case "list_tasks":
		return s.handleListTasks(params)
	case "get_task_detail":
		return s.handleGetTaskDetail(params)
	case "query_task":
		return s.handleQueryTask(params)
	case "split_tasks":
		return s.handleSplitTasks(params)
	case "execute_task":
		return s.handleExecuteTask(params)
	case "verify_task":
		return s.handleVerifyTask(params)
	case "update_task":
		return s.handleUpdateTask(params)
	case "delete_task":
		return s.handleDeleteTask(params)
	case "clear_all_tasks":
		return s.handleClearAllTasks(params)
	default:
		return nil, fmt.Errorf("unknown tool: %s", method)
	}
}

type listTasksParams struct {
	Status string `json:"status,omitempty"`
}

func (s *Server) handleListTasks(params json.RawMessage) (interface{}, error) {
	var p listTasksParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
	}

	tasks, err := s.tasks.List()
	if err != nil {
		return nil, err
	}

	if p.Status != "" {
		status := domain.TaskStatus(p.Status)
		if !domain.ValidStatus(status) {
			return nil, domain.NewValidationError(fmt.Sprintf("unknown status %q", p.Status))
		}
		filtered := tasks[:0:0]
		for _, t := range tasks {
			if t.Status == status {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	return FormatTaskList(tasks), nil
}

type taskIDParams struct {
	TaskID string `json:"taskId"`
}

func (s *Server) handleGetTaskDetail(params json.RawMessage) (interface{}, error) {
	var p taskIDParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	task, err := s.tasks.Get(p.TaskID)
	if err != nil {
		return nil, err
	}
	return FormatTaskDetail(task), nil
}

type queryTaskParams struct {
	Query    string `json:"query"`
	IsID     bool   `json:"isId,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"pageSize,omitempty"`
}

func (s *Server) handleQueryTask(params json.RawMessage) (interface{}, error) {
	var p queryTaskParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	result, err := s.searcher.Search(p.Query, p.IsID, p.Page, p.PageSize)
	if err != nil {
		return nil, err
	}
	return FormatSearchResult(p.Query, result), nil
}

type splitTasksParams struct {
	UpdateMode           string             `json:"updateMode"`
	Tasks                []domain.TaskDraft `json:"tasks"`
	GlobalAnalysisResult string             `json:"globalAnalysisResult,omitempty"`
}

func (s *Server) handleSplitTasks(params json.RawMessage) (interface{}, error) {
	var p splitTasksParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if len(p.Tasks) == 0 {
		return nil, domain.NewValidationError("at least one task is required")
	}

	affected, err := s.tasks.Reconcile(p.Tasks, domain.UpdateMode(p.UpdateMode), p.GlobalAnalysisResult)
	if err != nil {
		return nil, err
	}
	return FormatReconcileResult(domain.UpdateMode(p.UpdateMode), affected), nil
}

func (s *Server) handleExecuteTask(params json.RawMessage) (interface{}, error) {
	var p taskIDParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	allowed, blocking, err := s.tasks.CanExecute(p.TaskID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		task, err := s.tasks.Get(p.TaskID)
		if err != nil {
			return nil, err
		}
		return FormatBlocked(task, blocking), nil
	}

	task, err := s.tasks.Transition(p.TaskID, domain.StatusInProgress, "")
	if err != nil {
		return nil, err
	}

	report, err := s.tasks.AssessComplexity(p.TaskID)
	if err != nil {
		return nil, err
	}
	return FormatExecution(task, report), nil
}

type verifyTaskParams struct {
	TaskID  string `json:"taskId"`
	Summary string `json:"summary"`
}

func (s *Server) handleVerifyTask(params json.RawMessage) (interface{}, error) {
	var p verifyTaskParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	task, err := s.tasks.Transition(p.TaskID, domain.StatusCompleted, p.Summary)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Task %q completed.\n\n%s", task.Name, task.Summary), nil
}

type updateTaskParams struct {
	TaskID               string                `json:"taskId"`
	Name                 *string               `json:"name,omitempty"`
	Description          *string               `json:"description,omitempty"`
	Notes                *string               `json:"notes,omitempty"`
	ImplementationGuide  *string               `json:"implementationGuide,omitempty"`
	VerificationCriteria *string               `json:"verificationCriteria,omitempty"`
	Summary              *string               `json:"summary,omitempty"`
	AnalysisResult       *string               `json:"analysisResult,omitempty"`
	Agent                *string               `json:"agent,omitempty"`
	Dependencies         *[]string             `json:"dependencies,omitempty"`
	RelatedFiles         *[]domain.RelatedFile `json:"relatedFiles,omitempty"`
}

func (s *Server) handleUpdateTask(params json.RawMessage) (interface{}, error) {
	var p updateTaskParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	task, err := s.tasks.UpdateFields(p.TaskID, service.TaskUpdate{
		Name:                 p.Name,
		Description:          p.Description,
		Notes:                p.Notes,
		ImplementationGuide:  p.ImplementationGuide,
		VerificationCriteria: p.VerificationCriteria,
		Summary:              p.Summary,
		AnalysisResult:       p.AnalysisResult,
		Agent:                p.Agent,
		Dependencies:         p.Dependencies,
		RelatedFiles:         p.RelatedFiles,
	})
	if err != nil {
		return nil, err
	}
	return FormatTaskDetail(task), nil
}

func (s *Server) handleDeleteTask(params json.RawMessage) (interface{}, error) {
	var p taskIDParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	if err := s.tasks.Delete(p.TaskID); err != nil {
		return nil, err
	}
	return map[string]string{"status": "success"}, nil
}

type clearAllParams struct {
	Confirm bool `json:"confirm"`
}

func (s *Server) handleClearAllTasks(params json.RawMessage) (interface{}, error) {
	var p clearAllParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
	}
	if !p.Confirm {
		return nil, domain.NewValidationError("clear_all_tasks requires confirm=true")
	}

	result, err := s.tasks.ClearAll()
	if err != nil {
		return nil, err
	}
	return result, nil
}
