package mcp

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/quocln/mcp-shrimp-task-manager/internal/domain"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id,omitempty"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error.
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Standard JSON-RPC error codes.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// Transport speaks JSON-RPC 2.0 over a line-delimited stream, stdio in
// practice.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer
	server *Server
	logger *zap.Logger
}

func NewTransport(r io.Reader, w io.Writer, server *Server, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		reader: bufio.NewReader(r),
		writer: w,
		server: server,
		logger: logger,
	}
}

// Start runs the request loop until the client disconnects.
func (t *Transport) Start() error {
	defer t.server.Shutdown()

	for {
		line, err := t.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				t.logger.Info("client disconnected")
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}

		response := t.processRequest(line)
		if response == nil {
			continue
		}
		if err := t.sendResponse(response); err != nil {
			return fmt.Errorf("send response: %w", err)
		}
	}
}

func (t *Transport) processRequest(data []byte) (resp *JSONRPCResponse) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic recovered in request handler", zap.Any("panic", r))
			resp = &JSONRPCResponse{
				JSONRPC: "2.0",
				Error:   &JSONRPCError{Code: InternalError, Message: "internal server error"},
			}
		}
	}()

	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			Error:   &JSONRPCError{Code: ParseError, Message: "parse error", Data: err.Error()},
		}
	}
	if req.JSONRPC != "2.0" {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &JSONRPCError{Code: InvalidRequest, Message: "JSON-RPC 2.0 required"},
		}
	}

	switch req.Method {
	case "initialize":
		return t.handleInitialize(req)
	case "initialized", "notifications/initialized":
		return nil
	case "shutdown":
		return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID}
	case "tools/list":
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{"tools": toolDefinitions()},
		}
	case "tools/call":
		return t.handleToolCall(req)
	default:
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &JSONRPCError{Code: MethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)},
		}
	}
}

func (t *Transport) handleInitialize(req JSONRPCRequest) *JSONRPCResponse {
	result := map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{"listChanged": false},
		},
		"serverInfo": map[string]interface{}{
			"name":    "shrimp-task-manager",
			"version": "1.0.0",
		},
	}
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (t *Transport) handleToolCall(req JSONRPCRequest) *JSONRPCResponse {
	type toolCallParams struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments,omitempty"`
	}

	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &JSONRPCError{Code: InvalidParams, Message: "invalid params", Data: err.Error()},
		}
	}

	var argsJSON json.RawMessage
	if params.Arguments != nil {
		argsJSON, _ = json.Marshal(params.Arguments)
	}

	result, err := t.server.HandleCommand(params.Name, argsJSON)
	if err != nil {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &JSONRPCError{Code: errorCode(err), Message: err.Error()},
		}
	}

	var textContent string
	if str, ok := result.(string); ok {
		textContent = str
	} else {
		data, err := json.Marshal(result)
		if err != nil {
			return &JSONRPCResponse{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error:   &JSONRPCError{Code: InternalError, Message: "failed to serialize result", Data: err.Error()},
			}
		}
		textContent = string(data)
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": textContent},
			},
		},
	}
}

// errorCode maps the domain error taxonomy onto JSON-RPC codes so a client
// can tell a bad request from a conflict.
func errorCode(err error) int {
	var validation *domain.ValidationError
	var notFound *domain.NotFoundError
	var conflict *domain.StateConflictError
	switch {
	case errors.As(err, &validation):
		return InvalidParams
	case errors.As(err, &notFound):
		return InvalidParams
	case errors.As(err, &conflict):
		return InvalidRequest
	}
	return InternalError
}

func (t *Transport) sendResponse(response *JSONRPCResponse) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	_, err = t.writer.Write(append(data, '\n'))
	return err
}

func toolDefinitions() []map[string]interface{} {
	taskIDSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"taskId": map[string]interface{}{"type": "string", "description": "Task ID"},
		},
		"required": []string{"taskId"},
	}

	draftSchema := map[string]interface{}{
		"type":     "object",
		"required": []string{"name", "description"},
		"properties": map[string]interface{}{
			"name":                 map[string]interface{}{"type": "string", "description": "Short task name, unique within the batch"},
			"description":          map[string]interface{}{"type": "string", "description": "What needs to be done"},
			"notes":                map[string]interface{}{"type": "string"},
			"dependencies":         map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Task ids or names this task depends on"},
			"implementationGuide":  map[string]interface{}{"type": "string"},
			"verificationCriteria": map[string]interface{}{"type": "string"},
			"agent":                map[string]interface{}{"type": "string"},
			"relatedFiles": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":     "object",
					"required": []string{"path", "type"},
					"properties": map[string]interface{}{
						"path":        map[string]interface{}{"type": "string"},
						"type":        map[string]interface{}{"type": "string", "enum": []string{"TO_MODIFY", "REFERENCE", "CREATE", "DEPENDENCY", "OTHER"}},
						"description": map[string]interface{}{"type": "string"},
						"lineStart":   map[string]interface{}{"type": "integer"},
						"lineEnd":     map[string]interface{}{"type": "integer"},
					},
				},
			},
		},
	}

	return []map[string]interface{}{
		{
			"name":        "list_tasks",
			"description": "List all tasks, optionally filtered by status",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"status": map[string]interface{}{"type": "string", "enum": []string{"pending", "in_progress", "completed"}},
				},
				"additionalProperties": false,
			},
		},
		{
			"name":        "get_task_detail",
			"description": "Get the full detail of one task",
			"inputSchema": taskIDSchema,
		},
		{
			"name":        "query_task",
			"description": "Search live and archived tasks by keywords or id",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query":    map[string]interface{}{"type": "string", "description": "Keywords, or an exact id with isId"},
					"isId":     map[string]interface{}{"type": "boolean"},
					"page":     map[string]interface{}{"type": "integer"},
					"pageSize": map[string]interface{}{"type": "integer"},
				},
				"required": []string{"query"},
			},
		},
		{
			"name":        "split_tasks",
			"description": "Create or update a batch of tasks with an update mode",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"updateMode":           map[string]interface{}{"type": "string", "enum": []string{"append", "overwrite", "selective", "clearAllTasks"}},
					"tasks":                map[string]interface{}{"type": "array", "items": draftSchema},
					"globalAnalysisResult": map[string]interface{}{"type": "string"},
				},
				"required": []string{"updateMode", "tasks"},
			},
		},
		{
			"name":        "execute_task",
			"description": "Start a task if its dependencies are complete; reports its complexity",
			"inputSchema": taskIDSchema,
		},
		{
			"name":        "verify_task",
			"description": "Complete an in-progress task with a summary",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"taskId":  map[string]interface{}{"type": "string"},
					"summary": map[string]interface{}{"type": "string", "description": "Non-empty completion summary"},
				},
				"required": []string{"taskId", "summary"},
			},
		},
		{
			"name":        "update_task",
			"description": "Update fields of a task; completed tasks accept only summary and related files",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"taskId":               map[string]interface{}{"type": "string"},
					"name":                 map[string]interface{}{"type": "string"},
					"description":          map[string]interface{}{"type": "string"},
					"notes":                map[string]interface{}{"type": "string"},
					"implementationGuide":  map[string]interface{}{"type": "string"},
					"verificationCriteria": map[string]interface{}{"type": "string"},
					"summary":              map[string]interface{}{"type": "string"},
					"analysisResult":       map[string]interface{}{"type": "string"},
					"agent":                map[string]interface{}{"type": "string"},
					"dependencies":         map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				},
				"required": []string{"taskId"},
			},
		},
		{
			"name":        "delete_task",
			"description": "Delete a task unless it is completed or depended upon",
			"inputSchema": taskIDSchema,
		},
		{
			"name":        "clear_all_tasks",
			"description": "Archive completed tasks and reset the collection",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"confirm": map[string]interface{}{"type": "boolean"},
				},
				"required": []string{"confirm"},
			},
		},
	}
}
