// Package tools maps the fixed operation catalogue onto the task
// forest. Arguments arrive from the external model and are treated as
// untrusted input: they are validated here, before anything reaches
// the mutation engine.
package tools

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	ResultStatusSuccess = "success"
	ResultStatusFailed  = "failed"
)

const (
	ErrorCodeUnsupportedTool = "TOOL_UNSUPPORTED"
	ErrorCodeMissingArg      = "ARG_MISSING"
	ErrorCodeInvalidArg      = "ARG_INVALID"
	ErrorCodeExecutionFailed = "TOOL_EXECUTION_FAILED"
)

// Result is the envelope every dispatch returns. "Not found" outcomes
// are successful results with a negative message, never failures; the
// failed status is reserved for unknown tools, invalid arguments and
// internal errors.
type Result struct {
	Tool       string      `json:"tool"`
	Status     string      `json:"status"`
	Code       string      `json:"code,omitempty"`
	Message    string      `json:"message"`
	DurationMS int64       `json:"duration_ms"`
	Data       interface{} `json:"data,omitempty"`
}

func (r Result) OK() bool {
	return r.Status == ResultStatusSuccess
}

// ToolError carries a machine code through handler validation.
type ToolError struct {
	Code    string
	Message string
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	if strings.TrimSpace(e.Code) != "" {
		return e.Code
	}
	return "tool execution error"
}

// Param describes one argument in a tool schema.
type Param struct {
	Type        string
	Description string
	Enum        []string
	Required    bool
}

// Tool is one catalogue entry: its schema and its handler.
type Tool struct {
	Name        string
	Description string
	Params      map[string]Param
	ParamOrder  []string
	Execute     func(ctx context.Context, args map[string]interface{}) Result
}

// AuditFunc observes every dispatch after it completes.
type AuditFunc func(ctx context.Context, name string, args map[string]interface{}, res Result)

// Registry holds the catalogue and dispatches invocations onto it.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
	audit AuditFunc
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) error {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return &ToolError{Code: ErrorCodeInvalidArg, Message: "tool name must not be empty"}
	}
	if t.Execute == nil {
		return &ToolError{Code: ErrorCodeInvalidArg, Message: "tool " + name + " has no handler"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return &ToolError{Code: ErrorCodeInvalidArg, Message: "tool already registered: " + name}
	}
	t.Name = name
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// SetAuditFunc installs the dispatch observer. Pass nil to disable.
func (r *Registry) SetAuditFunc(fn AuditFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audit = fn
}

// Names returns the catalogue in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Dispatch runs one invocation and always returns a result; unknown
// tool names come back as failed results, never as Go errors, so a
// misbehaving model cannot crash the loop around it.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]interface{}) Result {
	started := time.Now()
	trimmed := strings.TrimSpace(name)

	r.mu.RLock()
	tool, known := r.tools[trimmed]
	audit := r.audit
	r.mu.RUnlock()

	var res Result
	if !known {
		res = Result{
			Tool:    trimmed,
			Status:  ResultStatusFailed,
			Code:    ErrorCodeUnsupportedTool,
			Message: "unknown tool: " + trimmed,
		}
	} else {
		res = tool.Execute(ctx, args)
		res.Tool = tool.Name
	}
	res.DurationMS = time.Since(started).Milliseconds()

	if audit != nil {
		audit(ctx, trimmed, args, res)
	}
	return res
}

// Schema is the JSON-schema shaped declaration of one tool, in the
// form the model session registers with the provider.
type Schema struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Schemas emits the catalogue declarations in registration order.
func (r *Registry) Schemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		properties := map[string]interface{}{}
		required := []string{}
		for _, key := range tool.ParamOrder {
			param, ok := tool.Params[key]
			if !ok {
				continue
			}
			prop := map[string]interface{}{
				"type":        param.Type,
				"description": param.Description,
			}
			if len(param.Enum) > 0 {
				prop["enum"] = param.Enum
			}
			properties[key] = prop
			if param.Required {
				required = append(required, key)
			}
		}
		schemas = append(schemas, Schema{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		})
	}
	return schemas
}

func okResult(message string, data interface{}) Result {
	return Result{Status: ResultStatusSuccess, Message: message, Data: data}
}

func failedFrom(err *ToolError) Result {
	code := err.Code
	if strings.TrimSpace(code) == "" {
		code = ErrorCodeExecutionFailed
	}
	return Result{Status: ResultStatusFailed, Code: code, Message: err.Error()}
}
