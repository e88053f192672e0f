package tools

import (
	"context"
	"fmt"
	"strings"

	"arbor/app/core/forest"
	"arbor/app/pkg/logger"
)

const (
	ToolAddTask          = "addTask"
	ToolAddSubtask       = "addSubtask"
	ToolRemoveTask       = "removeTask"
	ToolUpdateTaskStatus = "updateTaskStatus"
	ToolGetTasks         = "getTasks"
)

// State is the live task forest the catalogue operates on. Replace
// errors mean the new forest could not be persisted; the mutation
// itself has already taken effect and is never rolled back.
type State interface {
	Tasks() []forest.Task
	Replace(tasks []forest.Task) error
}

var priorityEnum = []string{"low", "medium", "high"}

// RegisterTaskTools installs the full task catalogue on a registry.
func RegisterTaskTools(reg *Registry, state State) error {
	catalogue := []Tool{
		{
			Name:        ToolAddTask,
			Description: "Add a new top-level task to the task list.",
			Params: map[string]Param{
				"title":    {Type: "string", Description: "Title of the new task.", Required: true},
				"priority": {Type: "string", Description: "Task priority. Defaults to medium.", Enum: priorityEnum},
			},
			ParamOrder: []string{"title", "priority"},
			Execute: func(ctx context.Context, args map[string]interface{}) Result {
				return addTask(state, args)
			},
		},
		{
			Name:        ToolAddSubtask,
			Description: "Add a subtask under the first task whose id equals parentQuery or whose title contains it, case-insensitively.",
			Params: map[string]Param{
				"parentQuery": {Type: "string", Description: "Id or title fragment of the parent task.", Required: true},
				"title":       {Type: "string", Description: "Title of the new subtask.", Required: true},
				"priority":    {Type: "string", Description: "Subtask priority. Defaults to medium.", Enum: priorityEnum},
			},
			ParamOrder: []string{"parentQuery", "title", "priority"},
			Execute: func(ctx context.Context, args map[string]interface{}) Result {
				return addSubtask(state, args)
			},
		},
		{
			Name:        ToolRemoveTask,
			Description: "Remove every task matching the exact taskId or containing searchTitle in its title, together with its subtasks. Provide at least one of the two.",
			Params: map[string]Param{
				"taskId":      {Type: "string", Description: "Exact id of the task to remove."},
				"searchTitle": {Type: "string", Description: "Case-insensitive title fragment to remove by."},
			},
			ParamOrder: []string{"taskId", "searchTitle"},
			Execute: func(ctx context.Context, args map[string]interface{}) Result {
				return removeTask(state, args)
			},
		},
		{
			Name:        ToolUpdateTaskStatus,
			Description: "Mark the task with the given id as completed or not completed.",
			Params: map[string]Param{
				"taskId":    {Type: "string", Description: "Id of the task to update.", Required: true},
				"completed": {Type: "boolean", Description: "New completion state.", Required: true},
			},
			ParamOrder: []string{"taskId", "completed"},
			Execute: func(ctx context.Context, args map[string]interface{}) Result {
				return updateTaskStatus(state, args)
			},
		},
		{
			Name:        ToolGetTasks,
			Description: "Get the current task list with ids, titles, priorities, completion flags and subtasks.",
			Params:      map[string]Param{},
			ParamOrder:  []string{},
			Execute: func(ctx context.Context, args map[string]interface{}) Result {
				return getTasks(state)
			},
		},
	}

	for _, tool := range catalogue {
		if err := reg.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

func addTask(state State, args map[string]interface{}) Result {
	title, terr := requiredString(args, "title")
	if terr != nil {
		return failedFrom(terr)
	}
	priority, terr := priorityArg(args)
	if terr != nil {
		return failedFrom(terr)
	}

	task := forest.New(title, priority)
	next := append([]forest.Task{task}, state.Tasks()...)
	persist(ToolAddTask, state, next)

	view := forest.Project([]forest.Task{task})[0]
	return okResult(fmt.Sprintf("added task %q with %s priority", title, task.Priority), view)
}

func addSubtask(state State, args map[string]interface{}) Result {
	parentQuery, terr := requiredString(args, "parentQuery")
	if terr != nil {
		return failedFrom(terr)
	}
	title, terr := requiredString(args, "title")
	if terr != nil {
		return failedFrom(terr)
	}
	priority, terr := priorityArg(args)
	if terr != nil {
		return failedFrom(terr)
	}

	sub := forest.New(title, priority)
	next, added := forest.InsertSubtask(state.Tasks(), parentQuery, sub)
	if !added {
		return okResult(fmt.Sprintf("no task matched %q; nothing was added", parentQuery), map[string]interface{}{"added": false})
	}
	persist(ToolAddSubtask, state, next)

	view := forest.Project([]forest.Task{sub})[0]
	return okResult(fmt.Sprintf("added subtask %q under the first task matching %q", title, parentQuery), view)
}

func removeTask(state State, args map[string]interface{}) Result {
	taskID, terr := optionalString(args, "taskId")
	if terr != nil {
		return failedFrom(terr)
	}
	searchTitle, terr := optionalString(args, "searchTitle")
	if terr != nil {
		return failedFrom(terr)
	}

	next, removed := forest.RemoveMatching(state.Tasks(), taskID, searchTitle)
	if removed == 0 {
		return okResult("no tasks matched; nothing was removed", map[string]interface{}{"removed": 0})
	}
	persist(ToolRemoveTask, state, next)

	return okResult(fmt.Sprintf("removed %d task(s) and their subtasks", removed), map[string]interface{}{"removed": removed})
}

func updateTaskStatus(state State, args map[string]interface{}) Result {
	taskID, terr := requiredString(args, "taskId")
	if terr != nil {
		return failedFrom(terr)
	}
	completed, terr := requiredBool(args, "completed")
	if terr != nil {
		return failedFrom(terr)
	}

	next, found := forest.SetCompleted(state.Tasks(), taskID, completed)
	if !found {
		return okResult(fmt.Sprintf("no task with id %s", taskID), map[string]interface{}{"found": false})
	}
	persist(ToolUpdateTaskStatus, state, next)

	word := "completed"
	if !completed {
		word = "not completed"
	}
	return okResult(fmt.Sprintf("marked task %s as %s", taskID, word), map[string]interface{}{"found": true})
}

func getTasks(state State) Result {
	views := forest.Project(state.Tasks())
	return okResult(fmt.Sprintf("%d top-level task(s)", len(views)), views)
}

// persist swaps in the new forest. Write errors are logged and
// swallowed: the mutation has happened and is reported as such.
func persist(tool string, state State, next []forest.Task) {
	if err := state.Replace(next); err != nil {
		logger.Error("%s: persisting task state failed: %v", tool, err)
	}
}

func requiredString(args map[string]interface{}, key string) (string, *ToolError) {
	raw, present := args[key]
	if !present || raw == nil {
		return "", &ToolError{Code: ErrorCodeMissingArg, Message: "missing required argument: " + key}
	}
	value, ok := raw.(string)
	if !ok {
		return "", &ToolError{Code: ErrorCodeInvalidArg, Message: "argument " + key + " must be a string"}
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", &ToolError{Code: ErrorCodeInvalidArg, Message: "argument " + key + " must not be empty"}
	}
	return trimmed, nil
}

func optionalString(args map[string]interface{}, key string) (string, *ToolError) {
	raw, present := args[key]
	if !present || raw == nil {
		return "", nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", &ToolError{Code: ErrorCodeInvalidArg, Message: "argument " + key + " must be a string"}
	}
	return strings.TrimSpace(value), nil
}

func requiredBool(args map[string]interface{}, key string) (bool, *ToolError) {
	raw, present := args[key]
	if !present || raw == nil {
		return false, &ToolError{Code: ErrorCodeMissingArg, Message: "missing required argument: " + key}
	}
	value, ok := raw.(bool)
	if !ok {
		return false, &ToolError{Code: ErrorCodeInvalidArg, Message: "argument " + key + " must be a boolean"}
	}
	return value, nil
}

func priorityArg(args map[string]interface{}) (forest.Priority, *ToolError) {
	raw, terr := optionalString(args, "priority")
	if terr != nil {
		return "", terr
	}
	priority, ok := forest.ParsePriority(raw)
	if !ok {
		return "", &ToolError{Code: ErrorCodeInvalidArg, Message: "priority must be one of low, medium, high"}
	}
	return priority, nil
}
