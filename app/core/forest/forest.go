// Package forest holds the task tree model and the pure operations
// over it. A forest is an ordered slice of independent task trees; every
// operation returns a new forest and leaves its input untouched.
package forest

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority of a task. Defaults to medium when unspecified.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps raw user or model input onto the priority enum.
// Empty input means "unspecified" and resolves to medium.
func ParsePriority(raw string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	case "medium":
		return PriorityMedium, true
	case "high":
		return PriorityHigh, true
	}
	return "", false
}

// Task is one node of the forest. Subtasks are owned exclusively by
// their parent; a nil or empty list means leaf.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"isCompleted"`
	Priority  Priority  `json:"priority"`
	CreatedAt time.Time `json:"createdAt"`
	Subtasks  []Task    `json:"subtasks,omitempty"`
}

// New builds a task with a fresh id and creation timestamp. Uniqueness
// is enforced here, by generation, not by later validation.
func New(title string, priority Priority) Task {
	if priority == "" {
		priority = PriorityMedium
	}
	return Task{
		ID:        newID(),
		Title:     title,
		Priority:  priority,
		CreatedAt: time.Now().UTC(),
	}
}

func newID() string {
	return "task_" + uuid.Must(uuid.NewV7()).String()
}

// DefaultForest seeds first runs and recovery from unreadable state.
func DefaultForest() []Task {
	review := New("Review project requirements", PriorityMedium)
	review.Subtasks = []Task{New("Check email specs", PriorityMedium)}

	coffee := New("Buy coffee beans", PriorityMedium)
	coffee.Completed = true

	return []Task{review, coffee}
}

// Clone deep-copies a forest. Callers handing tasks across goroutine or
// ownership boundaries use it to keep the replace-only discipline.
func Clone(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	next := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		t.Subtasks = Clone(t.Subtasks)
		next = append(next, t)
	}
	return next
}

// FindByID returns the task with the given id, searching depth first.
func FindByID(tasks []Task, id string) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
		if found, ok := FindByID(t.Subtasks, id); ok {
			return found, true
		}
	}
	return Task{}, false
}

// Count returns total and completed node counts across all depths.
func Count(tasks []Task) (total int, completed int) {
	for _, t := range tasks {
		total++
		if t.Completed {
			completed++
		}
		subTotal, subCompleted := Count(t.Subtasks)
		total += subTotal
		completed += subCompleted
	}
	return total, completed
}

// Walk visits every task depth first, parents before children, in
// sibling order. depth starts at 0 for top-level tasks.
func Walk(tasks []Task, visit func(t Task, depth int)) {
	walk(tasks, 0, visit)
}

func walk(tasks []Task, depth int, visit func(t Task, depth int)) {
	for _, t := range tasks {
		visit(t, depth)
		walk(t.Subtasks, depth+1, visit)
	}
}
