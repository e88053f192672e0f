package forest

import "sort"

// TaskView is the simplified projection handed to the model when it
// asks for the current tasks. Creation timestamps are internal and
// stay out of it.
type TaskView struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Completed bool       `json:"isCompleted"`
	Priority  Priority   `json:"priority"`
	Subtasks  []TaskView `json:"subtasks,omitempty"`
}

// Project builds the recursive read-only projection of a forest.
func Project(tasks []Task) []TaskView {
	if len(tasks) == 0 {
		return []TaskView{}
	}
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		view := TaskView{
			ID:        t.ID,
			Title:     t.Title,
			Completed: t.Completed,
			Priority:  t.Priority,
		}
		if len(t.Subtasks) > 0 {
			view.Subtasks = Project(t.Subtasks)
		}
		views = append(views, view)
	}
	return views
}

// SortForDisplay orders a copy of the forest for rendering: incomplete
// tasks before completed ones, newest created first within each group,
// applied to every sibling list. Stored order is never touched.
func SortForDisplay(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	next := make([]Task, len(tasks))
	copy(next, tasks)
	for i := range next {
		next[i].Subtasks = SortForDisplay(next[i].Subtasks)
	}
	sort.SliceStable(next, func(i, j int) bool {
		if next[i].Completed != next[j].Completed {
			return !next[i].Completed
		}
		return next[i].CreatedAt.After(next[j].CreatedAt)
	})
	return next
}
