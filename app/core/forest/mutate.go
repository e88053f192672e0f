package forest

import "strings"

// Toggle flips the completion flag of the task with the given id.
// Absent ids leave the forest unchanged.
func Toggle(tasks []Task, id string) []Task {
	if tasks == nil {
		return nil
	}
	next := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == id {
			t.Completed = !t.Completed
		}
		t.Subtasks = Toggle(t.Subtasks, id)
		next = append(next, t)
	}
	return next
}

// Delete removes the task with the given id together with its whole
// subtree, wherever it occurs. Absent ids leave the forest unchanged.
func Delete(tasks []Task, id string) []Task {
	if tasks == nil {
		return nil
	}
	next := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == id {
			continue
		}
		t.Subtasks = Delete(t.Subtasks, id)
		next = append(next, t)
	}
	return next
}

// SetCompleted sets the completion flag of the task with the given id
// and reports whether any task matched.
func SetCompleted(tasks []Task, id string, completed bool) ([]Task, bool) {
	if tasks == nil {
		return nil, false
	}
	found := false
	next := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == id {
			t.Completed = completed
			found = true
		}
		var sub bool
		t.Subtasks, sub = SetCompleted(t.Subtasks, id, completed)
		found = found || sub
		next = append(next, t)
	}
	return next, found
}

// InsertSubtask appends sub to the subtask list of the first task, in
// depth-first parent-before-children sibling order, whose id equals
// parentQuery or whose title contains it case-insensitively. Only that
// first match receives the insertion; everything after it is left as
// is. An empty query matches nothing.
func InsertSubtask(tasks []Task, parentQuery string, sub Task) ([]Task, bool) {
	if strings.TrimSpace(parentQuery) == "" {
		return tasks, false
	}
	return insertSubtask(tasks, parentQuery, sub)
}

func insertSubtask(tasks []Task, parentQuery string, sub Task) ([]Task, bool) {
	if tasks == nil {
		return nil, false
	}
	added := false
	next := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		switch {
		case added:
			// match already consumed, keep the rest untouched
		case matchesQuery(t, parentQuery):
			children := make([]Task, len(t.Subtasks))
			copy(children, t.Subtasks)
			t.Subtasks = append(children, sub)
			added = true
		default:
			t.Subtasks, added = insertSubtask(t.Subtasks, parentQuery, sub)
		}
		next = append(next, t)
	}
	return next, added
}

func matchesQuery(t Task, query string) bool {
	if t.ID == query {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), strings.ToLower(query))
}

// RemoveMatching removes every task, at any depth, whose id equals id
// or whose title contains titleSubstring case-insensitively. A removed
// task takes its whole subtree with it; descendants are not tested
// again. The count covers matched tasks only, not their descendants.
// Empty predicates never match, so two empty predicates return the
// forest unchanged with count zero.
func RemoveMatching(tasks []Task, id, titleSubstring string) ([]Task, int) {
	id = strings.TrimSpace(id)
	needle := strings.ToLower(strings.TrimSpace(titleSubstring))
	if id == "" && needle == "" {
		return tasks, 0
	}
	return removeMatching(tasks, id, needle)
}

func removeMatching(tasks []Task, id, needle string) ([]Task, int) {
	if tasks == nil {
		return nil, 0
	}
	removed := 0
	next := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if matchesRemoval(t, id, needle) {
			removed++
			continue
		}
		var sub int
		t.Subtasks, sub = removeMatching(t.Subtasks, id, needle)
		removed += sub
		next = append(next, t)
	}
	return next, removed
}

func matchesRemoval(t Task, id, needle string) bool {
	if id != "" && t.ID == id {
		return true
	}
	if needle != "" && strings.Contains(strings.ToLower(t.Title), needle) {
		return true
	}
	return false
}
