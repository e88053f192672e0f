package cli

import (
	"strings"
	"testing"

	"arbor/app/core/store"
)

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func openTestState(t *testing.T) *store.Store {
	t.Helper()
	state, err := store.Open("output/state/tasks.json")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return state
}

func TestRootRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"chat", "add", "list", "toggle", "rm", "status", "watch"} {
		if !names[want] {
			t.Fatalf("subcommand %q is not registered", want)
		}
	}
}

func TestRemoveRequiresSelector(t *testing.T) {
	t.Chdir(t.TempDir())
	err := runCLI(t, "rm")
	if err == nil || !strings.Contains(err.Error(), "task id or --title") {
		t.Fatalf("err = %v", err)
	}
}

func TestTaskCommandLifecycle(t *testing.T) {
	t.Chdir(t.TempDir())

	if err := runCLI(t, "add", "Plan", "the", "trip", "--priority", "high"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := runCLI(t, "add", "Buy milk"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := runCLI(t, "add", "Book hotel", "--parent", "plan the"); err != nil {
		t.Fatalf("add subtask: %v", err)
	}

	tasks := openTestState(t).Tasks()
	if len(tasks) != 2 {
		t.Fatalf("top level = %d tasks", len(tasks))
	}
	if tasks[0].Title != "Buy milk" {
		t.Fatalf("new tasks must be prepended, got %q first", tasks[0].Title)
	}
	trip := tasks[1]
	if trip.Title != "Plan the trip" || len(trip.Subtasks) != 1 || trip.Subtasks[0].Title != "Book hotel" {
		t.Fatalf("parent task wrong: %+v", trip)
	}

	if err := runCLI(t, "toggle", trip.Subtasks[0].ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	tasks = openTestState(t).Tasks()
	if !tasks[1].Subtasks[0].Completed {
		t.Fatal("toggle did not complete the subtask")
	}

	if err := runCLI(t, "toggle", "task_missing"); err == nil {
		t.Fatal("toggling an unknown id must fail")
	}

	if err := runCLI(t, "rm", trip.ID); err != nil {
		t.Fatalf("rm: %v", err)
	}
	tasks = openTestState(t).Tasks()
	if len(tasks) != 1 || tasks[0].Title != "Buy milk" {
		t.Fatalf("subtree removal left %+v", tasks)
	}

	if err := runCLI(t, "rm", "--title", "milk"); err != nil {
		t.Fatalf("rm --title: %v", err)
	}
	if tasks := openTestState(t).Tasks(); len(tasks) != 0 {
		t.Fatalf("title removal left %+v", tasks)
	}

	if err := runCLI(t, "list"); err != nil {
		t.Fatalf("list: %v", err)
	}
}

func TestAddRejectsUnknownPriority(t *testing.T) {
	t.Chdir(t.TempDir())
	err := runCLI(t, "add", "Something", "--priority", "urgent")
	if err == nil || !strings.Contains(err.Error(), "unknown priority") {
		t.Fatalf("err = %v", err)
	}
}
