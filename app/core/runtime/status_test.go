package runtime

import (
	"context"
	"path/filepath"
	"testing"

	"arbor/app/core/forest"
	"arbor/app/core/history"
	"arbor/app/core/scheduler"
	"arbor/app/core/store"
	"arbor/app/pkg/types"
)

func TestSnapshotSkipsMissingCollaborators(t *testing.T) {
	collector := &StatusCollector{}
	snap := collector.Snapshot(context.Background())

	if _, ok := snap["timestamp"]; !ok {
		t.Fatal("snapshot missing timestamp")
	}
	for _, key := range []string{"model", "state", "history", "scheduler"} {
		if _, ok := snap[key]; ok {
			t.Fatalf("unwired section %q should be absent", key)
		}
	}
}

func TestSnapshotReportsStateAndHistory(t *testing.T) {
	base := t.TempDir()
	manager := testManager(t, base)

	state, err := store.Open(manager.Get().State.Path)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	tasks := []forest.Task{
		forest.New("Ship release", forest.PriorityHigh),
		forest.New("Write notes", forest.PriorityMedium),
	}
	tasks[1].Completed = true
	if err := state.Replace(tasks); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	db, err := history.Open(manager.Get().History.Dir)
	if err != nil {
		t.Fatalf("history.Open failed: %v", err)
	}
	defer db.Close()
	transcript := history.NewStore(db)
	ctx := context.Background()
	if err := transcript.StartSession(ctx, "sess_1"); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if err := transcript.AppendMessage(ctx, "sess_1", types.ChatMessage{ID: "msg_1", Text: "hi", Sender: types.SenderUser}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	collector := &StatusCollector{
		Config:    manager,
		State:     state,
		History:   transcript,
		Scheduler: scheduler.New(),
	}
	snap := collector.Snapshot(ctx)

	model, ok := snap["model"].(map[string]interface{})
	if !ok || model["name"] != manager.Get().Model.Name {
		t.Fatalf("model section = %+v", snap["model"])
	}

	stateSection, ok := snap["state"].(map[string]interface{})
	if !ok {
		t.Fatalf("state section = %+v", snap["state"])
	}
	if stateSection["top_level"] != 2 || stateSection["total"] != 2 || stateSection["completed"] != 1 || stateSection["open"] != 1 {
		t.Fatalf("state counts = %+v", stateSection)
	}
	if stateSection["path"] != filepath.Join(base, "state", "tasks.json") {
		t.Fatalf("state path = %v", stateSection["path"])
	}

	historySection, ok := snap["history"].(map[string]interface{})
	if !ok || historySection["messages"] != 1 || historySection["sessions"] != 1 {
		t.Fatalf("history section = %+v", snap["history"])
	}

	schedSection, ok := snap["scheduler"].(map[string]interface{})
	if !ok {
		t.Fatalf("scheduler section = %+v", snap["scheduler"])
	}
	if _, ok := schedSection["health"].(scheduler.Health); !ok {
		t.Fatalf("scheduler health = %+v", schedSection["health"])
	}
}
