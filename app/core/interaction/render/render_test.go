package render

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"arbor/app/core/forest"
	"arbor/app/pkg/types"
)

func TestMain(m *testing.M) {
	DisableColor()
	os.Exit(m.Run())
}

func taskAt(id, title string, completed bool, at time.Time) forest.Task {
	return forest.Task{
		ID:        id,
		Title:     title,
		Completed: completed,
		Priority:  forest.PriorityMedium,
		CreatedAt: at,
	}
}

func TestTaskTreeOrdersAndIndents(t *testing.T) {
	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	parent := taskAt("task_old", "Plan the trip", false, base)
	parent.Subtasks = []forest.Task{taskAt("task_sub", "Book hotel", false, base.Add(time.Minute))}
	tasks := []forest.Task{
		taskAt("task_done", "Pack bags", true, base.Add(2*time.Hour)),
		parent,
		taskAt("task_new", "Check passport", false, base.Add(time.Hour)),
	}

	var buf bytes.Buffer
	TaskTree(&buf, tasks)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}

	if !strings.Contains(lines[0], "Check passport") {
		t.Fatalf("newest open task not first: %q", lines[0])
	}
	if !strings.Contains(lines[1], "Plan the trip") {
		t.Fatalf("older open task not second: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "  "+glyphOpen) || !strings.Contains(lines[2], "Book hotel") {
		t.Fatalf("subtask not indented under parent: %q", lines[2])
	}
	if !strings.Contains(lines[3], "Pack bags") || !strings.Contains(lines[3], glyphDone) {
		t.Fatalf("completed task not last with done glyph: %q", lines[3])
	}
	if !strings.HasPrefix(lines[0], glyphOpen) {
		t.Fatalf("open task missing open glyph: %q", lines[0])
	}
	if !strings.Contains(lines[0], "task_new") {
		t.Fatalf("task id missing from line: %q", lines[0])
	}
}

func TestTaskTreeEmptyForest(t *testing.T) {
	var buf bytes.Buffer
	TaskTree(&buf, nil)
	if !strings.Contains(buf.String(), "No tasks yet") {
		t.Fatalf("empty forest output = %q", buf.String())
	}
}

func TestPriorityBadges(t *testing.T) {
	base := time.Now()
	high := taskAt("task_h", "Urgent thing", false, base)
	high.Priority = forest.PriorityHigh
	low := taskAt("task_l", "Someday thing", false, base)
	low.Priority = forest.PriorityLow
	med := taskAt("task_m", "Normal thing", false, base)

	var buf bytes.Buffer
	TaskTree(&buf, []forest.Task{high, low, med})
	out := buf.String()
	if !strings.Contains(out, "Urgent thing (high)") {
		t.Fatalf("high badge missing: %q", out)
	}
	if !strings.Contains(out, "Someday thing (low)") {
		t.Fatalf("low badge missing: %q", out)
	}
	if strings.Contains(out, "Normal thing (") {
		t.Fatalf("medium should carry no badge: %q", out)
	}
}

func TestMessageFormatsBySender(t *testing.T) {
	at := time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)
	cases := []struct {
		sender types.Sender
		tag    string
	}{
		{types.SenderUser, "you>"},
		{types.SenderAI, "ai>"},
		{types.SenderSystem, "sys>"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		Message(&buf, types.ChatMessage{ID: "msg_1", Text: "hello there", Sender: tc.sender, Timestamp: at})
		out := buf.String()
		if !strings.Contains(out, tc.tag) || !strings.Contains(out, "hello there") {
			t.Fatalf("%s message = %q", tc.sender, out)
		}
	}
}

func TestTruncateAddsEllipsis(t *testing.T) {
	long := strings.Repeat("x", 40)
	got := truncate(long, 30)
	if len([]rune(got)) != 30 || !strings.HasSuffix(got, "…") {
		t.Fatalf("truncate = %q (%d runes)", got, len([]rune(got)))
	}
	if truncate("short", 30) != "short" {
		t.Fatal("short strings must pass through")
	}
	if got := truncate(long, 5); len([]rune(got)) != minTitleWidth {
		t.Fatalf("tiny limits clamp to %d, got %q", minTitleWidth, got)
	}
}

func TestSummaryCounts(t *testing.T) {
	base := time.Now()
	parent := taskAt("task_1", "Parent", false, base)
	parent.Subtasks = []forest.Task{taskAt("task_2", "Child", true, base)}

	var buf bytes.Buffer
	Summary(&buf, []forest.Task{parent})
	if got := buf.String(); got != "2 task(s), 1 done\n" {
		t.Fatalf("summary = %q", got)
	}
}
