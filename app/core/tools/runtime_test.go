package tools

import (
	"context"
	"testing"
)

func TestDispatchUnknownToolReturnsFailedResult(t *testing.T) {
	reg := NewRegistry()

	res := reg.Dispatch(context.Background(), "launchRocket", nil)

	if res.OK() {
		t.Fatalf("expected failed result for unknown tool")
	}
	if res.Code != ErrorCodeUnsupportedTool {
		t.Fatalf("unexpected code: %s", res.Code)
	}
	if res.Tool != "launchRocket" {
		t.Fatalf("unexpected tool name in envelope: %s", res.Tool)
	}
}

func TestRegisterRejectsBadTools(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(Tool{Name: "", Execute: func(ctx context.Context, args map[string]interface{}) Result { return okResult("", nil) }}); err == nil {
		t.Fatalf("expected empty name to be rejected")
	}
	if err := reg.Register(Tool{Name: "noHandler"}); err == nil {
		t.Fatalf("expected missing handler to be rejected")
	}

	valid := Tool{Name: "echo", Execute: func(ctx context.Context, args map[string]interface{}) Result { return okResult("ok", nil) }}
	if err := reg.Register(valid); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := reg.Register(valid); err == nil {
		t.Fatalf("expected duplicate registration to be rejected")
	}
}

func TestDispatchFillsEnvelope(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Tool{
		Name:    "echo",
		Execute: func(ctx context.Context, args map[string]interface{}) Result { return okResult("done", nil) },
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	res := reg.Dispatch(context.Background(), " echo ", nil)

	if !res.OK() {
		t.Fatalf("unexpected failure: %#v", res)
	}
	if res.Tool != "echo" {
		t.Fatalf("expected envelope tool name, got %q", res.Tool)
	}
	if res.DurationMS < 0 {
		t.Fatalf("unexpected duration: %d", res.DurationMS)
	}
}

func TestAuditFuncObservesEveryDispatch(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Tool{
		Name:    "echo",
		Execute: func(ctx context.Context, args map[string]interface{}) Result { return okResult("done", nil) },
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	var seen []string
	reg.SetAuditFunc(func(ctx context.Context, name string, args map[string]interface{}, res Result) {
		seen = append(seen, name+":"+res.Status)
	})

	reg.Dispatch(context.Background(), "echo", nil)
	reg.Dispatch(context.Background(), "bogus", nil)

	if len(seen) != 2 {
		t.Fatalf("expected two audit entries, got %d", len(seen))
	}
	if seen[0] != "echo:success" || seen[1] != "bogus:failed" {
		t.Fatalf("unexpected audit entries: %v", seen)
	}
}
