// Package execlog appends one JSONL record per tool invocation so a
// session's mutations can be audited after the fact.
package execlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"arbor/app/core/tools"
)

// Meta identifies the conversation turn a dispatch belongs to.
type Meta struct {
	SessionID string
	Round     int
}

type metaKey struct{}

type entry struct {
	Timestamp     string `json:"timestamp"`
	SessionID     string `json:"session_id"`
	Round         int    `json:"round,omitempty"`
	Tool          string `json:"tool"`
	Status        string `json:"status"`
	Code          string `json:"code,omitempty"`
	DurationMs    int64  `json:"duration_ms"`
	ArgsPreview   string `json:"args_preview,omitempty"`
	ResultPreview string `json:"result_preview,omitempty"`
	Message       string `json:"message,omitempty"`
}

var (
	mu      sync.Mutex
	baseDir = filepath.Join("output", "tools")
)

// SetBaseDir redirects where log files are written. Defaults to
// output/tools under the working directory.
func SetBaseDir(dir string) {
	mu.Lock()
	defer mu.Unlock()
	if strings.TrimSpace(dir) != "" {
		baseDir = dir
	}
}

func WithMeta(ctx context.Context, meta Meta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	current := GetMeta(ctx)
	merged := mergeMeta(current, meta)
	return context.WithValue(ctx, metaKey{}, merged)
}

func GetMeta(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	meta, _ := ctx.Value(metaKey{}).(Meta)
	return meta
}

func mergeMeta(base Meta, override Meta) Meta {
	out := base
	if strings.TrimSpace(override.SessionID) != "" {
		out.SessionID = strings.TrimSpace(override.SessionID)
	}
	if override.Round > 0 {
		out.Round = override.Round
	}
	return out
}

// Record satisfies tools.AuditFunc: install it on the registry and
// every dispatch lands in the hourly log file.
func Record(ctx context.Context, name string, args map[string]interface{}, res tools.Result) {
	_ = appendHourlyLog(time.Now(), name, GetMeta(ctx), args, res)
}

func appendHourlyLog(ts time.Time, tool string, meta Meta, args map[string]interface{}, res tools.Result) error {
	tool = strings.TrimSpace(tool)
	if tool == "" {
		tool = "unknown"
	}
	sessionID := strings.TrimSpace(meta.SessionID)
	if sessionID == "" {
		sessionID = "unknown"
	}

	record := entry{
		Timestamp:     ts.Format(time.RFC3339Nano),
		SessionID:     sessionID,
		Round:         meta.Round,
		Tool:          tool,
		Status:        res.Status,
		Code:          res.Code,
		DurationMs:    res.DurationMS,
		ArgsPreview:   previewJSON(args, 240),
		ResultPreview: previewJSON(res.Data, 240),
		Message:       previewText(res.Message, 240),
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	dayDir := filepath.Join(baseDir, ts.Format("2006-01-02"))
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return fmt.Errorf("failed to create tool log dir: %w", err)
	}
	logPath := filepath.Join(dayDir, fmt.Sprintf("invocations_%s.jsonl", ts.Format("20060102-15")))

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(payload, '\n')); err != nil {
		return err
	}
	return nil
}

func previewJSON(v interface{}, limit int) string {
	if v == nil {
		return ""
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return previewText(fmt.Sprintf("%v", v), limit)
	}
	return previewText(string(raw), limit)
}

func previewText(s string, limit int) string {
	clean := strings.TrimSpace(s)
	if clean == "" || limit <= 0 {
		return ""
	}
	clean = strings.ReplaceAll(clean, "\r\n", "\n")
	clean = strings.ReplaceAll(clean, "\n", "\\n")
	runes := []rune(clean)
	if len(runes) <= limit {
		return clean
	}
	return string(runes[:limit]) + "..."
}
