package runtime

import (
	"context"
	"os"
	"time"

	config "arbor/app/configs"
	"arbor/app/core/forest"
	"arbor/app/core/history"
	"arbor/app/core/scheduler"
	"arbor/app/core/store"
)

// StatusCollector gathers one snapshot across the collaborators it was
// given. Nil fields are simply skipped so partial wiring still reports.
type StatusCollector struct {
	Config    *config.Manager
	State     *store.Store
	History   *history.Store
	Scheduler *scheduler.Scheduler
}

func (c *StatusCollector) Snapshot(ctx context.Context) map[string]interface{} {
	payload := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if c.Config != nil {
		cfg := c.Config.Get()
		payload["model"] = map[string]interface{}{
			"name":            cfg.Model.Name,
			"api_key_env":     cfg.Model.APIKeyEnv,
			"max_tool_rounds": cfg.Model.MaxToolRounds,
		}
		payload["retention_days"] = cfg.History.RetentionDays
	}

	if c.State != nil {
		tasks := c.State.Tasks()
		total, completed := forest.Count(tasks)
		section := map[string]interface{}{
			"path":      c.State.Path(),
			"top_level": len(tasks),
			"total":     total,
			"completed": completed,
			"open":      total - completed,
		}
		if info, err := os.Stat(c.State.Path()); err == nil {
			section["modified_at"] = info.ModTime().UTC().Format(time.RFC3339)
		}
		payload["state"] = section
	}

	if c.History != nil {
		section := map[string]interface{}{}
		if messages, err := c.History.CountMessages(ctx); err != nil {
			section["error"] = err.Error()
		} else {
			section["messages"] = messages
		}
		if sessions, err := c.History.CountSessions(ctx); err == nil {
			section["sessions"] = sessions
		}
		payload["history"] = section
	}

	if c.Scheduler != nil {
		payload["scheduler"] = map[string]interface{}{
			"health": c.Scheduler.Health(),
			"jobs":   jobSummaries(c.Scheduler.Snapshot()),
		}
	}

	return payload
}

func jobSummaries(statuses []scheduler.JobStatus) []map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(statuses))
	for _, st := range statuses {
		item := map[string]interface{}{
			"name": st.Name,
			"runs": st.Runs,
		}
		if !st.LastEndAt.IsZero() {
			item["last_end_at"] = st.LastEndAt.UTC().Format(time.RFC3339)
			item["last_duration_ms"] = st.LastDuration.Milliseconds()
		}
		if st.LastError != "" {
			item["last_error"] = st.LastError
		}
		items = append(items, item)
	}
	return items
}
