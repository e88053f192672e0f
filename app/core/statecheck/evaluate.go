// Package statecheck produces a machine-readable readiness report over
// the runtime configuration and the task state document. The
// state-preflight command gates restores and deploys on its verdict.
package statecheck

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	config "arbor/app/configs"
	"arbor/app/core/forest"
	"arbor/app/core/runtime"
)

type Options struct {
	AllowMissingConfig bool
	AllowMissingState  bool
}

type Check struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

type Gate struct {
	Passed   bool     `json:"passed"`
	Failures []string `json:"failures,omitempty"`
}

// StateSummary describes the parsed task forest. Counts cover every
// depth; MaxDepth is 1 for a flat list.
type StateSummary struct {
	TopLevel  int `json:"top_level"`
	Total     int `json:"total"`
	Completed int `json:"completed"`
	MaxDepth  int `json:"max_depth"`
}

type Report struct {
	GeneratedAt       string        `json:"generated_at"`
	ConfigPath        string        `json:"config_path"`
	ConfigExists      bool          `json:"config_exists"`
	UsedDefaultConfig bool          `json:"used_default_config"`
	StatePath         string        `json:"state_path"`
	StateExists       bool          `json:"state_exists"`
	State             *StateSummary `json:"state,omitempty"`
	Status            string        `json:"status"`
	Checks            []Check       `json:"checks"`
	Gate              Gate          `json:"gate"`
}

// EvaluatePath builds the full report for the config at configPath and
// the state document that config points at. It never returns an error;
// every failure lands in the report's gate.
func EvaluatePath(configPath string, opts Options) Report {
	report := Report{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		ConfigPath:  strings.TrimSpace(configPath),
		Status:      "failed",
		Checks:      make([]Check, 0, 4),
		Gate: Gate{
			Passed:   false,
			Failures: []string{},
		},
	}

	if report.ConfigPath == "" {
		appendFailure(&report, "config path is required")
		appendCheck(&report, "config_load", false, "config path is empty")
		return finalize(report)
	}

	cfg, exists, usedDefault, loadErr := loadEffectiveConfig(report.ConfigPath, opts.AllowMissingConfig)
	report.ConfigExists = exists
	report.UsedDefaultConfig = usedDefault
	if loadErr != nil {
		appendFailure(&report, loadErr.Error())
		appendCheck(&report, "config_load", false, loadErr.Error())
		return finalize(report)
	}
	appendCheck(&report, "config_load", true, "config loaded")

	if err := runtime.ValidateConfig(cfg); err != nil {
		appendFailure(&report, fmt.Sprintf("config validation failed: %v", err))
		appendCheck(&report, "config_validate", false, err.Error())
		return finalize(report)
	}
	appendCheck(&report, "config_validate", true, "runtime config validation passed")

	report.StatePath = cfg.State.Path
	evaluateState(&report, cfg.State.Path, opts.AllowMissingState)
	return finalize(report)
}

func evaluateState(report *Report, path string, allowMissing bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			appendFailure(report, fmt.Sprintf("read state document failed: %v", err))
			appendCheck(report, "state_load", false, err.Error())
			return
		}
		if !allowMissing {
			appendFailure(report, fmt.Sprintf("state document not found: %s", path))
			appendCheck(report, "state_load", false, "state document not found")
			return
		}
		appendCheck(report, "state_load", true, "state document not found; the runtime will seed the default tasks")
		return
	}
	report.StateExists = true

	tasks, ok := decodeTasks(data)
	if !ok {
		appendFailure(report, "state document is unreadable; the runtime would discard it for the default tasks")
		appendCheck(report, "state_load", false, "tasks key missing, malformed, or not an array")
		return
	}
	appendCheck(report, "state_load", true, fmt.Sprintf("%d top-level task(s)", len(tasks)))
	verifyForest(report, tasks)
}

// decodeTasks mirrors how the runtime store reads the document: the
// forest lives under the fixed "tasks" key of a JSON object.
func decodeTasks(data []byte) ([]forest.Task, bool) {
	if !gjson.ValidBytes(data) {
		return nil, false
	}
	node := gjson.GetBytes(data, "tasks")
	if !node.Exists() || !node.IsArray() {
		return nil, false
	}
	var tasks []forest.Task
	if err := json.Unmarshal([]byte(node.Raw), &tasks); err != nil {
		return nil, false
	}
	return tasks, true
}

func verifyForest(report *Report, tasks []forest.Task) {
	summary := &StateSummary{TopLevel: len(tasks)}
	summary.Total, summary.Completed = forest.Count(tasks)

	seen := map[string]int{}
	var order []string
	var problems []string
	forest.Walk(tasks, func(t forest.Task, depth int) {
		if depth+1 > summary.MaxDepth {
			summary.MaxDepth = depth + 1
		}
		id := strings.TrimSpace(t.ID)
		if id == "" {
			problems = append(problems, fmt.Sprintf("task titled %q has an empty id", t.Title))
		} else {
			if seen[id] == 0 {
				order = append(order, id)
			}
			seen[id]++
		}
		if strings.TrimSpace(t.Title) == "" {
			problems = append(problems, fmt.Sprintf("task %s has an empty title", t.ID))
		}
		if _, ok := forest.ParsePriority(string(t.Priority)); !ok {
			problems = append(problems, fmt.Sprintf("task %s has unknown priority %q", t.ID, t.Priority))
		}
	})
	for _, id := range order {
		if n := seen[id]; n > 1 {
			problems = append(problems, fmt.Sprintf("id %s appears %d times", id, n))
		}
	}

	report.State = summary
	if len(problems) > 0 {
		for _, p := range problems {
			appendFailure(report, p)
		}
		appendCheck(report, "state_structure", false, strings.Join(problems, "; "))
		return
	}
	appendCheck(report, "state_structure", true, "ids unique, titles present, priorities known")
}

func finalize(report Report) Report {
	if len(report.Gate.Failures) == 0 {
		report.Gate.Passed = true
		report.Status = "ok"
		return report
	}
	report.Gate.Passed = false
	report.Status = "failed"
	return report
}

func appendFailure(report *Report, failure string) {
	trimmed := strings.TrimSpace(failure)
	if trimmed == "" {
		return
	}
	report.Gate.Failures = append(report.Gate.Failures, trimmed)
}

func appendCheck(report *Report, name string, passed bool, message string) {
	report.Checks = append(report.Checks, Check{
		Name:    name,
		Passed:  passed,
		Message: strings.TrimSpace(message),
	})
}

func loadEffectiveConfig(configPath string, allowMissing bool) (config.Config, bool, bool, error) {
	stat, err := os.Stat(configPath)
	if err == nil {
		if stat.IsDir() {
			return config.Config{}, false, false, fmt.Errorf("config path is a directory: %s", configPath)
		}
		cfg, err := config.LoadConfigFile(configPath)
		if err != nil {
			return config.Config{}, true, false, fmt.Errorf("load config failed: %w", err)
		}
		return cfg, true, false, nil
	}
	if !os.IsNotExist(err) {
		return config.Config{}, false, false, fmt.Errorf("stat config path failed: %w", err)
	}
	if !allowMissing {
		return config.Config{}, false, false, fmt.Errorf("config file not found: %s", configPath)
	}
	return config.DefaultConfig(), false, true, nil
}
