// Package command interprets slash commands typed at the chat prompt.
// Input that is not a slash command is left for the conversation loop.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/pretty"

	config "arbor/app/configs"
	"arbor/app/core/interaction/render"
	"arbor/app/core/runtime"
	"arbor/app/core/store"
)

// ErrQuit signals that the user asked to leave the chat. The caller
// owns shutdown; the executor only reports the request.
var ErrQuit = errors.New("quit requested")

type Executor struct {
	manager   *config.Manager
	state     *store.Store
	collector *runtime.StatusCollector
}

func NewExecutor(manager *config.Manager, state *store.Store, collector *runtime.StatusCollector) *Executor {
	return &Executor{manager: manager, state: state, collector: collector}
}

// ExecuteSlash runs input when it is a slash command. handled reports
// whether the executor consumed the input; a false return means the
// text should go to the assistant instead.
func (e *Executor) ExecuteSlash(ctx context.Context, input string) (output string, handled bool, err error) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return "", false, nil
	}
	parts := strings.Fields(strings.TrimPrefix(trimmed, "/"))
	if len(parts) == 0 {
		return "", false, nil
	}

	switch strings.ToLower(parts[0]) {
	case "help":
		return helpText(), true, nil
	case "tasks":
		out, err := e.taskTree()
		return out, true, err
	case "status":
		out, err := e.statusReport(ctx)
		return out, true, err
	case "config":
		out, err := e.configCommand(parts[1:])
		return out, true, err
	case "quit", "exit":
		return "", true, ErrQuit
	default:
		return "", true, fmt.Errorf("unknown command: /%s", parts[0])
	}
}

func helpText() string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	b.WriteString("  /help                        show this help\n")
	b.WriteString("  /tasks                       print the task tree\n")
	b.WriteString("  /status                      print a runtime status snapshot\n")
	b.WriteString("  /config                      print the active configuration\n")
	b.WriteString("  /config get <key>            print one configuration value\n")
	b.WriteString("  /config set <key> <value>    change a configuration value\n")
	b.WriteString("  /quit                        leave the chat\n")
	b.WriteString("\nAnything else is sent to the assistant.")
	return b.String()
}

func (e *Executor) taskTree() (string, error) {
	if e.state == nil {
		return "", errors.New("task state is not available")
	}
	tasks := e.state.Tasks()
	var b strings.Builder
	render.TaskTree(&b, tasks)
	render.Summary(&b, tasks)
	return strings.TrimRight(b.String(), "\n"), nil
}

func (e *Executor) statusReport(ctx context.Context) (string, error) {
	if e.collector == nil {
		return "", errors.New("status collector is not available")
	}
	snap := e.collector.Snapshot(ctx)
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode status snapshot: %w", err)
	}
	return strings.TrimRight(string(pretty.Pretty(data)), "\n"), nil
}

func (e *Executor) configCommand(args []string) (string, error) {
	if e.manager == nil {
		return "", errors.New("configuration is not available")
	}
	if len(args) == 0 {
		return e.configDump()
	}
	switch strings.ToLower(args[0]) {
	case "get":
		if len(args) != 2 {
			return "", errors.New("usage: /config get <key>")
		}
		return e.configGet(args[1])
	case "set":
		if len(args) != 3 {
			return "", errors.New("usage: /config set <key> <value>")
		}
		return e.configSet(args[1], args[2])
	default:
		return "", fmt.Errorf("unknown config action %q; use get or set", args[0])
	}
}

func (e *Executor) configDump() (string, error) {
	data, err := json.Marshal(e.manager.Get())
	if err != nil {
		return "", fmt.Errorf("encode configuration: %w", err)
	}
	var b strings.Builder
	b.Write(pretty.Pretty(data))
	b.WriteString("Editable keys: ")
	b.WriteString(strings.Join(editableKeys(), ", "))
	return b.String(), nil
}

func (e *Executor) configGet(key string) (string, error) {
	value, ok := configValue(e.manager.Get(), key)
	if !ok {
		return "", fmt.Errorf("unknown config key %q; run /config to list keys", key)
	}
	return fmt.Sprintf("%s = %s", key, value), nil
}

func (e *Executor) configSet(key, value string) (string, error) {
	apply, err := configSetter(key, value)
	if err != nil {
		return "", err
	}
	updated, err := e.manager.Update(apply)
	if err != nil {
		return "", fmt.Errorf("persist configuration: %w", err)
	}
	current, _ := configValue(updated, key)
	return fmt.Sprintf("%s = %s", key, current), nil
}

func configValue(cfg config.Config, key string) (string, bool) {
	switch key {
	case "model.name":
		return cfg.Model.Name, true
	case "model.max_tool_rounds":
		return strconv.Itoa(cfg.Model.MaxToolRounds), true
	case "state.backup_keep":
		return strconv.Itoa(cfg.State.BackupKeep), true
	case "history.retention_days":
		return strconv.Itoa(cfg.History.RetentionDays), true
	case "maintenance.backup_interval_min":
		return strconv.Itoa(cfg.Maintenance.BackupIntervalMin), true
	case "maintenance.prune_interval_min":
		return strconv.Itoa(cfg.Maintenance.PruneIntervalMin), true
	default:
		return "", false
	}
}

func configSetter(key, value string) (func(*config.Config), error) {
	switch key {
	case "model.name":
		name := strings.TrimSpace(value)
		if name == "" {
			return nil, errors.New("model.name must not be empty")
		}
		return func(c *config.Config) { c.Model.Name = name }, nil
	case "model.max_tool_rounds":
		n, err := positiveInt(key, value)
		if err != nil {
			return nil, err
		}
		return func(c *config.Config) { c.Model.MaxToolRounds = n }, nil
	case "state.backup_keep":
		n, err := positiveInt(key, value)
		if err != nil {
			return nil, err
		}
		return func(c *config.Config) { c.State.BackupKeep = n }, nil
	case "history.retention_days":
		n, err := positiveInt(key, value)
		if err != nil {
			return nil, err
		}
		return func(c *config.Config) { c.History.RetentionDays = n }, nil
	case "maintenance.backup_interval_min":
		n, err := positiveInt(key, value)
		if err != nil {
			return nil, err
		}
		return func(c *config.Config) { c.Maintenance.BackupIntervalMin = n }, nil
	case "maintenance.prune_interval_min":
		n, err := positiveInt(key, value)
		if err != nil {
			return nil, err
		}
		return func(c *config.Config) { c.Maintenance.PruneIntervalMin = n }, nil
	default:
		return nil, fmt.Errorf("unknown config key %q; run /config to list keys", key)
	}
}

func editableKeys() []string {
	keys := []string{
		"model.name",
		"model.max_tool_rounds",
		"state.backup_keep",
		"history.retention_days",
		"maintenance.backup_interval_min",
		"maintenance.prune_interval_min",
	}
	sort.Strings(keys)
	return keys
}

func positiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s: value %q must be a positive integer", key, value)
	}
	return n, nil
}
