package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	config "arbor/app/configs"
)

// RunPreflight verifies the config is usable and the data directories
// are writable before anything is opened.
func RunPreflight(cfg config.Config) error {
	if err := ValidateConfig(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := checkDirWritable(filepath.Dir(cfg.State.Path)); err != nil {
		return fmt.Errorf("state dir check failed: %w", err)
	}
	if err := checkDirWritable(cfg.State.BackupDir); err != nil {
		return fmt.Errorf("backup dir check failed: %w", err)
	}
	if err := checkDirWritable(cfg.History.Dir); err != nil {
		return fmt.Errorf("history dir check failed: %w", err)
	}
	return nil
}

func ValidateConfig(cfg config.Config) error {
	if strings.TrimSpace(cfg.Model.Name) == "" {
		return fmt.Errorf("model.name is required")
	}
	if strings.TrimSpace(cfg.Model.APIKeyEnv) == "" {
		return fmt.Errorf("model.api_key_env is required")
	}
	if cfg.Model.MaxToolRounds <= 0 {
		return fmt.Errorf("model.max_tool_rounds must be > 0")
	}
	if strings.TrimSpace(cfg.State.Path) == "" {
		return fmt.Errorf("state.path is required")
	}
	if strings.TrimSpace(cfg.State.BackupDir) == "" {
		return fmt.Errorf("state.backup_dir is required")
	}
	if cfg.State.BackupKeep <= 0 {
		return fmt.Errorf("state.backup_keep must be > 0")
	}
	if strings.TrimSpace(cfg.History.Dir) == "" {
		return fmt.Errorf("history.dir is required")
	}
	if cfg.History.RetentionDays <= 0 {
		return fmt.Errorf("history.retention_days must be > 0")
	}
	if cfg.Maintenance.BackupIntervalMin <= 0 {
		return fmt.Errorf("maintenance.backup_interval_min must be > 0")
	}
	if cfg.Maintenance.PruneIntervalMin <= 0 {
		return fmt.Errorf("maintenance.prune_interval_min must be > 0")
	}
	return nil
}

func checkDirWritable(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return fmt.Errorf("directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probePath := filepath.Join(dir, ".arbor-preflight-write-check")
	f, err := os.OpenFile(probePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString("ok\n"); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Remove(probePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
