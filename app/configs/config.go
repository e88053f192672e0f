package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Config struct {
	Model       ModelConfig       `json:"model"`
	State       StateConfig       `json:"state"`
	History     HistoryConfig     `json:"history"`
	Maintenance MaintenanceConfig `json:"maintenance"`
}

type ModelConfig struct {
	Name          string `json:"name"`
	APIKeyEnv     string `json:"api_key_env"`
	MaxToolRounds int    `json:"max_tool_rounds"`
}

type StateConfig struct {
	Path       string `json:"path"`
	BackupDir  string `json:"backup_dir"`
	BackupKeep int    `json:"backup_keep"`
}

type HistoryConfig struct {
	Dir           string `json:"dir"`
	RetentionDays int    `json:"retention_days"`
}

type MaintenanceConfig struct {
	BackupIntervalMin int `json:"backup_interval_min"`
	PruneIntervalMin  int `json:"prune_interval_min"`
}

type Manager struct {
	path string
	mu   sync.RWMutex
	cfg  Config
}

func DefaultPath() string {
	return filepath.Join("config", "config.json")
}

func NewManager(path string) (*Manager, error) {
	cfg := defaultConfig()
	mgr := &Manager{
		path: path,
		cfg:  cfg,
	}
	if err := mgr.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if err := mgr.save(); err != nil {
		return nil, err
	}
	return mgr, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Update(apply func(*Config)) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apply(&m.cfg)
	applyDefaults(&m.cfg)
	if err := m.saveLocked(); err != nil {
		return Config{}, err
	}
	return m.cfg, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return err
	}
	m.cfg = fileCfg
	applyDefaults(&m.cfg)
	return nil
}

func (m *Manager) save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0644)
}

func defaultConfig() Config {
	return Config{
		Model: ModelConfig{
			Name:          "gpt-4o",
			APIKeyEnv:     "OPENAI_API_KEY",
			MaxToolRounds: 4,
		},
		State: StateConfig{
			Path:       filepath.Join("output", "state", "tasks.json"),
			BackupDir:  filepath.Join("output", "state", "backups"),
			BackupKeep: 5,
		},
		History: HistoryConfig{
			Dir:           filepath.Join("output", "db"),
			RetentionDays: 30,
		},
		Maintenance: MaintenanceConfig{
			BackupIntervalMin: 30,
			PruneIntervalMin:  360,
		},
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Model.Name) == "" {
		cfg.Model.Name = "gpt-4o"
	}
	if strings.TrimSpace(cfg.Model.APIKeyEnv) == "" {
		cfg.Model.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Model.MaxToolRounds <= 0 {
		cfg.Model.MaxToolRounds = 4
	}
	if strings.TrimSpace(cfg.State.Path) == "" {
		cfg.State.Path = filepath.Join("output", "state", "tasks.json")
	}
	if strings.TrimSpace(cfg.State.BackupDir) == "" {
		cfg.State.BackupDir = filepath.Join("output", "state", "backups")
	}
	if cfg.State.BackupKeep <= 0 {
		cfg.State.BackupKeep = 5
	}
	if strings.TrimSpace(cfg.History.Dir) == "" {
		cfg.History.Dir = filepath.Join("output", "db")
	}
	if cfg.History.RetentionDays <= 0 {
		cfg.History.RetentionDays = 30
	}
	if cfg.Maintenance.BackupIntervalMin <= 0 {
		cfg.Maintenance.BackupIntervalMin = 30
	}
	if cfg.Maintenance.PruneIntervalMin <= 0 {
		cfg.Maintenance.PruneIntervalMin = 360
	}
}
