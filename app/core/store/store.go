// Package store keeps the task forest in a JSON state document on
// disk. The document is a key-value object; the forest lives under one
// fixed key, and unrelated keys written by other tooling survive every
// update.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"arbor/app/core/forest"
	"arbor/app/pkg/logger"
)

const tasksKey = "tasks"

const backupPrefix = "tasks_"

// Store owns the in-memory forest and its on-disk document. All reads
// hand out deep copies; all writes go through Replace, which swaps the
// whole forest at once.
type Store struct {
	path  string
	mu    sync.RWMutex
	tasks []forest.Task
}

// Open loads the state document at path. A missing or unreadable
// document seeds the built-in default forest and writes it out.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the state document location.
func (s *Store) Path() string {
	return s.path
}

// Tasks returns a deep copy of the current forest.
func (s *Store) Tasks() []forest.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return forest.Clone(s.tasks)
}

// Replace swaps in a new forest and writes the document. The swap
// always happens; a write error leaves the previous file content in
// place until the next successful write.
func (s *Store) Replace(next []forest.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = forest.Clone(next)
	return s.persistLocked()
}

// Reload re-reads the document from disk. Unparseable content and a
// missing tasks key both fall back to the default forest rather than
// surfacing garbled state.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		logger.Info("state document %s missing, seeding default tasks", s.path)
		return s.resetToDefault()
	}

	tasks, ok := decodeTasks(data)
	if !ok {
		logger.Error("state document %s unreadable, falling back to default tasks", s.path)
		return s.resetToDefault()
	}

	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
	return nil
}

func (s *Store) resetToDefault() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = forest.DefaultForest()
	return s.persistLocked()
}

func decodeTasks(data []byte) ([]forest.Task, bool) {
	if !gjson.ValidBytes(data) {
		return nil, false
	}
	node := gjson.GetBytes(data, tasksKey)
	if !node.Exists() || !node.IsArray() {
		return nil, false
	}
	var tasks []forest.Task
	if err := json.Unmarshal([]byte(node.Raw), &tasks); err != nil {
		return nil, false
	}
	if tasks == nil {
		tasks = []forest.Task{}
	}
	return tasks, true
}

func (s *Store) persistLocked() error {
	tasks := s.tasks
	if tasks == nil {
		tasks = []forest.Task{}
	}
	raw, err := json.Marshal(tasks)
	if err != nil {
		return err
	}

	doc := []byte("{}")
	if existing, readErr := os.ReadFile(s.path); readErr == nil && gjson.ValidBytes(existing) {
		doc = existing
	}
	doc, err = sjson.SetRawBytes(doc, tasksKey, raw)
	if err != nil {
		return err
	}
	doc = pretty.Pretty(doc)

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	// Write-then-rename so readers never observe a half-written document.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, doc, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Backup copies the current document into dir under a timestamped name
// and prunes old copies down to keep. Returns the written path.
func (s *Store) Backup(dir string, keep int) (string, error) {
	s.mu.Lock()
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		if err := s.persistLocked(); err != nil {
			s.mu.Unlock()
			return "", err
		}
	}
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s%d.json", backupPrefix, time.Now().UTC().UnixNano())
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, data, 0644); err != nil {
		return "", err
	}

	if keep > 0 {
		if err := pruneBackups(dir, keep); err != nil {
			logger.Error("pruning state backups failed: %v", err)
		}
	}
	return target, nil
}

func pruneBackups(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, backupPrefix) && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	if len(names) <= keep {
		return nil
	}
	sort.Strings(names)
	for _, name := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}
