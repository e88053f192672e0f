package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"arbor/app/core/forest"
	"arbor/app/pkg/logger"
)

// debounceDelay coalesces rapid write events, such as an editor saving
// through a temp file, into a single reload.
const debounceDelay = 100 * time.Millisecond

// Watch blocks until ctx is done, reloading the document and invoking
// onChange with a fresh forest whenever the state file changes on
// disk. The parent directory is watched so recreate-and-rename writers
// are seen too.
func (s *Store) Watch(ctx context.Context, onChange func([]forest.Task)) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(dir); err != nil {
		return err
	}

	var mu sync.Mutex
	var timer *time.Timer
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	reload := func() {
		if err := s.Reload(); err != nil {
			logger.Error("reloading state document failed: %v", err)
			return
		}
		onChange(s.Tasks())
	}

	base := filepath.Base(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, reload)
			mu.Unlock()
		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("state watcher: %v", watchErr)
		}
	}
}
