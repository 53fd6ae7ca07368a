package library

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manifests and alignment artifacts are written by external tooling, so a
// write burst is normal. Changes are debounced and collapsed into a single
// reload.
const reloadSettleDelay = 500 * time.Millisecond

// Watch monitors the content directory and reloads the library when files
// change. Blocks until the context is cancelled.
func (l *Library) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(l.basePath); err != nil {
		return err
	}
	// watch existing book directories; new ones are picked up on create
	entries, _ := filepath.Glob(filepath.Join(l.basePath, "*"))
	for _, entry := range entries {
		if err := watcher.Add(entry); err != nil {
			l.logger.Debug("not watching path", "path", entry, "error", err)
		}
	}

	var mu sync.Mutex
	var settle *time.Timer
	scheduleReload := func() {
		mu.Lock()
		defer mu.Unlock()
		if settle != nil {
			settle.Stop()
		}
		settle = time.AfterFunc(reloadSettleDelay, func() {
			if err := l.Reload(ctx); err != nil && ctx.Err() == nil {
				l.logger.Error("content reload failed", "error", err)
			}
		})
	}
	defer func() {
		mu.Lock()
		if settle != nil {
			settle.Stop()
		}
		mu.Unlock()
	}()

	l.logger.Info("watching content directory", "path", l.basePath)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// may be a new book directory
				if err := watcher.Add(event.Name); err == nil {
					l.logger.Debug("added watch", "path", event.Name)
				}
			}
			scheduleReload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("content watcher error", "error", err)
		}
	}
}
