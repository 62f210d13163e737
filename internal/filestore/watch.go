package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce — пауза после последнего события перед перечитыванием.
const reloadDebounce = 200 * time.Millisecond

// Watch следит за каталогами flows/ и responses/ и перечитывает хранилище,
// когда JSON-файлы меняются снаружи (например, при ручной правке).
// Блокируется до отмены ctx.
func (s *Store) Watch(ctx context.Context, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, sub := range []string{flowsDir, responsesDir} {
		if err := watcher.Add(filepath.Join(s.dir, sub)); err != nil {
			return fmt.Errorf("watch %s: %w", sub, err)
		}
	}

	logger.Info("file store watcher started", "dir", s.dir)

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			timer.Reset(reloadDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file store watcher error", "error", err)

		case <-timer.C:
			if err := s.Reload(); err != nil {
				logger.Error("file store reload failed", "error", err)
				continue
			}
			logger.Info("file store reloaded", "dir", s.dir)
		}
	}
}

// relevant — событие по JSON-файлу данных (не временному).
func relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, tmpPrefix) || filepath.Ext(name) != ".json" {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
