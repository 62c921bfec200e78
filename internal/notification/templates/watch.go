package templates

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/project-queyk/queyk-backend/internal/logging"
)

// Watch reloads path into store whenever it changes, until ctx is cancelled. A reload that fails to
// parse or validate is logged and the previous templates stay active.
// The parent directory is watched so atomic saves (write temp file, rename) are seen.
func Watch(ctx context.Context, path string, store *Store, logger *slog.Logger) error {
	if path == "" {
		return ErrNoPath
	}
	logger = logging.OrDefault(logger).With("component", "templates")
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)
	logger.Info("watching alert templates", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			t, err := Load(path)
			if err != nil {
				logger.Error("reload failed, keeping previous templates", "path", path, "error", err)
				continue
			}
			if err := store.Set(t); err != nil {
				logger.Error("reloaded templates rejected", "path", path, "error", err)
				continue
			}
			logger.Info("alert templates reloaded", "path", path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("template watcher error", "error", err)
		}
	}
}
