// pkg/config/watch.go

package config

import (
	"context"
	"path/filepath"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// reloadDebounce collapses the burst of events editors emit on save.
const reloadDebounce = 500 * time.Millisecond

// Watch reloads the file at path whenever it changes and hands each valid
// snapshot to onChange. Invalid edits are logged and the previous snapshot
// stays in effect. Watch returns once the watcher is running.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return cerr.Wrap(err, "create config watcher")
	}
	// watch the directory: editors often replace the file rather than write it
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return cerr.Wrapf(err, "watch %s", filepath.Dir(path))
	}
	go runWatcher(ctx, w, path, onChange)
	return nil
}

func runWatcher(ctx context.Context, w *fsnotify.Watcher, path string, onChange func(*Config)) {
	logger := otelzap.Ctx(ctx)
	target := filepath.Clean(path)

	var pending <-chan time.Time
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.After(reloadDebounce)
			}
		case <-pending:
			pending = nil
			cfg, err := Load(path)
			if err != nil {
				logger.Warn("Config reload rejected, keeping previous settings",
					zap.String("path", path), zap.Error(err))
				continue
			}
			logger.Info("Config reloaded", zap.String("path", path),
				zap.Int("servers", len(cfg.Servers)),
				zap.Int("poll_interval_seconds", cfg.PollIntervalSeconds))
			onChange(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("Config watcher error", zap.Error(err))
		case <-ctx.Done():
			_ = w.Close()
			return
		}
	}
}
