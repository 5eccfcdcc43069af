package monitoring

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ArtifactWatcher warns when the model artifact on disk no longer matches
// what the service loaded at startup. The running model is never swapped,
// retraining only takes effect after a restart.
type ArtifactWatcher struct {
	path     string
	logger   *zap.Logger
	monitor  *PredictionMonitor
	onChange func()
}

// NewArtifactWatcher watches the artifact at path. onChange is invoked on
// every detected change and may be nil.
func NewArtifactWatcher(path string, logger *zap.Logger, monitor *PredictionMonitor, onChange func()) (*ArtifactWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact path: %w", err)
	}
	return &ArtifactWatcher{
		path:     absPath,
		logger:   logger,
		monitor:  monitor,
		onChange: onChange,
	}, nil
}

// Run blocks until the context is canceled. The parent directory is
// watched rather than the file itself so atomic replaces are seen too.
func (w *ArtifactWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create artifact watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching model artifact", zap.String("path", w.path))

	var lastWarn time.Time
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			// editors and atomic saves fire bursts of events, warn once per second
			if time.Since(lastWarn) < time.Second {
				continue
			}
			lastWarn = time.Now()

			w.logger.Warn("model artifact changed on disk, loaded model is stale until restart",
				zap.String("path", w.path),
				zap.String("op", event.Op.String()))
			if w.monitor != nil {
				w.monitor.SendModelStatus(ModelStatusMessage{
					Event:     "artifact_changed",
					Path:      w.path,
					Message:   "model artifact changed on disk, restart the service to pick it up",
					Timestamp: time.Now().UTC(),
				})
			}
			if w.onChange != nil {
				w.onChange()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("artifact watcher error", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}
