package registry

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// Watcher hot-swaps models when new artifacts land in model storage.
// Artifacts are named <model_id>-<version>.json, e.g. xgboost-1.2.0.json.
type Watcher struct {
	registry *ModelRegistry
	dir      string
	log      logger.Logger

	fs *fsnotify.Watcher
}

// NewWatcher creates a watcher over the model storage directory.
func NewWatcher(registry *ModelRegistry, dir string, log logger.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, err
	}
	return &Watcher{
		registry: registry,
		dir:      dir,
		log:      log.WithComponent("registry.watcher"),
		fs:       fs,
	}, nil
}

// Run consumes filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fs.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.handleArtifact(ctx, event.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn(ctx, "model storage watch error", logger.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handleArtifact(ctx context.Context, path string) {
	id, version, ok := parseArtifactName(filepath.Base(path))
	if !ok {
		return
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn(ctx, "failed to read model artifact",
			logger.String("path", path), logger.String("error", err.Error()))
		return
	}

	if err := w.registry.Swap(id, version, blob); err != nil {
		w.log.Error(ctx, "model hot-swap rejected", err,
			logger.String("model_id", string(id)),
			logger.String("version", version),
		)
		return
	}
	w.log.Info(ctx, "model hot-swapped from storage",
		logger.String("model_id", string(id)),
		logger.String("version", version),
	)
}

// parseArtifactName splits <model_id>-<version>.json. The version may itself
// contain dashes; the model id may not.
func parseArtifactName(name string) (models.ModelID, string, bool) {
	if !strings.HasSuffix(name, ".json") {
		return "", "", false
	}
	base := strings.TrimSuffix(name, ".json")
	idx := strings.Index(base, "-")
	if idx <= 0 || idx == len(base)-1 {
		return "", "", false
	}
	id := models.ModelID(base[:idx])
	if !models.KnownModel(id) {
		return "", "", false
	}
	return id, base[idx+1:], true
}
