package prompts

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/halvard/skald/internal/models"
)

// kindForFile maps an override filename (without extension) to an edit
// kind. Returns "" for files that are not prompt overrides.
func kindForFile(name string) models.EditKind {
	base := strings.TrimSuffix(filepath.Base(name), ".md")
	switch k := models.EditKind(base); k {
	case models.EditFormatMarkdown, models.EditFixGrammar, models.EditAddHeadings,
		models.EditImproveStructure, models.EditMakeConcise, models.EditExpand,
		models.EditAdjustTone:
		return k
	}
	return ""
}

// LoadDir loads every "<kind>.md" override present in dir. Missing
// dir is not an error: the built-in defaults simply apply.
func (l *Library) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		kind := kindForFile(e.Name())
		if kind == "" {
			continue
		}
		data, readErr := os.ReadFile(filepath.Join(dir, e.Name()))
		if readErr != nil {
			return readErr
		}
		l.setOverride(kind, strings.TrimSpace(string(data)))
	}
	return nil
}

// Watch starts an fsnotify watcher on the override directory and
// hot-reloads prompt overrides until ctx is cancelled. A removed or
// renamed file falls back to the built-in default for its kind.
func (l *Library) Watch(ctx context.Context, dir string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("prompts: watching overrides", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("prompts: watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			kind := kindForFile(ev.Name)
			if kind == "" {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := os.ReadFile(ev.Name)
				if readErr != nil {
					logger.Warn("prompts: read override failed",
						slog.String("file", ev.Name),
						slog.String("error", readErr.Error()))
					continue
				}
				l.setOverride(kind, strings.TrimSpace(string(data)))
				logger.Debug("prompts: override loaded", slog.String("kind", string(kind)))

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				l.clearOverride(kind)
				logger.Debug("prompts: override cleared", slog.String("kind", string(kind)))
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("prompts: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
