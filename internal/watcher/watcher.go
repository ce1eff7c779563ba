// Package watcher observes project specs directories and signals when their
// contents change. It never loads specs itself; listeners re-scan.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// ChangeFunc is called once per debounce window for each project that
// changed. spec is the affected spec slug when exactly one changed.
type ChangeFunc func(projectID, spec string)

// Target is one specs directory to watch.
type Target struct {
	ProjectID string
	SpecsDir  string
}

// DefaultIgnore lists file name patterns whose changes are never reported.
var DefaultIgnore = []string{
	".specdesk-tmp-*",
	".*.swp",
	"*~",
	".DS_Store",
}

// Watch watches every target until ctx is cancelled, calling cb after
// changes settle for debounce. New directories are added as they appear.
func Watch(ctx context.Context, targets []Target, debounce time.Duration, logger *slog.Logger, cb ChangeFunc) error {
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	roots := make(map[string]string, len(targets))
	for _, t := range targets {
		abs, err := filepath.Abs(t.SpecsDir)
		if err != nil {
			continue
		}
		if err := addDirsRecursive(w, abs); err != nil {
			logger.Warn("watcher: cannot watch specs dir",
				slog.String("project", t.ProjectID),
				slog.String("dir", abs),
				slog.String("error", err.Error()))
			continue
		}
		roots[abs] = t.ProjectID
	}
	logger.Info("watcher: started", slog.Int("projects", len(roots)))

	pending := make(map[string]map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	flush := func() {
		for projectID, specs := range pending {
			spec := ""
			if len(specs) == 1 {
				for s := range specs {
					spec = s
				}
			}
			logger.Debug("watcher: specs changed", slog.String("project", projectID), slog.Int("specs", len(specs)))
			if cb != nil {
				cb(projectID, spec)
			}
		}
		pending = make(map[string]map[string]struct{})
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			flush()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ignored(ev.Name) {
				continue
			}
			root, projectID, ok := owner(roots, ev.Name)
			if !ok {
				continue
			}

			isDir := false
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					isDir = true
					if err := addDirsRecursive(w, ev.Name); err != nil {
						logger.Warn("watcher: add new dir failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
					}
				}
			}
			if !isDir && !strings.HasSuffix(ev.Name, ".md") && ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if pending[projectID] == nil {
				pending[projectID] = make(map[string]struct{})
			}
			pending[projectID][specOf(root, ev.Name)] = struct{}{}

			if timer == nil {
				timer = time.NewTimer(debounce)
				timerCh = timer.C
			} else {
				timer.Reset(debounce)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func ignored(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range DefaultIgnore {
		if match, _ := doublestar.Match(pattern, base); match {
			return true
		}
	}
	return false
}

// owner finds the watched root containing path. Nested roots resolve to
// the deepest one.
func owner(roots map[string]string, path string) (root, projectID string, ok bool) {
	for r, id := range roots {
		if path != r && !strings.HasPrefix(path, r+string(filepath.Separator)) {
			continue
		}
		if len(r) > len(root) {
			root, projectID, ok = r, id, true
		}
	}
	return root, projectID, ok
}

// specOf returns the spec slug a changed path belongs to, looking through
// the legacy archived/ directory. Changes at the root itself yield "".
func specOf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) == 1 && strings.HasSuffix(parts[0], ".md") {
		return ""
	}
	if parts[0] == "archived" {
		if len(parts) > 1 {
			return parts[1]
		}
		return ""
	}
	return parts[0]
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
