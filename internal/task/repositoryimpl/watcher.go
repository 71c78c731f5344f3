package repositoryimpl

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval coalesces the write+rename event pairs produced by the
// atomic document swap into a single callback.
const debounceInterval = 200 * time.Millisecond

// DocumentWatcher detects out-of-band edits to the local task document (for
// example a hand-edited YAML file) and invokes onChange so subscribers can be
// resynchronized. It watches the containing directory because the document is
// replaced by rename on every write.
type DocumentWatcher struct {
	path     string
	onChange func()
}

func NewDocumentWatcher(documentPath string, onChange func()) *DocumentWatcher {
	return &DocumentWatcher{
		path:     documentPath,
		onChange: onChange,
	}
}

// Start blocks until ctx is cancelled.
func (w *DocumentWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// The document directory may not exist before the first write.
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		return err
	}
	slog.Info("document watcher started", "path", w.path)

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			slog.Info("document watcher stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceInterval, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			slog.Debug("task document changed on disk", "path", w.path)
			w.onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("document watcher error", "error", err)
		}
	}
}
