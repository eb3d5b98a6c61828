package yamlfile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch debounce window. Editors tend to emit bursts (write, chmod,
// rename) for a single save; one signal per burst is enough since the
// consumer re-reads the whole document anyway.
const watchDebounce = 100 * time.Millisecond

// Watch implements ports.Watchable. It signals whenever the document
// file changes on disk. The parent directory is watched rather than the
// file itself so atomic saves (write to temp, rename over) keep being
// tracked after the inode is replaced.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("start file watcher: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		defer fw.Close()

		ticker := time.NewTicker(watchDebounce)
		defer ticker.Stop()

		var pending time.Time

		for {
			select {
			case <-ctx.Done():
				return

			case evt, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != l.path {
					continue
				}
				if evt.Has(fsnotify.Write) || evt.Has(fsnotify.Create) ||
					evt.Has(fsnotify.Rename) || evt.Has(fsnotify.Remove) {
					pending = time.Now()
				}

			case now := <-ticker.C:
				if pending.IsZero() || now.Sub(pending) < watchDebounce {
					continue
				}
				pending = time.Time{}
				select {
				case ch <- struct{}{}:
				default:
					// A reload signal is already pending; coalesce.
				}

			case _, ok := <-fw.Errors:
				if !ok {
					return
				}
				// Watcher errors are non-fatal; the next successful
				// event still produces a signal.
			}
		}
	}()

	return ch, nil
}
