package table

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch evicts cached tables as soon as one of paths is written, replaced or
// removed. It watches the parent directories, since editors commonly save by
// renaming a temporary file over the original. Watching stops when ctx is
// cancelled.
func (l *Loader) Watch(ctx context.Context, paths ...string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	watched := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		key := cacheKey(p)
		watched[key] = true
		dirs[filepath.Dir(key)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		l.log.Debug("watching source directory", zap.String("dir", dir))
	}

	go l.watchLoop(ctx, w, watched)
	return nil
}

func (l *Loader) watchLoop(ctx context.Context, w *fsnotify.Watcher, watched map[string]bool) {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			key := cacheKey(ev.Name)
			if !watched[key] {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				l.Invalidate(key)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			l.log.Warn("source watcher error", zap.Error(err))
		}
	}
}
