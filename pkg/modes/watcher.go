package modes

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch invalidates the store whenever its file is written, created, removed or
// renamed. The parent directory is watched so editors that replace the file
// atomically are observed. Watch returns once the watcher is running; it stops
// when ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)

	go func() {
		defer watcher.Close()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				log.Debug().
					Str("path", event.Name).
					Str("op", event.Op.String()).
					Msg("Custom modes file changed, invalidating cache")
				s.Invalidate()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("Custom modes watcher error")

			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info().Str("path", s.path).Msg("Custom modes watcher started")

	return nil
}
