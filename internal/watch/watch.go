// Package watch reports changes to a single file using fsnotify.
package watch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// File watches path and calls onChange after every write or create event for
// it until ctx is done. The parent directory is watched so editors that save
// atomically (write temp file, rename) are still noticed. File blocks.
func File(ctx context.Context, path string, logger zerolog.Logger, onChange func()) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watch: watch directory: %w", err)
	}
	logger.Info().Str("path", absPath).Msg("watching file for changes")

	filename := filepath.Base(absPath)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("file changed")
				onChange()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error().Err(err).Msg("file watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}
