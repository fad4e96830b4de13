package vault

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/forest6511/totpctl/pkg/failure"
)

// watchDebounce coalesces the burst of events produced by one save.
const watchDebounce = 100 * time.Millisecond

// Watch reports changes to the vault file until ctx is done, then closes the
// returned channel. The parent directory is watched rather than the file
// because Save replaces the file by renaming over it.
func (s *FileStore) Watch(ctx context.Context) (<-chan struct{}, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return nil, failure.Wrapf(failure.Storage, "vault: create vault directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, failure.Wrapf(failure.Storage, "vault: create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, failure.Wrapf(failure.Storage, "vault: watch %s: %w", dir, err)
	}

	changes := make(chan struct{}, 1)
	target := filepath.Clean(s.path)

	go func() {
		defer close(changes)
		defer w.Close()

		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				fire = time.After(watchDebounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Debug().Err(err).Msg("vault watcher error")
			case <-fire:
				fire = nil
				select {
				case changes <- struct{}{}:
				default:
				}
			}
		}
	}()
	return changes, nil
}
