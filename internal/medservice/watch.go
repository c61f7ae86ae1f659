package medservice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/medlog/internal/apperr"
	"github.com/starford/medlog/internal/checksum"
	"github.com/starford/medlog/internal/storage"
)

// debounceWindow batches bursts of filesystem events (editors often fire
// several per save) into one reload.
const debounceWindow = 200 * time.Millisecond

// Watch observes the file store's directory and reloads the service when a
// collection file changes on disk. Writes the service made itself are
// recognized by checksum and skipped. onReload, when non-nil, receives the
// collection name of every externally changed key. Blocks until ctx is done.
func Watch(ctx context.Context, svc *Service, store *storage.File, logger *slog.Logger, onReload func(collection string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(store.Root()); err != nil {
		return err
	}
	logger.Info("watching data directory", slog.String("dir", store.Root()))

	var (
		timer *time.Timer
		fire  <-chan time.Time
		dirty = make(map[string]struct{})
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			key, ok := store.KeyForPath(ev.Name)
			if !ok {
				continue
			}
			dirty[key] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				timer.Reset(debounceWindow)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", slog.String("error", err.Error()))

		case <-fire:
			fire = nil
			changed := externalChanges(svc, store, dirty)
			dirty = make(map[string]struct{})
			if len(changed) == 0 {
				continue
			}
			logger.Info("data changed on disk, reloading", slog.Int("keys", len(changed)))
			svc.Reload()
			if onReload != nil {
				for _, key := range changed {
					onReload(keyCollections[key])
				}
			}
		}
	}
}

// externalChanges filters dirty keys down to the ones whose on-disk content
// differs from what the service last wrote or read.
func externalChanges(svc *Service, store *storage.File, dirty map[string]struct{}) []string {
	var changed []string
	for key := range dirty {
		var sum string
		data, err := store.Get(key)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			// deleted file: checksum stays empty
		case err != nil:
			changed = append(changed, key)
			continue
		default:
			sum = checksum.Sum(data)
		}
		if sum != svc.LastChecksum(key) {
			changed = append(changed, key)
		}
	}
	return changed
}
