package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/micro-nova/btplayer/internal/events"
)

// DefaultSettle is how long the directory must be quiet before a change is
// reported. Copying one track produces a burst of writes.
const DefaultSettle = 500 * time.Millisecond

// Watch reports directory changes until ctx is done. Once a burst of
// changes settles it posts StorageLoaded with the track count (up to
// limit), or StorageError when the listing fails.
func (d *Dir) Watch(ctx context.Context, out events.Poster, limit int, settle time.Duration) error {
	if settle <= 0 {
		settle = DefaultSettle
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("storage: watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(d.root); err != nil {
		return fmt.Errorf("storage: watch %s: %w", d.root, err)
	}

	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Write) {
				timer.Reset(settle)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("storage: watcher error", "err", err)
			post(out, events.Event{Kind: events.StorageError})
		case <-timer.C:
			d.mu.Lock()
			d.mounted = true
			d.mu.Unlock()
			names, err := d.ListTracks(limit)
			if err != nil {
				slog.Warn("storage: rescan failed", "err", err)
				post(out, events.Event{Kind: events.StorageError})
				continue
			}
			slog.Info("storage: library changed", "tracks", len(names))
			post(out, events.Event{Kind: events.StorageLoaded, Param: uint32(len(names))})
		}
	}
}

func post(out events.Poster, ev events.Event) {
	if err := out.Post(ev); err != nil {
		slog.Warn("storage: event dropped", "event", ev, "err", err)
	}
}
