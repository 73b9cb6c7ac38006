// Package watch reports prefab assets changed on disk by other processes.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"mirgo/internal/asset"
)

// DefaultDebounce collapses the burst of events a single save produces
// (temp file write, rename).
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches the directory of a FileStore.
type Watcher struct {
	store    *asset.FileStore
	fsw      *fsnotify.Watcher
	log      logrus.FieldLogger
	debounce time.Duration
}

func New(store *asset.FileStore, log logrus.FieldLogger) (*Watcher, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if err := fsw.Add(store.Dir()); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", store.Dir(), err)
	}
	return &Watcher{store: store, fsw: fsw, log: log, debounce: DefaultDebounce}, nil
}

// SetDebounce changes how long Run waits for more events before it
// reports a batch.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run calls fn with the ids of changed assets until ctx is done. Ids are
// batched while events keep arriving within the debounce window; each id
// appears once per batch, in the order it was first seen. The watcher is
// closed when Run returns.
func (w *Watcher) Run(ctx context.Context, fn func(ids []string)) error {
	defer w.fsw.Close()

	var (
		pending []string
		seen    = make(map[string]bool)
		timer   *time.Timer
		fire    <-chan time.Time
	)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		ids := pending
		pending, seen = nil, make(map[string]bool)
		fn(ids)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				flush()
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			id, ok := w.store.IDFromPath(ev.Name)
			if !ok {
				continue
			}
			w.log.WithFields(logrus.Fields{"asset": id, "op": ev.Op.String()}).Debug("asset changed on disk")
			if !seen[id] {
				seen[id] = true
				pending = append(pending, id)
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			flush()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watch error")
		}
	}
}
