// Package watch re-runs an action when transcripts in a directory change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/ShayCichocki/c4pm/internal/ingest"
	"github.com/ShayCichocki/c4pm/internal/logging"
)

// DefaultDebounce is how long the directory must stay quiet before the
// action runs again.
const DefaultDebounce = 2 * time.Second

// Watcher runs an action after bursts of transcript changes.
type Watcher struct {
	debounce time.Duration
	log      logrus.FieldLogger
	patterns []string
}

// New creates a Watcher. A debounce of zero or less means DefaultDebounce.
func New(debounce time.Duration, log logrus.FieldLogger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		debounce: debounce,
		log:      logging.OrDiscard(log),
		patterns: ingest.Extensions,
	}
}

// Run calls fn once, then again each time transcript files in dir are
// created, written, removed or renamed and the directory has been quiet for
// the debounce interval. Errors from fn are logged and watching continues.
// Run returns nil when ctx is done.
func (w *Watcher) Run(ctx context.Context, dir string, fn func(context.Context) error) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.call(ctx, fn)
	w.log.WithField("dir", dir).Info("watching for transcript changes")

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.WithFields(logrus.Fields{"file": filepath.Base(event.Name), "op": event.Op.String()}).
				Debug("transcript changed")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watcher error")

		case <-fire:
			fire = nil
			w.call(ctx, fn)
		}
	}
}

// call runs fn and logs its failure. Cancellation is not logged.
func (w *Watcher) call(ctx context.Context, fn func(context.Context) error) {
	err := fn(ctx)
	if err == nil {
		return
	}
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return
	}
	w.log.WithError(err).Error("run failed; waiting for the next change")
}

// relevant reports whether event touches a transcript file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	for _, pattern := range w.patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
