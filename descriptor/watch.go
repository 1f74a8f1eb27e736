package descriptor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pitabwire/util"
)

const DefaultWatchDebounce = 500 * time.Millisecond

// WatchResult is the outcome of one validation of a watched file.
type WatchResult struct {
	Path       string
	Descriptor *Descriptor
	Err        error
	At         time.Time
}

// WatchHandler receives every validation outcome.
type WatchHandler func(ctx context.Context, res WatchResult)

type WatchOption func(w *Watcher)

// WithDebounce sets how long the watcher waits after the last change before validating.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchHandler sets the function receiving validation outcomes.
func WithWatchHandler(h WatchHandler) WatchOption {
	return func(w *Watcher) {
		if h != nil {
			w.handler = h
		}
	}
}

// Watcher re-validates an authored descriptor file whenever it changes.
// It never alters the descriptor returned by Load.
type Watcher struct {
	path     string
	debounce time.Duration
	handler  WatchHandler

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	timer    *time.Timer
	closed   bool
	inflight sync.WaitGroup
	stopped  chan struct{}
}

func NewWatcher(path string, opts ...WatchOption) (*Watcher, error) {
	if _, err := FormatFromPath(path); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		debounce: DefaultWatchDebounce,
		handler:  func(context.Context, WatchResult) {},
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start validates the file once, then watches its directory until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw != nil {
		return errors.New("watcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors often replace files by rename, so the directory is watched instead of the file.
	if err = fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	w.fsw = fsw

	util.Log(ctx).WithField("path", w.path).Info("watching descriptor file")

	w.validate(ctx)
	go w.loop(ctx, fsw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.stopped)
	log := util.Log(ctx).WithField("path", w.path)

	for {
		select {
		case <-ctx.Done():
			log.Debug("descriptor watcher stopped")
			w.stopTimer()
			_ = fsw.Close()
			return

		case event, ok := <-fsw.Events:
			if !ok {
				w.stopTimer()
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.WithField("op", event.Op.String()).Debug("descriptor file changed")
			w.schedule(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				w.stopTimer()
				return
			}
			log.WithError(err).Error("descriptor watcher error")
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.closed || ctx.Err() != nil {
			w.mu.Unlock()
			return
		}
		w.inflight.Add(1)
		w.mu.Unlock()

		defer w.inflight.Done()
		w.validate(ctx)
	})
}

// stopTimer cancels the pending validation and refuses new ones.
func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) validate(ctx context.Context) {
	d, err := LoadFile(w.path)
	log := util.Log(ctx).WithField("path", w.path)
	if err != nil {
		log.WithError(err).Warn("descriptor file is invalid")
	} else {
		log.WithField("locales", d.Locales()).Info("descriptor file is valid")
	}
	w.handler(ctx, WatchResult{Path: w.path, Descriptor: d, Err: err, At: time.Now()})
}

// Close stops watching and waits for the watch loop and any running validation to finish.
// The handler is never called after Close returns.
func (w *Watcher) Close() error {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()

	if fsw == nil {
		return nil
	}
	w.stopTimer()
	err := fsw.Close()
	<-w.stopped
	w.inflight.Wait()
	return err
}
