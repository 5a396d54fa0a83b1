package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
)

// Watcher types reported by Type.
const (
	TypeFsnotify = "fsnotify"
	TypePolling  = "polling"
)

// CorpusWatcher emits debounced batches of changes to corpus files.
type CorpusWatcher struct {
	fsWatcher   *fsnotify.Watcher
	pollWatcher *PollingWatcher
	debouncer   *Debouncer
	events      chan []FileEvent
	errors      chan error
	stopCh      chan struct{}
	dir         string
	opts        Options
	mu          sync.RWMutex
	stopped     bool
}

// NewCorpusWatcher creates a watcher for dir. fsnotify is preferred; polling
// is used when it cannot be initialised or opts.ForcePolling is set.
func NewCorpusWatcher(dir string, opts Options) (*CorpusWatcher, error) {
	opts = opts.WithDefaults()

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve absolute path: %w", err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, lexerrors.New(lexerrors.ErrCodeCorpusDirMissing,
			fmt.Sprintf("corpus folder %s does not exist", abs), err)
	}

	w := &CorpusWatcher{
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		dir:       abs,
		opts:      opts,
	}

	if !opts.ForcePolling {
		if fsw, err := fsnotify.NewWatcher(); err == nil {
			w.fsWatcher = fsw
		}
	}
	if w.fsWatcher == nil {
		w.pollWatcher = NewPollingWatcher(opts.PollInterval, opts.relevant)
	}
	return w, nil
}

// Start watches until ctx is cancelled or Stop is called.
func (w *CorpusWatcher) Start(ctx context.Context) error {
	go w.forward(ctx)

	if w.fsWatcher != nil {
		return w.runFsnotify(ctx)
	}
	return w.runPolling(ctx)
}

func (w *CorpusWatcher) runFsnotify(ctx context.Context) error {
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch corpus folder: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *CorpusWatcher) runPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case event, ok := <-w.pollWatcher.Events():
				if !ok {
					return
				}
				w.debouncer.Add(event)
			case err, ok := <-w.pollWatcher.Errors():
				if !ok {
					return
				}
				w.emitError(err)
			}
		}
	}()
	return w.pollWatcher.Start(ctx, w.dir)
}

func (w *CorpusWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !w.opts.relevant(name) {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}

	w.debouncer.Add(FileEvent{Name: name, Operation: op, Timestamp: time.Now()})
}

func (w *CorpusWatcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case batch, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			w.emit(batch)
		}
	}
}

func (w *CorpusWatcher) emit(batch []FileEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.events <- batch:
	default:
	}
}

func (w *CorpusWatcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher and closes its channels. Safe to call multiple times.
func (w *CorpusWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()

	if w.fsWatcher != nil {
		_ = w.fsWatcher.Close()
	}
	if w.pollWatcher != nil {
		_ = w.pollWatcher.Stop()
	}
	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of change batches.
func (w *CorpusWatcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns non-fatal watcher errors.
func (w *CorpusWatcher) Errors() <-chan error {
	return w.errors
}

// Type returns TypeFsnotify or TypePolling.
func (w *CorpusWatcher) Type() string {
	if w.fsWatcher != nil {
		return TypeFsnotify
	}
	return TypePolling
}

// Dir returns the watched folder.
func (w *CorpusWatcher) Dir() string {
	return w.dir
}
