package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// PollingWatcher detects changes by rescanning the corpus folder. Only the
// top level is scanned, matching what the loader reads.
type PollingWatcher struct {
	interval time.Duration
	filter   func(name string) bool
	state    map[string]fileSnapshot
	events   chan FileEvent
	errors   chan error
	stopCh   chan struct{}
	mu       sync.Mutex
	stopped  bool
	dir      string
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// NewPollingWatcher creates a polling watcher. filter selects the file
// names reported; nil reports every regular file.
func NewPollingWatcher(interval time.Duration, filter func(string) bool) *PollingWatcher {
	if filter == nil {
		filter = func(string) bool { return true }
	}
	return &PollingWatcher{
		interval: interval,
		filter:   filter,
		state:    make(map[string]fileSnapshot),
		events:   make(chan FileEvent, 100),
		errors:   make(chan error, 10),
		stopCh:   make(chan struct{}),
	}
}

// Start scans dir every interval until ctx is cancelled or Stop is called.
func (p *PollingWatcher) Start(ctx context.Context, dir string) error {
	p.dir = dir
	initial, err := p.scan()
	if err != nil {
		return fmt.Errorf("perform initial scan: %w", err)
	}
	p.mu.Lock()
	p.state = initial
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.detectChanges(); err != nil {
				p.mu.Lock()
				if !p.stopped {
					select {
					case p.errors <- err:
					default:
					}
				}
				p.mu.Unlock()
			}
		}
	}
}

// Stop stops the watcher. Safe to call multiple times.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the channel of file events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Errors returns the channel of scan errors.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}

func (p *PollingWatcher) scan() (map[string]fileSnapshot, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]fileSnapshot, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !p.filter(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out[entry.Name()] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
	}
	return out, nil
}

func (p *PollingWatcher) detectChanges() error {
	current, err := p.scan()
	if err != nil {
		return fmt.Errorf("scan corpus folder: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for name, snap := range current {
		prev, ok := p.state[name]
		switch {
		case !ok:
			p.emit(FileEvent{Name: name, Operation: OpCreate, Timestamp: now})
		case prev != snap:
			p.emit(FileEvent{Name: name, Operation: OpModify, Timestamp: now})
		}
	}
	for name := range p.state {
		if _, ok := current[name]; !ok {
			p.emit(FileEvent{Name: name, Operation: OpDelete, Timestamp: now})
		}
	}
	p.state = current
	return nil
}

// emit must be called with p.mu held.
func (p *PollingWatcher) emit(event FileEvent) {
	if p.stopped {
		return
	}
	select {
	case p.events <- event:
	default:
		slog.Warn("polling_watcher_buffer_full",
			slog.String("file", event.Name),
			slog.String("op", event.Operation.String()))
	}
}
