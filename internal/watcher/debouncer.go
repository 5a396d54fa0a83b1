package watcher

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// opNone marks a pair of events that cancel each other out.
const opNone Operation = -1

// coalesceRules maps (first, next) operations on one file within a window
// to the operation reported. Pairs not listed report next.
var coalesceRules = map[[2]Operation]Operation{
	{OpCreate, OpModify}: OpCreate,
	{OpCreate, OpDelete}: opNone,
	{OpDelete, OpCreate}: OpModify,
}

// Debouncer coalesces file events and emits them as one batch after the
// window passes without further events.
type Debouncer struct {
	window  time.Duration
	pending map[string]FileEvent
	mu      sync.Mutex
	output  chan []FileEvent
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]FileEvent),
		output:  make(chan []FileEvent, 10),
	}
}

// Add queues event and restarts the window.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if existing, ok := d.pending[event.Name]; ok {
		op, listed := coalesceRules[[2]Operation{existing.Operation, event.Operation}]
		switch {
		case listed && op == opNone:
			delete(d.pending, event.Name)
		case listed:
			existing.Timestamp = event.Timestamp
			existing.Operation = op
			d.pending[event.Name] = existing
		default:
			d.pending[event.Name] = event
		}
	} else {
		d.pending[event.Name] = event
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush emits pending events sorted by name.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	events := make([]FileEvent, 0, len(d.pending))
	for _, e := range d.pending {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Name < events[j].Name })
	d.pending = make(map[string]FileEvent)

	select {
	case d.output <- events:
	default:
		slog.Warn("debouncer_output_full", slog.Int("batch_size", len(events)))
	}
}

// Output returns the channel of debounced batches.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.output
}

// Stop stops the debouncer and closes the output channel. Safe to call
// multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
