package watcher

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/lexmind/internal/ingest"
)

// Operation is a file system operation type.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a change to one corpus file.
type FileEvent struct {
	// Name is the file name inside the corpus folder.
	Name      string
	Operation Operation
	Timestamp time.Time
}

// Options configures a CorpusWatcher.
type Options struct {
	// DebounceWindow is the quiet period before a batch is emitted.
	// Default: 500ms
	DebounceWindow time.Duration

	// PollInterval is the scan interval in polling mode. Default: 5s
	PollInterval time.Duration

	// EventBufferSize is the number of batches buffered. Default: 16
	EventBufferSize int

	// Extensions limits events to corpus file types. Default: ingest.DefaultExtensions
	Extensions []string

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  500 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 16,
		Extensions:      ingest.DefaultExtensions,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if len(o.Extensions) == 0 {
		o.Extensions = defaults.Extensions
	}
	return o
}

// relevant reports whether name is a corpus file the loader would read.
func (o Options) relevant(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	ext := filepath.Ext(name)
	for _, e := range o.Extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
