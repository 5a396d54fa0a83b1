package watcher

import (
	"context"
	"log/slog"
	"time"
)

// Reloader rebuilds searchable state from the corpus folder.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Run starts w and calls r.Reload once per change batch until ctx is
// cancelled. Reload failures are logged; the watcher keeps running.
func Run(ctx context.Context, w *CorpusWatcher, r Reloader) error {
	go func() {
		if err := w.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("corpus_watcher_failed", slog.String("error", err.Error()))
			_ = w.Stop()
		}
	}()

	slog.Info("corpus_watcher_started",
		slog.String("dir", w.Dir()),
		slog.String("type", w.Type()))

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return nil
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			names := make([]string, len(batch))
			for i, e := range batch {
				names[i] = e.Name
			}
			slog.Info("corpus_change_detected", slog.Any("files", names))

			start := time.Now()
			if err := r.Reload(ctx); err != nil {
				slog.Error("corpus_reload_failed", slog.String("error", err.Error()))
				continue
			}
			slog.Info("corpus_reloaded", slog.Duration("duration", time.Since(start)))
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			slog.Warn("corpus_watcher_error", slog.String("error", err.Error()))
		}
	}
}
