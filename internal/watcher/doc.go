// Package watcher watches a corpus folder and triggers full rebuilds when
// documents are added, changed or removed.
//
// fsnotify is used when available, with polling as a fallback for mounts
// that do not deliver events. Events are debounced so that copying a batch
// of files yields one rebuild:
//
//	w, err := watcher.NewCorpusWatcher(dir, watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	return watcher.Run(ctx, w, sess)
package watcher
