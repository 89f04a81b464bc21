package index

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// setupWatchesLocked creates the fsnotify watcher and starts the event loop.
// Caller holds watchMu. Watches on individual directories are best effort;
// only watcher creation itself can fail.
func (ix *Index) setupWatchesLocked() error {
	if ix.watcher != nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	ix.watcher = w
	ix.watchedDirs = make(map[string]bool)

	if err := w.Add(ix.projectsDir); err != nil {
		ix.log.WithError(err).Debug("cannot watch projects root")
	} else {
		ix.watchedDirs[ix.projectsDir] = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	ix.watchCancel = cancel
	go ix.run(ctx, w)

	// Seed the watch set and the cache so subscribers start from a committed
	// snapshot rather than an empty one.
	go ix.Refresh()

	return nil
}

// teardownWatchesLocked closes the watcher and cancels any pending debounce
// timer. Caller holds watchMu. An idle index holds no OS watch handles.
func (ix *Index) teardownWatchesLocked() {
	if ix.debounceTimer != nil {
		ix.debounceTimer.Stop()
		ix.debounceTimer = nil
	}
	if ix.watchCancel != nil {
		ix.watchCancel()
		ix.watchCancel = nil
	}
	if ix.watcher != nil {
		ix.watcher.Close()
		ix.watcher = nil
	}
	ix.watchedDirs = make(map[string]bool)
}

// run consumes filesystem events until the watcher is torn down. Event
// callbacks stay cheap: they only arm the debounce timer, never scan.
func (ix *Index) run(ctx context.Context, w *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				ix.scheduleRefresh()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			ix.log.WithError(err).Debug("watch error")
		}
	}
}

// scheduleRefresh arms the debounce timer unless one is already pending.
// Later events inside the window are absorbed, so a continuous event storm
// still refreshes once per window instead of never.
func (ix *Index) scheduleRefresh() {
	ix.watchMu.Lock()
	defer ix.watchMu.Unlock()

	if ix.debounceTimer != nil {
		return
	}
	ix.debounceTimer = time.AfterFunc(ix.debounce, func() {
		ix.watchMu.Lock()
		ix.debounceTimer = nil
		ix.watchMu.Unlock()

		// Subscribers are notified from the scan commit itself.
		ix.Refresh()
	})
}

// resyncWatches reconciles the watched-directory set with the directories
// seen by the scan that just committed. Watch-creation failures (e.g. a
// directory removed between listing and watching) skip that directory.
func (ix *Index) resyncWatches(projectDirs []string) {
	ix.watchMu.Lock()
	defer ix.watchMu.Unlock()

	if ix.watcher == nil {
		return
	}

	desired := map[string]bool{ix.projectsDir: true}
	for _, dir := range projectDirs {
		desired[dir] = true
	}

	for dir := range desired {
		if ix.watchedDirs[dir] {
			continue
		}
		if err := ix.watcher.Add(dir); err != nil {
			ix.log.WithError(err).WithField("dir", dir).Debug("skipping unwatchable dir")
			continue
		}
		ix.watchedDirs[dir] = true
	}
	for dir := range ix.watchedDirs {
		if desired[dir] {
			continue
		}
		ix.watcher.Remove(dir)
		delete(ix.watchedDirs, dir)
	}
}
