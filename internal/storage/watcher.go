package storage

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// SnapshotWatcher observes the snapshot file for out-of-band modifications
// (another process editing the data directory) and invokes a callback for
// each one. In-process mutations already notify through the service hook;
// this covers everything else.
type SnapshotWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchSnapshot watches the directory containing path. Atomic replaces land
// as rename/create events on the directory, so the file itself cannot be
// watched directly.
func WatchSnapshot(path string, logger *zap.Logger, onChange func()) (*SnapshotWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	sw := &SnapshotWatcher{watcher: watcher, done: make(chan struct{})}
	base := filepath.Base(path)

	go func() {
		defer close(sw.done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				logger.Debug("snapshot changed on disk", zap.String("op", event.Op.String()))
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("snapshot watcher error", zap.Error(err))
			}
		}
	}()

	return sw, nil
}

// Close stops the watcher and waits for the event loop to exit.
func (sw *SnapshotWatcher) Close() error {
	err := sw.watcher.Close()
	<-sw.done
	return err
}
