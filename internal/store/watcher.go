package store

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/penwyp/go-metrobus/internal/util"
)

// FileChange is a write to, or removal of, a watched file.
type FileChange struct {
	Path    string
	Removed bool
}

// FileWatcher reports changes to event log files under a directory tree.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	match   func(string) bool
	events  chan FileChange
	done    chan struct{}
}

func NewFileWatcher(root string, match func(string) bool) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &FileWatcher{
		watcher: watcher,
		match:   match,
		events:  make(chan FileChange, 100),
		done:    make(chan struct{}),
	}

	if err := fw.addPath(root); err != nil {
		watcher.Close()
		return nil, err
	}

	go fw.processEvents()

	return fw, nil
}

func (fw *FileWatcher) addPath(path string) error {
	return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return fw.watcher.Add(p)
		}
		return nil
	})
}

func (fw *FileWatcher) processEvents() {
	defer close(fw.events)
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// New subdirectories are watched as they appear.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addPath(event.Name); err != nil {
						util.LogWarnf("Failed to watch %s: %v", event.Name, err)
					}
					continue
				}
			}

			removed := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
			if !removed && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if fw.match != nil && !fw.match(event.Name) {
				continue
			}
			select {
			case fw.events <- FileChange{Path: event.Name, Removed: removed}:
			case <-fw.done:
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			util.LogError("File monitoring error: " + err.Error())

		case <-fw.done:
			return
		}
	}
}

// Events yields each matching change. It is closed after Close.
func (fw *FileWatcher) Events() <-chan FileChange {
	return fw.events
}

func (fw *FileWatcher) Close() error {
	select {
	case <-fw.done:
		return nil
	default:
	}
	close(fw.done)
	return fw.watcher.Close()
}
