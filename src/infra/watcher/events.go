package watcher

import (
	"time"
)

// FileEventType represents the type of file system event
type FileEventType string

const (
	FileCreated  FileEventType = "created"
	FileRemoved  FileEventType = "removed"
	FileModified FileEventType = "modified"
)

// FileEvent reports the directories whose content changed during one
// debounce window.
type FileEvent struct {
	Dirs      []string
	Types     []FileEventType
	Timestamp time.Time
}
