package music

import (
	"context"
)

// TreeCache persists a snapshot of the library tree so a start-up scan can be
// skipped. The enqueued overlay is not part of the snapshot.
type TreeCache interface {
	// LoadTree returns the cached tree rooted at root, or nil when there is none.
	LoadTree(ctx context.Context, root string) (*FileSystemEntry, error)
	// StoreTree replaces the cached tree for tree.Path.
	StoreTree(ctx context.Context, tree *FileSystemEntry) error
}
