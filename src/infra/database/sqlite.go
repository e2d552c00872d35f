package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/contre95/soulplay/src/music"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteTreeCache is a SQLite implementation of the music.TreeCache interface.
// Each library root keeps one snapshot; storing a tree replaces it.
type SqliteTreeCache struct {
	db *sql.DB
}

// NewSqliteTreeCache opens (or creates) the cache database at path.
func NewSqliteTreeCache(path string) (*SqliteTreeCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps in-memory databases shared across calls.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SqliteTreeCache{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			root TEXT NOT NULL UNIQUE,
			stored_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS entries (
			snapshot_id TEXT NOT NULL,
			id INTEGER NOT NULL,
			parent_id INTEGER,
			position INTEGER NOT NULL,
			path TEXT NOT NULL,
			name TEXT NOT NULL,
			is_dir BOOLEAN NOT NULL,
			mod_time TEXT,
			PRIMARY KEY (snapshot_id, id),
			FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_entries_snapshot ON entries(snapshot_id, position);
	`)
	return err
}

// Close closes the database.
func (d *SqliteTreeCache) Close() error {
	return d.db.Close()
}

// LoadTree returns the snapshot stored for root, or nil when there is none.
func (d *SqliteTreeCache) LoadTree(ctx context.Context, root string) (*music.FileSystemEntry, error) {
	root = filepath.Clean(root)

	var snapshotID, storedAt string
	err := d.db.QueryRowContext(ctx, `SELECT id, stored_at FROM snapshots WHERE root = ?`, root).Scan(&snapshotID, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, parent_id, path, name, is_dir, mod_time
		FROM entries
		WHERE snapshot_id = ?
		ORDER BY position
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	defer rows.Close()

	var tree *music.FileSystemEntry
	byID := map[int]*music.FileSystemEntry{}
	for rows.Next() {
		var (
			e        music.FileSystemEntry
			parentID sql.NullInt64
			modTime  sql.NullString
		)
		if err := rows.Scan(&e.ID, &parentID, &e.Path, &e.Name, &e.IsDir, &modTime); err != nil {
			return nil, err
		}
		if modTime.Valid && modTime.String != "" {
			e.ModTime, _ = time.Parse(time.RFC3339Nano, modTime.String)
		}
		entry := &e
		byID[entry.ID] = entry

		if !parentID.Valid {
			tree = entry
			continue
		}
		parent, ok := byID[int(parentID.Int64)]
		if !ok {
			return nil, fmt.Errorf("entry %d stored before its parent %d", entry.ID, parentID.Int64)
		}
		parent.AddChild(entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if tree == nil {
		slog.Warn("Snapshot without root entry, ignoring", "root", root, "snapshot", snapshotID)
		return nil, nil
	}

	slog.Debug("Library snapshot loaded", "root", root, "entries", len(byID), "storedAt", storedAt)
	return tree, nil
}

// StoreTree replaces the snapshot of tree.Path. Entries are written in walk
// order so every parent precedes its children.
func (d *SqliteTreeCache) StoreTree(ctx context.Context, tree *music.FileSystemEntry) error {
	if tree == nil {
		return errors.New("cannot store an empty tree")
	}
	root := filepath.Clean(tree.Path)

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM entries WHERE snapshot_id IN (SELECT id FROM snapshots WHERE root = ?)
	`, root); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE root = ?`, root); err != nil {
		return err
	}

	snapshotID := uuid.New().String()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, root, stored_at) VALUES (?, ?, ?)
	`, snapshotID, root, time.Now().Format(time.RFC3339)); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (snapshot_id, id, parent_id, position, path, name, is_dir, mod_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	position := 0
	tree.Walk(func(e *music.FileSystemEntry) bool {
		if err != nil {
			return false
		}
		var parentID sql.NullInt64
		if e != tree && e.Parent != nil {
			parentID = sql.NullInt64{Int64: int64(e.Parent.ID), Valid: true}
		}
		var modTime string
		if !e.ModTime.IsZero() {
			modTime = e.ModTime.Format(time.RFC3339Nano)
		}
		_, err = stmt.ExecContext(ctx, snapshotID, e.ID, parentID, position, e.Path, e.Name, e.IsDir, modTime)
		position++
		return err == nil
	})
	if err != nil {
		return fmt.Errorf("failed to store entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("Library snapshot stored", "root", root, "entries", position, "snapshot", snapshotID)
	return nil
}
