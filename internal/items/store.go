package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no item exists at the requested index.
var ErrNotFound = errors.New("item not found")

const schema = `
CREATE TABLE IF NOT EXISTS session_items (
    idx            INTEGER PRIMARY KEY,
    path           TEXT NOT NULL,
    status         TEXT NOT NULL,
    backup_status  TEXT,
    match_id       TEXT NOT NULL DEFAULT '',
    match_title    TEXT NOT NULL DEFAULT '',
    match_artist   TEXT NOT NULL DEFAULT '',
    match_album    TEXT NOT NULL DEFAULT '',
    match_pic_id   TEXT NOT NULL DEFAULT '',
    match_lyric_id TEXT NOT NULL DEFAULT '',
    match_source   TEXT NOT NULL DEFAULT '',
    match_score    REAL NOT NULL DEFAULT 0,
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL
);
`

// Store holds session item state in a SQLite database scoped to one
// run. Open creates the database; Close removes it.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates a fresh session database under stateDir. Any stale file
// with the same run ID is truncated first.
func Open(stateDir, runID string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure state dir: %w", err)
	}

	dbPath := filepath.Join(stateDir, fmt.Sprintf("session-%s.db", runID))
	if err := os.Remove(dbPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale session db: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database and deletes the session files. Session
// state is deliberately not kept across runs.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if removeErr := os.Remove(s.path + suffix); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) && err == nil {
			err = removeErr
		}
	}
	return err
}

// AddTracks registers the scanned files in order. Indexes are assigned
// from the slice positions and stay stable for the whole session.
func (s *Store) AddTracks(ctx context.Context, paths []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO session_items (idx, path, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, path := range paths {
		if _, err := stmt.ExecContext(ctx, i, path, StatusPending, timestamp, timestamp); err != nil {
			return fmt.Errorf("insert item %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Get returns the item at index.
func (s *Store) Get(ctx context.Context, index int) (*Item, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE idx = ?`, index)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", index, err)
	}
	return item, nil
}

// List returns all items in index order.
func (s *Store) List(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Count returns the number of tracked items.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

const selectColumns = `SELECT idx, path, status, backup_status,
    match_id, match_title, match_artist, match_album, match_pic_id, match_lyric_id, match_source, match_score,
    created_at, updated_at
  FROM session_items`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item      Item
		status    string
		backup    sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(
		&item.Index,
		&item.Path,
		&status,
		&backup,
		&item.Match.TrackID,
		&item.Match.Title,
		&item.Match.Artist,
		&item.Match.Album,
		&item.Match.PicID,
		&item.Match.LyricID,
		&item.Match.Source,
		&item.Match.Score,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Status = Status(status)
	if backup.Valid {
		item.Backup = Status(backup.String)
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		item.CreatedAt = ts
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, updatedAt); parseErr == nil {
		item.UpdatedAt = ts
	}
	return &item, nil
}
