// Package store implements the bounded, content-addressed clipboard history
// described in wayclip's history model: SHA-256 deduplication, a
// last-accessed-ranked listing, count-capped eviction, and age pruning, all
// backed by SQLite via the pure-Go modernc.org/sqlite driver.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"go.wayclip.dev/wayclip/internal/entry"
)

// ErrNotFound is returned by Get, Touch, and Delete when the id does not
// name a live entry.
var ErrNotFound = errors.New("store: entry not found")

// ErrRejected is returned by Put when the snapshot's payload size falls
// outside [MinEntrySize, MaxEntrySize].
var ErrRejected = errors.New("store: entry rejected")

// PutOutcome reports whether Put created a new row or touched an existing one.
type PutOutcome int

const (
	Inserted PutOutcome = iota
	Touched
)

// Limits are the size and retention bounds from config.Daemon.
type Limits struct {
	MaxEntries   uint32
	MaxEntrySize uint64
	MinEntrySize uint64
	MaxAgeDays   uint32
}

// Store is a thread-safe handle to the SQLite-backed history. All mutating
// operations run inside their own transaction; the *sql.DB pool is capped at
// one connection, so database/sql serializes all operations on it.
type Store struct {
	db     *sql.DB
	limits Limits
	now    func() time.Time
}

// Open opens (creating if absent) the SQLite database at path and ensures
// the schema exists.
func Open(path string, limits Limits) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, limits: limits, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure pragmas: %w", err)
	}

	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS entries (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	content_type     TEXT NOT NULL,
	mime_type        TEXT NOT NULL,
	data             BLOB NOT NULL,
	preview          TEXT NOT NULL,
	hash             TEXT NOT NULL UNIQUE,
	created_at       INTEGER NOT NULL,
	last_accessed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_last_accessed ON entries(last_accessed_at DESC);
`)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Put inserts a novel snapshot or, if its hash already exists, touches the
// existing row's last_accessed_at. Either branch then evicts overflow rows
// in the same transaction, per the count cap.
func (s *Store) Put(ctx context.Context, snap entry.ClipboardSnapshot) (int64, PutOutcome, error) {
	size := uint64(len(snap.Data))
	if size < s.limits.MinEntrySize || size > s.limits.MaxEntrySize {
		return 0, 0, ErrRejected
	}

	hash := entry.HashHex(snap.Data)
	now := s.now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin put: %w", err)
	}
	defer tx.Rollback()

	var id int64
	var outcome PutOutcome

	err = tx.QueryRowContext(ctx, `SELECT id FROM entries WHERE hash = ?`, hash).Scan(&id)
	switch {
	case err == nil:
		outcome = Touched
		if _, err := tx.ExecContext(ctx, `UPDATE entries SET last_accessed_at = ? WHERE id = ?`, now, id); err != nil {
			return 0, 0, fmt.Errorf("touch on put: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		outcome = Inserted
		preview := entry.Preview(snap.ContentType, snap.MimeType, snap.Data)
		res, err := tx.ExecContext(ctx, `
INSERT INTO entries (content_type, mime_type, data, preview, hash, created_at, last_accessed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(snap.ContentType), snap.MimeType, snap.Data, preview, hash, now, now)
		if err != nil {
			return 0, 0, fmt.Errorf("insert entry: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, 0, fmt.Errorf("last insert id: %w", err)
		}
	default:
		return 0, 0, fmt.Errorf("lookup by hash: %w", err)
	}

	if err := s.evictLocked(ctx, tx); err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit put: %w", err)
	}
	return id, outcome, nil
}

// evictLocked deletes overflow rows, oldest-last-accessed-first, until the
// live count is at most MaxEntries. Must run inside Put's transaction.
func (s *Store) evictLocked(ctx context.Context, tx *sql.Tx) error {
	if s.limits.MaxEntries == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
DELETE FROM entries WHERE id IN (
	SELECT id FROM entries
	ORDER BY last_accessed_at ASC, id ASC
	LIMIT MAX(0, (SELECT COUNT(*) FROM entries) - ?)
)`, s.limits.MaxEntries)
	if err != nil {
		return fmt.Errorf("evict overflow: %w", err)
	}
	return nil
}

// List returns entries ranked by last_accessed_at desc, id desc, optionally
// filtered by a case-insensitive substring match against preview (and, for
// Text entries, the raw data) and capped at limit (0 means unlimited).
func (s *Store) List(ctx context.Context, limit int, query string) ([]entry.HistoryEntry, error) {
	sqlText := `
SELECT id, content_type, mime_type, data, preview, hash, created_at, last_accessed_at
FROM entries`
	args := []any{}

	if query != "" {
		sqlText += ` WHERE LOWER(preview) LIKE ? ESCAPE '\' OR (content_type = 'Text' AND LOWER(CAST(data AS TEXT)) LIKE ? ESCAPE '\')`
		needle := "%" + escapeLike(strings.ToLower(query)) + "%"
		args = append(args, needle, needle)
	}

	sqlText += ` ORDER BY last_accessed_at DESC, id DESC`
	if limit > 0 {
		sqlText += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []entry.HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// escapeLike backslash-escapes the LIKE wildcard characters % and _ (and a
// literal backslash) so a query substring is matched literally rather than
// as a pattern, per spec.md §4.2's "case-insensitive substring" contract.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(s)
}

// Get returns the entry with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (entry.HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, content_type, mime_type, data, preview, hash, created_at, last_accessed_at
FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entry.HistoryEntry{}, ErrNotFound
	}
	if err != nil {
		return entry.HistoryEntry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

// Touch bumps last_accessed_at for id to now. Used after a successful replay.
func (s *Store) Touch(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE entries SET last_accessed_at = ? WHERE id = ?`, s.now().Unix(), id)
	if err != nil {
		return fmt.Errorf("touch entry %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// Delete removes the entry with the given id, or returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	return nil
}

// Prune deletes entries older than MaxAgeDays and reports how many were
// removed. A MaxAgeDays of 0 disables age pruning and is a no-op.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s.limits.MaxAgeDays == 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-time.Duration(s.limits.MaxAgeDays) * 24 * time.Hour).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return n, nil
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (entry.HistoryEntry, error) {
	var e entry.HistoryEntry
	var contentType string
	if err := row.Scan(&e.ID, &contentType, &e.MimeType, &e.Data, &e.Preview, &e.Hash, &e.CreatedAt, &e.LastAccessedAt); err != nil {
		return entry.HistoryEntry{}, err
	}
	e.ContentType = entry.ContentType(contentType)
	return e, nil
}
