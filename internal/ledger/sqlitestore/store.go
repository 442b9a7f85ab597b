// Package sqlitestore persists versioned ledger snapshots in SQLite so the
// local engine survives restarts.
package sqlitestore

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aub/blocktrace-chaincode/internal/ledger/versioned"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	key          TEXT    NOT NULL,
	tx_id        TEXT    NOT NULL,
	ts_unix_nano INTEGER NOT NULL,
	value        BLOB,
	is_delete    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS snapshots_key_seq ON snapshots (key, seq);
`

// Store is a versioned.Backend over a single SQLite connection.
type Store struct {
	db *sql.DB
}

var _ versioned.Backend = (*Store)(nil)

// Open opens or creates the ledger database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if path != MemoryPath {
		path = filepath.Clean(path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Commits validate and append under one connection, which also keeps
	// an in-memory database alive for the life of the Store.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const columns = `key, seq, tx_id, ts_unix_nano, value, is_delete`

func (s *Store) Latest(key string) (versioned.Snapshot, bool, error) {
	row := s.db.QueryRow(
		`SELECT `+columns+` FROM snapshots WHERE key = ? ORDER BY seq DESC LIMIT 1`,
		key,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return versioned.Snapshot{}, false, nil
	}
	if err != nil {
		return versioned.Snapshot{}, false, fmt.Errorf("latest %q: %w", key, err)
	}
	return snap, true, nil
}

func (s *Store) Range(start, end string) ([]versioned.Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT s.key, s.seq, s.tx_id, s.ts_unix_nano, s.value, s.is_delete
		 FROM snapshots s
		 JOIN (
			SELECT key, MAX(seq) AS seq FROM snapshots
			WHERE key >= ? AND (? = '' OR key < ?)
			GROUP BY key
		 ) latest ON s.seq = latest.seq
		 WHERE s.is_delete = 0
		 ORDER BY s.key`,
		start, end, end,
	)
	if err != nil {
		return nil, fmt.Errorf("range [%q, %q): %w", start, end, err)
	}
	return collect(rows)
}

func (s *Store) Versions(key string) ([]versioned.Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT `+columns+` FROM snapshots WHERE key = ? ORDER BY seq`,
		key,
	)
	if err != nil {
		return nil, fmt.Errorf("versions %q: %w", key, err)
	}
	return collect(rows)
}

func (s *Store) Commit(b versioned.Batch) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, r := range b.Reads {
		var cur sql.NullInt64
		if err := tx.QueryRow(`SELECT MAX(seq) FROM snapshots WHERE key = ?`, r.Key).Scan(&cur); err != nil {
			return fmt.Errorf("validate %q: %w", r.Key, err)
		}
		if uint64(cur.Int64) != r.Seq {
			return fmt.Errorf("%w: key %q read at version %d, now %d", versioned.ErrConflict, r.Key, r.Seq, cur.Int64)
		}
	}

	ts := b.Timestamp.UnixNano()
	for _, w := range b.Writes {
		if _, err := tx.Exec(
			`INSERT INTO snapshots (key, tx_id, ts_unix_nano, value, is_delete) VALUES (?, ?, ?, ?, 0)`,
			w.Key, b.TxID, ts, w.Value,
		); err != nil {
			return fmt.Errorf("insert %q: %w", w.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (versioned.Snapshot, error) {
	var (
		snap     versioned.Snapshot
		seq      int64
		tsNano   int64
		isDelete int64
	)
	if err := row.Scan(&snap.Key, &seq, &snap.TxID, &tsNano, &snap.Value, &isDelete); err != nil {
		return versioned.Snapshot{}, err
	}
	snap.Seq = uint64(seq)
	snap.Timestamp = time.Unix(0, tsNano).UTC()
	snap.IsDelete = isDelete != 0
	return snap, nil
}

func collect(rows *sql.Rows) ([]versioned.Snapshot, error) {
	defer rows.Close()

	var out []versioned.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}
