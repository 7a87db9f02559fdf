// Package trace provides durable storage for dispatch traces.
// Uses SQLite with WAL mode for concurrent read access.
package trace

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pocketfw/reactor/internal/loop"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added contract index on dispatches
const currentSchemaVersion = 1

// Store records loop dispatches into a SQLite database. It implements
// loop.Recorder.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts a dispatch row. Uses ON CONFLICT(seq) DO NOTHING for
// idempotency: sequence numbers are assigned once, so a replayed dispatch
// is silently ignored.
func (s *Store) Record(ctx context.Context, d loop.Dispatch) error {
	data, err := marshalData(d.Data)
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dispatches
		(seq, pass, token, contract, kind, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		d.Seq,
		d.Pass,
		d.Token,
		d.Contract,
		string(d.Kind),
		data,
	)
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}

	return nil
}

// Dispatches reads back all recorded dispatches in sequence order.
func (s *Store) Dispatches(ctx context.Context) ([]loop.Dispatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, pass, token, contract, kind, data
		FROM dispatches
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("read dispatches: %w", err)
	}
	defer rows.Close()

	var out []loop.Dispatch
	for rows.Next() {
		var (
			d    loop.Dispatch
			kind string
			data sql.NullString
		)
		if err := rows.Scan(&d.Seq, &d.Pass, &d.Token, &d.Contract, &kind, &data); err != nil {
			return nil, fmt.Errorf("read dispatches: %w", err)
		}
		d.Kind = loop.Kind(kind)
		if data.Valid {
			var payload any
			if err := json.Unmarshal([]byte(data.String), &payload); err != nil {
				return nil, fmt.Errorf("read dispatches: seq %d: %w", d.Seq, err)
			}
			d.Data = payload
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read dispatches: %w", err)
	}
	return out, nil
}

// Count returns the number of recorded dispatches.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dispatches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count dispatches: %w", err)
	}
	return n, nil
}

// marshalData serializes a dispatch payload to JSON, mapping nil to SQL NULL.
func marshalData(data any) (sql.NullString, error) {
	if data == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal data: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		// CREATE INDEX IF NOT EXISTS is safe - no-op if index exists
		if _, err := db.Exec(`
			CREATE INDEX IF NOT EXISTS idx_dispatches_contract
			ON dispatches(contract, seq)
		`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}
