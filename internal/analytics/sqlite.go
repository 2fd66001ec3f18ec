package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"go-intentflow/pkg/models"
)

// SQLiteStore persists the ledger with modernc.org/sqlite (pure Go, no cgo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at dbPath. ":memory:" keeps it in process.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite serializes writers anyway; one connection also keeps ":memory:" a single database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analytics_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		ts INTEGER NOT NULL,
		request_id TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		tool TEXT NOT NULL DEFAULT '',
		success INTEGER NOT NULL DEFAULT 0,
		latency_ns INTEGER NOT NULL DEFAULT 0,
		kind TEXT NOT NULL DEFAULT '',
		tier INTEGER NOT NULL DEFAULT 0,
		confidence REAL NOT NULL DEFAULT 0,
		approach TEXT NOT NULL DEFAULT '',
		quality REAL NOT NULL DEFAULT 0,
		evaluated INTEGER NOT NULL DEFAULT 0,
		detail TEXT NOT NULL DEFAULT '',
		error_category TEXT NOT NULL DEFAULT '',
		error_code TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_analytics_entries_ts ON analytics_entries(ts);
	CREATE INDEX IF NOT EXISTS idx_analytics_entries_type ON analytics_entries(type);
	CREATE INDEX IF NOT EXISTS idx_analytics_entries_tool ON analytics_entries(type, tool);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	query := `
	INSERT INTO analytics_entries
		(type, ts, request_id, user_id, tool, success, latency_ns, kind, tier, confidence, approach, quality, evaluated, detail, error_category, error_code)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		string(e.Type),
		e.Time.UnixNano(),
		e.RequestID,
		e.UserID,
		e.Tool,
		boolToInt(e.Success),
		int64(e.Latency),
		string(e.Kind),
		e.Tier,
		e.Confidence,
		e.Approach,
		e.Quality,
		boolToInt(e.Evaluated),
		e.Detail,
		e.ErrorCategory,
		e.ErrorCode,
	)
	if err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Entries(ctx context.Context, since time.Time) ([]Entry, error) {
	var from int64
	if !since.IsZero() {
		from = since.UnixNano()
	}

	query := `
	SELECT type, ts, request_id, user_id, tool, success, latency_ns, kind, tier, confidence, approach, quality, evaluated, detail, error_category, error_code
	FROM analytics_entries
	WHERE ts >= ?
	ORDER BY ts, id
	`
	rows, err := s.db.QueryContext(ctx, query, from)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                  Entry
			typ, kind          string
			ts, latency        int64
			success, evaluated int
		)
		if err := rows.Scan(&typ, &ts, &e.RequestID, &e.UserID, &e.Tool, &success, &latency,
			&kind, &e.Tier, &e.Confidence, &e.Approach, &e.Quality, &evaluated, &e.Detail,
			&e.ErrorCategory, &e.ErrorCode); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Type = EntryType(typ)
		e.Time = time.Unix(0, ts)
		e.Success = success != 0
		e.Latency = time.Duration(latency)
		e.Kind = models.Kind(kind)
		e.Evaluated = evaluated != 0
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) ToolCounts(ctx context.Context, tool string) (int, int, error) {
	query := `
	SELECT COUNT(*), COALESCE(SUM(success), 0)
	FROM analytics_entries
	WHERE type = ? AND tool = ?
	`
	var calls, successes int
	if err := s.db.QueryRowContext(ctx, query, string(EntryTool), tool).Scan(&calls, &successes); err != nil {
		return 0, 0, fmt.Errorf("count tool entries: %w", err)
	}
	return calls, successes, nil
}

func (s *SQLiteStore) Trim(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analytics_entries WHERE ts < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("trim entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("trim entries: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
