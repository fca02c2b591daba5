// Package sqlite backs the foot-traffic store with a single SQLite database
// file, using the pure-Go driver so the binary stays CGO-free.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/footfall/footfall/internal/store"
)

const bootstrapSQL = `CREATE TABLE IF NOT EXISTS shopping_centers_ft (
	day DATE,
	id VARCHAR(255) NOT NULL,
	name VARCHAR(255) NOT NULL,
	ft INT,
	state CHAR(2),
	city VARCHAR(255),
	formatted_address VARCHAR(255),
	lon DECIMAL(10, 8),
	lat DECIMAL(10, 8),
	PRIMARY KEY (day, id)
);`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and bootstraps the
// shopping_centers_ft table. Pass ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Writes come only from the startup ingest; a single connection avoids
	// "database is locked" errors without a retry dance.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.bootstrap(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing database handle. The caller keeps ownership of
// the handle's lifecycle; no bootstrap is performed.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) bootstrap() error {
	if _, err := s.db.Exec(bootstrapSQL); err != nil {
		return fmt.Errorf("bootstrap shopping_centers_ft: %w", err)
	}
	return nil
}

// ExecuteQuery runs an arbitrary read query with positional string params.
// Failures are wrapped as store.QueryError so the pipeline can distinguish
// execution errors from provider errors.
func (s *Store) ExecuteQuery(ctx context.Context, sqlText string, params []string) (store.Result, error) {
	if strings.TrimSpace(sqlText) == "" {
		return store.Result{}, &store.QueryError{SQL: sqlText, Err: fmt.Errorf("sql is required")}
	}

	args := make([]any, len(params))
	for i, param := range params {
		args[i] = param
	}

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return store.Result{}, &store.QueryError{SQL: sqlText, Err: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return store.Result{}, &store.QueryError{SQL: sqlText, Err: err}
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return store.Result{}, &store.QueryError{SQL: sqlText, Err: err}
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return store.Result{}, &store.QueryError{SQL: sqlText, Err: err}
	}

	return store.Result{Columns: columns, Rows: resultRows}, nil
}

// ListEntries returns the full table dump used by the admin grid.
func (s *Store) ListEntries(ctx context.Context) (store.Result, error) {
	return s.ExecuteQuery(ctx, "SELECT * FROM shopping_centers_ft", nil)
}

// ListCenters returns distinct centers, optionally filtered by a substring
// match on the center name.
func (s *Store) ListCenters(ctx context.Context, nameFilter string) ([]store.Center, error) {
	query := "SELECT DISTINCT name, id, city, state FROM shopping_centers_ft"
	var args []any
	if strings.TrimSpace(nameFilter) != "" {
		query += " WHERE name LIKE ?"
		args = append(args, "%"+strings.TrimSpace(nameFilter)+"%")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &store.QueryError{SQL: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	centers := make([]store.Center, 0)
	for rows.Next() {
		var center store.Center
		if err := rows.Scan(&center.Name, &center.ID, &center.City, &center.State); err != nil {
			return nil, &store.QueryError{SQL: query, Err: err}
		}
		centers = append(centers, center)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.QueryError{SQL: query, Err: err}
	}
	return centers, nil
}

// TrafficTrend returns the per-day foot traffic for one center in day order.
func (s *Store) TrafficTrend(ctx context.Context, centerID string) ([]store.TrendPoint, error) {
	query := "SELECT day, ft FROM shopping_centers_ft WHERE id = ? ORDER BY day ASC"
	rows, err := s.db.QueryContext(ctx, query, centerID)
	if err != nil {
		return nil, &store.QueryError{SQL: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	trend := make([]store.TrendPoint, 0)
	for rows.Next() {
		var point store.TrendPoint
		if err := rows.Scan(&point.Day, &point.FT); err != nil {
			return nil, &store.QueryError{SQL: query, Err: err}
		}
		trend = append(trend, point)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.QueryError{SQL: query, Err: err}
	}
	return trend, nil
}

// InsertRecords inserts foot-traffic rows, ignoring duplicates on the
// (day, id) primary key. Returns the number of rows actually inserted.
func (s *Store) InsertRecords(ctx context.Context, records []store.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO shopping_centers_ft
		(day, id, name, ft, state, city, formatted_address, lon, lat)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, record := range records {
		result, err := stmt.ExecContext(ctx,
			record.Day, record.ID, record.Name, record.FT,
			record.State, record.City, record.FormattedAddress,
			record.Lon, record.Lat,
		)
		if err != nil {
			return 0, fmt.Errorf("insert record (%s, %s): %w", record.Day, record.ID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert transaction: %w", err)
	}
	return inserted, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
