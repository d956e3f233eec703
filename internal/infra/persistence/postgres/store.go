// Package postgres provides the Postgres-backed remote store. Every registry
// table shares one layout: id, parent link, view, position and a JSONB copy
// of the record.
package postgres

import (
	"clinicdesk/pkg/domain"
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.RemoteStore = (*Remote)(nil)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with app defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/clinicdesk?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Remote reads and writes registry tables in Postgres.
type Remote struct {
	db *sql.DB
}

// NewRemote opens the database at dsn (falls back to defaultDSN), checks the
// connection and ensures every registry table exists.
func NewRemote(ctx context.Context, dsn string) (*Remote, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureTables(ctx, db); err != nil {
		return nil, err
	}
	return &Remote{db: db}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (r *Remote) DB() *sql.DB { return r.db }

// Close releases the connection pool.
func (r *Remote) Close() error { return r.db.Close() }

func ensureTables(ctx context.Context, db *sql.DB) error {
	for _, table := range domain.RemoteTables() {
		ddl := `CREATE TABLE IF NOT EXISTS ` + table + ` (
		id TEXT PRIMARY KEY,
		parent_id TEXT NOT NULL DEFAULT '',
		view TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		data JSONB NOT NULL
	)`
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure %s table: %w", table, err)
		}
	}
	return nil
}

func checkTable(table string) error {
	if !domain.IsRemoteTable(table) {
		return fmt.Errorf("unknown remote table %q", table)
	}
	return nil
}

// ReadAll returns every row of table ordered by position.
func (r *Remote) ReadAll(ctx context.Context, table string) ([]domain.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, parent_id, view, position, data FROM `+table+` ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Row
	for rows.Next() {
		var (
			row  domain.Row
			data []byte
		)
		if err := rows.Scan(&row.ID, &row.ParentID, &row.View, &row.Position, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row.Data = append([]byte(nil), data...)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// WriteAll replaces the rows of table in a single transaction.
func (r *Remote) WriteAll(ctx context.Context, table string, rows []domain.Row) error {
	if err := checkTable(table); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	stmt := `INSERT INTO ` + table + ` (id, parent_id, view, position, data) VALUES ($1,$2,$3,$4,$5)`
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, stmt, row.ID, row.ParentID, row.View, row.Position, payload(row)); err != nil {
			return fmt.Errorf("insert %s %s: %w", table, row.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// UpsertRow inserts row or overwrites the row with the same id.
func (r *Remote) UpsertRow(ctx context.Context, table string, row domain.Row) error {
	if err := checkTable(table); err != nil {
		return err
	}
	stmt := `INSERT INTO ` + table + ` (id, parent_id, view, position, data) VALUES ($1,$2,$3,$4,$5)
	ON CONFLICT(id) DO UPDATE SET parent_id=EXCLUDED.parent_id, view=EXCLUDED.view, position=EXCLUDED.position, data=EXCLUDED.data`
	if _, err := r.db.ExecContext(ctx, stmt, row.ID, row.ParentID, row.View, row.Position, payload(row)); err != nil {
		return fmt.Errorf("upsert %s %s: %w", table, row.ID, err)
	}
	return nil
}

// DeleteRow removes the row with id. Unknown ids are a no-op.
func (r *Remote) DeleteRow(ctx context.Context, table, id string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", table, id, err)
	}
	return nil
}

func payload(row domain.Row) string {
	if len(row.Data) == 0 {
		return "null"
	}
	return string(row.Data)
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
