// Package database runs generated SQL against the target PostgreSQL
// database.
//
// Connections are scoped per call: every operation opens a connection,
// runs one statement, and closes it. The executor holds no pool and no
// state between calls, so a dropped database never strands it.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/queryloom/queryloom/internal/log"
)

// Sentinel errors for classifying executor failures.
var (
	// ErrConnectivity indicates the database could not be reached or the
	// connection could not be established.
	ErrConnectivity = errors.New("database unreachable")

	// ErrQueryExecution indicates the database rejected the statement.
	// The wrapped message carries the driver's error text verbatim so
	// callers can surface it to the user.
	ErrQueryExecution = errors.New("query execution failed")
)

// schemaDDLQuery reconstructs a CREATE TABLE statement per user table
// from the information schema. Generated DDL is synthetic (no
// constraints beyond NOT NULL) but sufficient as retrieval context.
const schemaDDLQuery = `
SELECT
    'CREATE TABLE ' || schemaname || '.' || tablename || ' (' ||
    string_agg(
        column_name || ' ' || data_type ||
        CASE WHEN is_nullable = 'NO' THEN ' NOT NULL' ELSE '' END,
        ', '
    ) || ');' AS ddl
FROM (
    SELECT
        c.table_schema AS schemaname,
        c.table_name AS tablename,
        c.column_name,
        c.data_type,
        c.is_nullable,
        c.ordinal_position
    FROM information_schema.columns c
    JOIN information_schema.tables t
        ON c.table_name = t.table_name
        AND c.table_schema = t.table_schema
    WHERE t.table_type = 'BASE TABLE'
        AND c.table_schema NOT IN ('pg_catalog', 'information_schema')
    ORDER BY c.table_schema, c.table_name, c.ordinal_position
) sub
GROUP BY schemaname, tablename`

const tableNamesQuery = `
SELECT table_schema || '.' || table_name AS full_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
    AND table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY table_schema, table_name`

// Result holds the outcome of an executed query: column names in
// select-list order and one map per row.
type Result struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Executor runs statements against PostgreSQL with per-call
// connections.
type Executor struct {
	logger log.Logger

	// openDB is swapped out by tests; the default opens a pgx stdlib
	// connection with the configured DSN.
	openDB func() (*sql.DB, error)
}

// NewExecutor creates an executor for the given connection string.
func NewExecutor(dsn string, logger log.Logger) *Executor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Executor{
		logger: logger,
		openDB: func() (*sql.DB, error) {
			return sql.Open("pgx", dsn)
		},
	}
}

// Execute runs a single statement and materializes the full result
// set. Statements that return no rows (DDL, UPDATE without RETURNING)
// yield a Result with empty columns and no rows.
func (e *Executor) Execute(ctx context.Context, query string) (*Result, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty statement", ErrQueryExecution)
	}

	db, err := e.openDB()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecution, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecution, err)
	}

	result := &Result{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryExecution, err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecution, err)
	}

	e.logger.Debug("executed query", "columns", len(result.Columns), "rows", len(result.Rows))
	return result, nil
}

// SchemaDDL reconstructs one CREATE TABLE statement per user table.
func (e *Executor) SchemaDDL(ctx context.Context) ([]string, error) {
	return e.stringColumn(ctx, schemaDDLQuery)
}

// TableNames lists user tables as schema-qualified names.
func (e *Executor) TableNames(ctx context.Context) ([]string, error) {
	return e.stringColumn(ctx, tableNamesQuery)
}

// Probe reports whether the database answers a trivial query. Any
// failure, connectivity or otherwise, reads as unreachable.
func (e *Executor) Probe(ctx context.Context) bool {
	db, err := e.openDB()
	if err != nil {
		return false
	}
	defer db.Close()

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		e.logger.Debug("connectivity probe failed", "error", err)
		return false
	}
	return true
}

// stringColumn runs a query expected to yield a single text column and
// collects it.
func (e *Executor) stringColumn(ctx context.Context, query string) ([]string, error) {
	db, err := e.openDB()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecution, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryExecution, err)
		}
		out = append(out, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecution, err)
	}
	return out, nil
}
