// Package sqlrows implements query.Adapter on top of database/sql for every
// engine whose Go driver speaks database/sql.
package sqlrows

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sqlpeek/sqlpeek/internal/query"
)

// Opener returns a handle for a single call. The adapter closes it.
type Opener func(ctx context.Context, connectionString string) (*sql.DB, error)

type Dialect struct {
	Kind query.EngineKind
	// Probe runs after the ping in TestConnection. Empty skips it.
	Probe string
	Open  Opener
	// Describe turns driver specific errors into a short message. Optional.
	Describe func(error) string
	// Guard rejects statements before a handle is opened. Optional.
	Guard func(sqlText string) error
}

type Adapter struct {
	dialect Dialect
}

func New(dialect Dialect) *Adapter {
	return &Adapter{dialect: dialect}
}

func (a *Adapter) Kind() query.EngineKind {
	return a.dialect.Kind
}

func (a *Adapter) TestConnection(ctx context.Context, connectionString string) error {
	db, err := a.open(ctx, connectionString)
	if err != nil {
		return a.fail(query.OpConnect, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return a.fail(query.OpConnect, err)
	}
	if a.dialect.Probe == "" {
		return nil
	}
	rows, err := db.QueryContext(ctx, a.dialect.Probe)
	if err != nil {
		return a.fail(query.OpConnect, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return a.fail(query.OpConnect, err)
	}
	return nil
}

func (a *Adapter) Execute(ctx context.Context, connectionString, sqlText string) (query.Result, error) {
	if strings.TrimSpace(sqlText) == "" {
		return query.Result{}, a.fail(query.OpQuery, fmt.Errorf("sql is required"))
	}
	if a.dialect.Guard != nil {
		if err := a.dialect.Guard(sqlText); err != nil {
			return query.Result{}, a.fail(query.OpQuery, err)
		}
	}
	db, err := a.open(ctx, connectionString)
	if err != nil {
		return query.Result{}, a.fail(query.OpConnect, err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, a.fail(query.OpQuery, err)
	}
	defer func() { _ = rows.Close() }()

	result, err := Collect(rows)
	if err != nil {
		return query.Result{}, a.fail(query.OpQuery, err)
	}
	return result, nil
}

func (a *Adapter) open(ctx context.Context, connectionString string) (*sql.DB, error) {
	if a.dialect.Open == nil {
		return nil, fmt.Errorf("no opener configured")
	}
	if strings.TrimSpace(connectionString) == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	db, err := a.dialect.Open(ctx, connectionString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

func (a *Adapter) fail(op query.Op, err error) error {
	return query.NewEngineError(a.dialect.Kind, op, err, a.dialect.Describe)
}

// Collect drains rows into a Result. Column order is the driver's metadata
// order and every row is projected positionally onto it.
func Collect(rows *sql.Rows) (query.Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("query columns: %w", err)
	}
	dbTypes := make([]string, len(columns))
	if columnTypes, err := rows.ColumnTypes(); err == nil {
		for i, columnType := range columnTypes {
			if i < len(dbTypes) && columnType != nil {
				dbTypes[i] = columnType.DatabaseTypeName()
			}
		}
	}

	resultRows := make([][]query.Cell, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("scan row: %w", err)
		}
		cells, err := query.ProjectRow(columns, values, dbTypes)
		if err != nil {
			return query.Result{}, err
		}
		resultRows = append(resultRows, cells)
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return query.Result{
		Columns: query.UniqueColumns(columns),
		Rows:    resultRows,
	}, nil
}
