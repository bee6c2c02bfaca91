package query

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type EngineKind string

const (
	KindMySQL      EngineKind = "mysql"
	KindPostgreSQL EngineKind = "postgresql"
	KindSQLServer  EngineKind = "sqlserver"
	KindOracle     EngineKind = "oracle"
	KindDuckDB     EngineKind = "duckdb"
	KindSQLite     EngineKind = "sqlite"
)

// DisplayName is the human readable engine name used to prefix error messages.
func (k EngineKind) DisplayName() string {
	switch k {
	case KindMySQL:
		return "MySQL"
	case KindPostgreSQL:
		return "PostgreSQL"
	case KindSQLServer:
		return "SQL Server"
	case KindOracle:
		return "Oracle"
	case KindDuckDB:
		return "DuckDB"
	case KindSQLite:
		return "SQLite"
	default:
		return string(k)
	}
}

type ConnectionConfig struct {
	ID               string     `json:"id" yaml:"id"`
	Type             EngineKind `json:"type" yaml:"type"`
	ConnectionString string     `json:"connectionString" yaml:"connection_string"`
	Name             string     `json:"name" yaml:"name"`
}

// Result is the normalized tabular output of one query. Every row holds
// exactly len(Columns) cells.
type Result struct {
	Columns       []string
	Rows          [][]Cell
	ExecutionTime time.Duration
}

// Adapter converts one engine's connection and query primitives into Result.
// Implementations open a fresh connection per call and close it before returning.
type Adapter interface {
	Kind() EngineKind
	TestConnection(ctx context.Context, connectionString string) error
	Execute(ctx context.Context, connectionString, sql string) (Result, error)
}

func (r Result) RowCount() int {
	return len(r.Rows)
}

func (r Result) ExecutionTimeMillis() int64 {
	return r.ExecutionTime.Milliseconds()
}

// ColumnIndex returns the position of name in Columns or -1.
func (r Result) ColumnIndex(name string) int {
	for i, column := range r.Columns {
		if column == name {
			return i
		}
	}
	return -1
}

// Validate checks the row width invariant.
func (r Result) Validate() error {
	for i, row := range r.Rows {
		if len(row) != len(r.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(r.Columns))
		}
	}
	return nil
}

type resultJSON struct {
	Columns             []string `json:"columns"`
	Rows                [][]Cell `json:"rows"`
	TotalRows           int      `json:"totalRows"`
	ExecutionTime       int64    `json:"executionTime"`
	ExecutionTimeMillis int64    `json:"executionTimeMillis"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	columns := r.Columns
	if columns == nil {
		columns = []string{}
	}
	rows := r.Rows
	if rows == nil {
		rows = [][]Cell{}
	}
	millis := r.ExecutionTimeMillis()
	return json.Marshal(resultJSON{
		Columns:             columns,
		Rows:                rows,
		TotalRows:           len(rows),
		ExecutionTime:       millis,
		ExecutionTimeMillis: millis,
	})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var raw struct {
		Columns             []string `json:"columns"`
		Rows                [][]Cell `json:"rows"`
		ExecutionTime       *float64 `json:"executionTime"`
		ExecutionTimeMillis *float64 `json:"executionTimeMillis"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	millis := 0.0
	switch {
	case raw.ExecutionTimeMillis != nil:
		millis = *raw.ExecutionTimeMillis
	case raw.ExecutionTime != nil:
		millis = *raw.ExecutionTime
	}
	if millis < 0 || math.IsNaN(millis) {
		millis = 0
	}
	*r = Result{
		Columns:       raw.Columns,
		Rows:          raw.Rows,
		ExecutionTime: time.Duration(millis * float64(time.Millisecond)),
	}
	return r.Validate()
}
