package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/sqlpeek/sqlpeek/internal/query"
	"github.com/sqlpeek/sqlpeek/internal/query/sqlrows"
)

// NewEngine returns the DuckDB adapter. Database files must live under
// dataDir and are opened read-only. External file and network access is
// disabled and the configuration is locked for every connection.
func NewEngine(dataDir string) *sqlrows.Adapter {
	return sqlrows.New(sqlrows.Dialect{
		Kind:  query.KindDuckDB,
		Probe: "SELECT 1",
		Open: func(_ context.Context, connectionString string) (*sql.DB, error) {
			return open(dataDir, connectionString)
		},
		Guard: sqlrows.RejectStatements("ATTACH", "DETACH", "COPY", "EXPORT", "IMPORT", "INSTALL", "LOAD"),
	})
}

func open(dataDir, connectionString string) (*sql.DB, error) {
	dsn, err := readOnlyDSN(dataDir, connectionString)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return db, nil
}

// callerOptions are the DSN settings a connection string may carry. The
// access settings are always overwritten.
var callerOptions = map[string]bool{
	"threads":                true,
	"memory_limit":           true,
	"access_mode":            true,
	"enable_external_access": true,
	"lock_configuration":     true,
}

func readOnlyDSN(dataDir, dsn string) (string, error) {
	name, rawQuery, _ := strings.Cut(strings.TrimSpace(dsn), "?")
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("parse duckdb options: %w", err)
	}
	for key := range params {
		if !callerOptions[key] {
			return "", fmt.Errorf("duckdb option %q is not allowed", key)
		}
	}

	if name == ":memory:" {
		name = ""
	}
	params.Del("access_mode")
	if name != "" {
		path, err := sqlrows.LocalPath(dataDir, name)
		if err != nil {
			return "", err
		}
		name = path
		params.Set("access_mode", "READ_ONLY")
	}
	params.Set("enable_external_access", "false")
	params.Set("lock_configuration", "true")
	return name + "?" + params.Encode(), nil
}
