package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/sqlpeek/sqlpeek/internal/query"
	"github.com/sqlpeek/sqlpeek/internal/query/sqlrows"
)

// New returns the SQLite adapter. Database files must live under dataDir
// and are always opened with mode=ro. An empty dataDir allows :memory: only.
func New(dataDir string) *sqlrows.Adapter {
	return sqlrows.New(sqlrows.Dialect{
		Kind:  query.KindSQLite,
		Probe: "SELECT 1",
		Open: func(_ context.Context, connectionString string) (*sql.DB, error) {
			return open(dataDir, connectionString)
		},
		// ATTACH and VACUUM INTO create files regardless of mode=ro.
		Guard: sqlrows.RejectStatements("ATTACH", "DETACH", "VACUUM"),
	})
}

func open(dataDir, connectionString string) (*sql.DB, error) {
	dsn, err := readOnlyDSN(dataDir, connectionString)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

func readOnlyDSN(dataDir, dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if len(dsn) >= 5 && strings.EqualFold(dsn[:5], "file:") {
		dsn = dsn[5:]
	}
	name, rawQuery, _ := strings.Cut(dsn, "?")
	if name == ":memory:" {
		return ":memory:", nil
	}

	path, err := sqlrows.LocalPath(dataDir, name)
	if err != nil {
		return "", err
	}
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("parse sqlite options: %w", err)
	}
	params.Del("vfs")
	params.Set("mode", "ro")
	return "file:" + path + "?" + params.Encode(), nil
}
