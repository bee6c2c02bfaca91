package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/sqlpeek/sqlpeek/internal/query"
	"github.com/sqlpeek/sqlpeek/internal/query/sqlrows"
)

func New() *sqlrows.Adapter {
	return NewWithOpener(open)
}

func NewWithOpener(opener sqlrows.Opener) *sqlrows.Adapter {
	return sqlrows.New(sqlrows.Dialect{
		Kind:     query.KindSQLServer,
		Probe:    "SELECT 1",
		Open:     opener,
		Describe: describe,
	})
}

// open accepts sqlserver:// URLs and ADO style "server=...;user id=..." strings.
func open(_ context.Context, connectionString string) (*sql.DB, error) {
	connector, err := mssql.NewConnector(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func describe(err error) string {
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return fmt.Sprintf("%s (error %d)", msErr.Message, msErr.Number)
	}
	return ""
}
