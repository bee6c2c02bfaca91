package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/sqlpeek/sqlpeek/internal/query"
	"github.com/sqlpeek/sqlpeek/internal/query/sqlrows"
)

func New() *sqlrows.Adapter {
	return NewWithOpener(open)
}

func NewWithOpener(opener sqlrows.Opener) *sqlrows.Adapter {
	return sqlrows.New(sqlrows.Dialect{
		Kind:     query.KindPostgreSQL,
		Probe:    "SELECT 1",
		Open:     opener,
		Describe: describe,
	})
}

func open(_ context.Context, connectionString string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}
	return stdlib.OpenDB(*cfg), nil
}

func describe(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Sprintf("%s (SQLSTATE %s)", pgErr.Message, pgErr.Code)
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return query.DescribeError(connectErr.Unwrap())
	}
	return ""
}
