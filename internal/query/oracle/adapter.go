// Package oracle registers the Oracle engine kind without a driver. Every call
// fails with a fixed "not configured" error.
package oracle

import (
	"context"

	"github.com/sqlpeek/sqlpeek/internal/query"
)

type Adapter struct{}

func New() Adapter {
	return Adapter{}
}

func (Adapter) Kind() query.EngineKind {
	return query.KindOracle
}

func (Adapter) TestConnection(context.Context, string) error {
	return query.NotConfigured(query.KindOracle, query.OpConnect)
}

func (Adapter) Execute(context.Context, string, string) (query.Result, error) {
	return query.Result{}, query.NotConfigured(query.KindOracle, query.OpQuery)
}
