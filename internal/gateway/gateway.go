// Package gateway validates connection configs, enforces the read-only query
// policy and dispatches calls to the adapter registered for an engine kind.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/sqlpeek/sqlpeek/internal/observability"
	"github.com/sqlpeek/sqlpeek/internal/query"
)

const (
	operationTest    = "test_connection"
	operationExecute = "execute_query"
)

type Options struct {
	// QueryTimeout bounds each adapter call when positive.
	QueryTimeout time.Duration
	Logger       *slog.Logger
}

// Gateway holds no per-call state; it is safe for concurrent use.
type Gateway struct {
	adapters map[query.EngineKind]query.Adapter
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func New(adapters []query.Adapter, opts Options) *Gateway {
	registry := make(map[query.EngineKind]query.Adapter, len(adapters))
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		registry[adapter.Kind()] = adapter
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		adapters: registry,
		timeout:  opts.QueryTimeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Kinds lists the registered engine kinds in sorted order.
func (g *Gateway) Kinds() []query.EngineKind {
	kinds := make([]query.EngineKind, 0, len(g.adapters))
	for kind := range g.adapters {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ValidateConfig requires both an engine kind and a connection string.
func ValidateConfig(cfg query.ConnectionConfig) error {
	if strings.TrimSpace(string(cfg.Type)) == "" || strings.TrimSpace(cfg.ConnectionString) == "" {
		return newError(KindValidation, MessageInvalidConfig, nil)
	}
	return nil
}

func (g *Gateway) TestConnection(ctx context.Context, cfg query.ConnectionConfig) (err error) {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	adapter, ok := g.adapters[cfg.Type]
	if !ok {
		observability.ObserveQuery(string(cfg.Type), operationTest, string(KindUnsupported), 0)
		return newError(KindUnsupported, MessageUnsupported, nil)
	}

	logger := observability.LoggerFromContext(ctx, g.logger).With(slog.String("engine", string(cfg.Type)))
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.ErrorContext(ctx, "connection test panicked",
				slog.Any("panic", recovered),
				slog.String("stack", string(debug.Stack())),
			)
			err = newError(KindInternal, MessageInternalConnect, fmt.Errorf("panic: %v", recovered))
			observability.ObserveQuery(string(cfg.Type), operationTest, string(KindInternal), 0)
		}
	}()

	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	start := g.now()
	callErr := adapter.TestConnection(callCtx, cfg.ConnectionString)
	elapsed := g.now().Sub(start)
	if callErr != nil {
		classified := classify(callErr, KindConnection, MessageInternalConnect)
		logFailure(ctx, logger, "connection test failed", classified, callErr)
		observability.ObserveQuery(string(cfg.Type), operationTest, string(classified.Kind), elapsed)
		return classified
	}
	observability.ObserveQuery(string(cfg.Type), operationTest, "ok", elapsed)
	logger.DebugContext(ctx, "connection test succeeded", slog.Duration("elapsed", elapsed))
	return nil
}

// ExecuteQuery checks sql against the read-only policy, dispatches it and
// stamps the wall-clock time of the adapter call on the result.
func (g *Gateway) ExecuteQuery(ctx context.Context, cfg query.ConnectionConfig, sql string) (result query.Result, err error) {
	if strings.TrimSpace(sql) == "" || strings.TrimSpace(string(cfg.Type)) == "" || strings.TrimSpace(cfg.ConnectionString) == "" {
		return query.Result{}, newError(KindValidation, MessageQueryRequired, nil)
	}
	if policyErr := CheckReadOnly(sql); policyErr != nil {
		var violation *PolicyViolation
		if errors.As(policyErr, &violation) {
			observability.IncrementPolicyRejection(violation.Keyword)
		}
		observability.ObserveQuery(string(cfg.Type), operationExecute, string(KindPolicy), 0)
		return query.Result{}, newError(KindPolicy, policyErr.Error(), policyErr)
	}
	adapter, ok := g.adapters[cfg.Type]
	if !ok {
		observability.ObserveQuery(string(cfg.Type), operationExecute, string(KindUnsupported), 0)
		return query.Result{}, newError(KindUnsupported, MessageUnsupported, nil)
	}

	logger := observability.LoggerFromContext(ctx, g.logger).With(slog.String("engine", string(cfg.Type)))
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.ErrorContext(ctx, "query execution panicked",
				slog.Any("panic", recovered),
				slog.String("stack", string(debug.Stack())),
			)
			result = query.Result{}
			err = newError(KindInternal, MessageInternalQuery, fmt.Errorf("panic: %v", recovered))
			observability.ObserveQuery(string(cfg.Type), operationExecute, string(KindInternal), 0)
		}
	}()

	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	start := g.now()
	result, callErr := adapter.Execute(callCtx, cfg.ConnectionString, sql)
	elapsed := g.now().Sub(start)
	if callErr != nil {
		classified := classify(callErr, KindQuery, MessageInternalQuery)
		logFailure(ctx, logger, "query failed", classified, callErr)
		observability.ObserveQuery(string(cfg.Type), operationExecute, string(classified.Kind), elapsed)
		return query.Result{}, classified
	}
	if validateErr := result.Validate(); validateErr != nil {
		logger.ErrorContext(ctx, "adapter returned malformed result", slog.String("error", validateErr.Error()))
		observability.ObserveQuery(string(cfg.Type), operationExecute, string(KindInternal), elapsed)
		return query.Result{}, newError(KindInternal, MessageInternalQuery, validateErr)
	}

	result.ExecutionTime = elapsed
	observability.ObserveQuery(string(cfg.Type), operationExecute, "ok", elapsed)
	logger.InfoContext(ctx, "query executed",
		slog.Int("rows", result.RowCount()),
		slog.Int("columns", len(result.Columns)),
		slog.Int64("execution_ms", result.ExecutionTimeMillis()),
	)
	return result, nil
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout > 0 {
		return context.WithTimeout(ctx, g.timeout)
	}
	return context.WithCancel(ctx)
}

// classify keeps engine errors as user-facing messages and hides everything else.
func classify(err error, engineKind Kind, internalMessage string) *Error {
	var engineErr *query.EngineError
	if errors.As(err, &engineErr) {
		kind := engineKind
		if engineErr.Op == query.OpConnect {
			kind = KindConnection
		}
		return newError(kind, engineErr.Message, engineErr)
	}
	return newError(KindInternal, internalMessage, err)
}

func logFailure(ctx context.Context, logger *slog.Logger, msg string, classified *Error, cause error) {
	level := slog.LevelWarn
	if classified.Kind == KindInternal {
		level = slog.LevelError
	}
	logger.Log(ctx, level, msg,
		slog.String("kind", string(classified.Kind)),
		slog.String("error", cause.Error()),
	)
}
