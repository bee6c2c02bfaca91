package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sqlpeek/sqlpeek/internal/config"
	"github.com/sqlpeek/sqlpeek/internal/connections"
	"github.com/sqlpeek/sqlpeek/internal/gateway"
	"github.com/sqlpeek/sqlpeek/internal/observability"
	"github.com/sqlpeek/sqlpeek/internal/query"
	"github.com/sqlpeek/sqlpeek/internal/share"
	"github.com/sqlpeek/sqlpeek/internal/storage"
)

type ReadinessCheck func(ctx context.Context) error

// QueryService is satisfied by *gateway.Gateway.
type QueryService interface {
	TestConnection(ctx context.Context, cfg query.ConnectionConfig) error
	ExecuteQuery(ctx context.Context, cfg query.ConnectionConfig, sql string) (query.Result, error)
}

// ConnectionStore is satisfied by *connections.Store.
type ConnectionStore interface {
	List() []connections.SavedConnection
	Save(conn connections.SavedConnection) (connections.SavedConnection, error)
	Delete(id string) error
	Touch(id, lastQuery string, at time.Time) error
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Queries           QueryService
	Connections       ConnectionStore
	Exports           storage.ObjectStore
	Now               func() time.Time
}

type server struct {
	cfg    config.Config
	deps   Dependencies
	codec  share.Codec
	logger *slog.Logger
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &server{cfg: cfg, deps: deps, codec: share.Codec{Logger: logger}, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "OK",
			"service":   cfg.Service.Name,
			"timestamp": deps.Now().UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /api/metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/test-connection", s.handleTestConnection)
	mux.HandleFunc("POST /api/execute-query", s.handleExecuteQuery)

	mux.HandleFunc("POST /api/view", s.handleView)
	mux.HandleFunc("POST /api/export", s.handleExport)

	mux.HandleFunc("POST /api/share", s.handleCreateShare)
	mux.HandleFunc("POST /api/share/execute", s.handleExecuteShare)
	mux.HandleFunc("GET /api/share/{token}", s.handleGetShare)

	mux.HandleFunc("GET /api/connections", s.handleListConnections)
	mux.HandleFunc("PUT /api/connections/{id}", s.handleSaveConnection)
	mux.HandleFunc("DELETE /api/connections/{id}", s.handleDeleteConnection)

	var handler http.Handler = mux
	if cfg.HTTP.MaxBodyBytes > 0 {
		handler = http.MaxBytesHandler(mux, cfg.HTTP.MaxBodyBytes)
	}
	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.CORSMiddleware(cfg.HTTP.AllowedOrigins),
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(handler, middlewares...)
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Readiness == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}
	timeout := s.deps.DependencyTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	if err := s.deps.Readiness(ctx); err != nil {
		writeFailure(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// CheckConnectionsStore reports whether the saved connections file can be written.
func CheckConnectionsStore(store *connections.Store) ReadinessCheck {
	if store == nil {
		return nil
	}
	return func(_ context.Context) error {
		return store.Ping()
	}
}

// CheckObjectStore pings the export bucket when object store exports are enabled.
func CheckObjectStore(cfg config.Config, store storage.ObjectStore) ReadinessCheck {
	if !cfg.Export.ObjectStoreEnabled {
		return nil
	}
	return func(ctx context.Context) error {
		if store == nil {
			return errors.New("object store is not configured")
		}
		return store.Ping(ctx)
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

// decodeBody reports a ready-to-send failure message when the body is unusable.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

// writeGatewayError renders a classified gateway error. Anything else is
// reported with fallback so internal detail never reaches the client.
func writeGatewayError(w http.ResponseWriter, err error, fallback string) {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		writeFailure(w, gwErr.Kind.Status(), gwErr.Message)
		return
	}
	writeFailure(w, http.StatusInternalServerError, fallback)
}
