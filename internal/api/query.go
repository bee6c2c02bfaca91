package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sqlpeek/sqlpeek/internal/connections"
	"github.com/sqlpeek/sqlpeek/internal/gateway"
	"github.com/sqlpeek/sqlpeek/internal/query"
)

type testConnectionRequest struct {
	Config *query.ConnectionConfig `json:"config"`
}

type executeQueryRequest struct {
	Config *query.ConnectionConfig `json:"config"`
	Query  string                  `json:"query"`
}

func (s *server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var request testConnectionRequest
	if !decodeBody(w, r, &request) {
		return
	}
	if request.Config == nil {
		writeFailure(w, http.StatusBadRequest, gateway.MessageInvalidConfig)
		return
	}
	if s.deps.Queries == nil {
		writeFailure(w, http.StatusNotImplemented, "Query gateway is not configured")
		return
	}
	if err := s.deps.Queries.TestConnection(r.Context(), *request.Config); err != nil {
		writeGatewayError(w, err, gateway.MessageInternalConnect)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Connection successful"})
}

func (s *server) handleExecuteQuery(w http.ResponseWriter, r *http.Request) {
	var request executeQueryRequest
	if !decodeBody(w, r, &request) {
		return
	}
	if request.Config == nil || strings.TrimSpace(request.Query) == "" {
		writeFailure(w, http.StatusBadRequest, gateway.MessageQueryRequired)
		return
	}
	if s.deps.Queries == nil {
		writeFailure(w, http.StatusNotImplemented, "Query gateway is not configured")
		return
	}
	result, err := s.deps.Queries.ExecuteQuery(r.Context(), *request.Config, request.Query)
	if err != nil {
		writeGatewayError(w, err, gateway.MessageInternalQuery)
		return
	}
	s.touchConnection(r, request.Config.ID, request.Query)
	writeSuccess(w, result)
}

// touchConnection records the query on the saved connection it ran against.
func (s *server) touchConnection(r *http.Request, id, sql string) {
	if s.deps.Connections == nil || strings.TrimSpace(id) == "" {
		return
	}
	err := s.deps.Connections.Touch(id, sql, s.deps.Now())
	if err != nil && !errors.Is(err, connections.ErrNotFound) {
		s.logger.WarnContext(r.Context(), "failed to record last query",
			slog.String("connection_id", id),
			slog.String("error", err.Error()),
		)
	}
}
