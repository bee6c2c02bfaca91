package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sqlpeek/sqlpeek/internal/gateway"
	"github.com/sqlpeek/sqlpeek/internal/query"
	"github.com/sqlpeek/sqlpeek/internal/share"
	"github.com/sqlpeek/sqlpeek/internal/view"
)

const messageInvalidShareToken = "Invalid share token"

type createShareRequest struct {
	Config        *query.ConnectionConfig `json:"config"`
	Query         string                  `json:"query"`
	ColumnRenames view.Renames            `json:"columnRenames"`
}

type executeShareRequest struct {
	Token string `json:"token"`
}

func (s *server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	var request createShareRequest
	if !decodeBody(w, r, &request) {
		return
	}
	if request.Config == nil || strings.TrimSpace(request.Query) == "" {
		writeFailure(w, http.StatusBadRequest, gateway.MessageQueryRequired)
		return
	}
	shared := share.New(*request.Config, request.Query, request.ColumnRenames, s.deps.Now())
	token, err := share.Encode(shared)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "share encode failed", slog.String("error", err.Error()))
		writeFailure(w, http.StatusInternalServerError, "Failed to create share link")
		return
	}
	link, err := share.Link(s.cfg.Share.BaseURL, token)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "share link failed", slog.String("error", err.Error()))
		writeFailure(w, http.StatusInternalServerError, "Failed to create share link")
		return
	}
	writeSuccess(w, map[string]any{
		"token":     token,
		"url":       link,
		"timestamp": shared.Timestamp,
	})
}

func (s *server) handleGetShare(w http.ResponseWriter, r *http.Request) {
	shared, ok := s.codec.Decode(r.PathValue("token"))
	if !ok {
		writeFailure(w, http.StatusBadRequest, messageInvalidShareToken)
		return
	}
	writeSuccess(w, shared)
}

// handleExecuteShare decodes a token, tests its connection and runs its query,
// the way opening a shared link does.
func (s *server) handleExecuteShare(w http.ResponseWriter, r *http.Request) {
	var request executeShareRequest
	if !decodeBody(w, r, &request) {
		return
	}
	shared, ok := s.codec.Decode(request.Token)
	if !ok {
		writeFailure(w, http.StatusBadRequest, messageInvalidShareToken)
		return
	}
	if s.deps.Queries == nil {
		writeFailure(w, http.StatusNotImplemented, "Query gateway is not configured")
		return
	}
	if err := s.deps.Queries.TestConnection(r.Context(), shared.Config); err != nil {
		writeGatewayError(w, err, gateway.MessageInternalConnect)
		return
	}
	result, err := s.deps.Queries.ExecuteQuery(r.Context(), shared.Config, shared.Query)
	if err != nil {
		writeGatewayError(w, err, gateway.MessageInternalQuery)
		return
	}
	renames := shared.ColumnRenames
	if renames == nil {
		renames = view.Renames{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"data":          result,
		"config":        shared.Config,
		"query":         shared.Query,
		"columnRenames": renames,
	})
}
