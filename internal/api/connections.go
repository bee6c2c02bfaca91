package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sqlpeek/sqlpeek/internal/connections"
)

const messageConnectionNotFound = "Saved connection not found"

func (s *server) handleListConnections(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Connections == nil {
		writeFailure(w, http.StatusNotImplemented, "Saved connections are not configured")
		return
	}
	items := s.deps.Connections.List()
	if items == nil {
		items = []connections.SavedConnection{}
	}
	writeSuccess(w, items)
}

// handleSaveConnection upserts by the id in the path; the body id is ignored.
func (s *server) handleSaveConnection(w http.ResponseWriter, r *http.Request) {
	if s.deps.Connections == nil {
		writeFailure(w, http.StatusNotImplemented, "Saved connections are not configured")
		return
	}
	var request connections.SavedConnection
	if !decodeBody(w, r, &request) {
		return
	}
	request.ID = r.PathValue("id")
	saved, err := s.deps.Connections.Save(request)
	if err != nil {
		if errors.Is(err, connections.ErrInvalid) {
			writeFailure(w, http.StatusBadRequest, "Connection type and connection string are required")
			return
		}
		s.logger.ErrorContext(r.Context(), "save connection failed",
			slog.String("connection_id", request.ID),
			slog.String("error", err.Error()),
		)
		writeFailure(w, http.StatusInternalServerError, "Failed to save connection")
		return
	}
	writeSuccess(w, saved)
}

func (s *server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	if s.deps.Connections == nil {
		writeFailure(w, http.StatusNotImplemented, "Saved connections are not configured")
		return
	}
	id := r.PathValue("id")
	if err := s.deps.Connections.Delete(id); err != nil {
		if errors.Is(err, connections.ErrNotFound) {
			writeFailure(w, http.StatusNotFound, messageConnectionNotFound)
			return
		}
		s.logger.ErrorContext(r.Context(), "delete connection failed",
			slog.String("connection_id", id),
			slog.String("error", err.Error()),
		)
		writeFailure(w, http.StatusInternalServerError, "Failed to delete connection")
		return
	}
	writeSuccess(w, map[string]any{"id": id})
}
