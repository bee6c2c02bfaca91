package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sqlpeek/sqlpeek/internal/export"
	"github.com/sqlpeek/sqlpeek/internal/observability"
	"github.com/sqlpeek/sqlpeek/internal/query"
	"github.com/sqlpeek/sqlpeek/internal/view"
)

const (
	destinationDownload    = "download"
	destinationObjectStore = "object_store"
)

type viewRequest struct {
	Result        *query.Result `json:"result"`
	Spec          view.Spec     `json:"spec"`
	ColumnRenames view.Renames  `json:"columnRenames"`
}

type viewResponse struct {
	Columns []string `json:"columns"`
	Headers []string `json:"headers"`
	view.Page
}

type exportRequest struct {
	viewRequest
	Format      string `json:"format"`
	Destination string `json:"destination"`
}

func (s *server) handleView(w http.ResponseWriter, r *http.Request) {
	var request viewRequest
	if !decodeBody(w, r, &request) {
		return
	}
	if request.Result == nil {
		writeFailure(w, http.StatusBadRequest, "Result is required")
		return
	}
	page := view.Compute(*request.Result, request.Spec)
	writeSuccess(w, viewResponse{
		Columns: nonNil(request.Result.Columns),
		Headers: request.ColumnRenames.Header(request.Result.Columns),
		Page:    page,
	})
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	var request exportRequest
	if !decodeBody(w, r, &request) {
		return
	}
	if request.Result == nil {
		writeFailure(w, http.StatusBadRequest, "Result is required")
		return
	}
	rawFormat := request.Format
	if strings.TrimSpace(rawFormat) == "" {
		rawFormat = s.cfg.Export.DefaultFormat
	}
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, fmt.Sprintf("Unsupported export format: %s", rawFormat))
		return
	}
	destination := strings.TrimSpace(request.Destination)
	if destination == "" {
		destination = destinationDownload
	}

	rows := view.FilterAndSort(*request.Result, request.Spec)
	header := request.ColumnRenames.Header(request.Result.Columns)
	now := s.deps.Now().UTC()

	switch destination {
	case destinationDownload:
		var buf bytes.Buffer
		if err := export.Write(&buf, format, header, rows); err != nil {
			s.logger.ErrorContext(r.Context(), "export failed", slog.String("format", string(format)), slog.String("error", err.Error()))
			writeFailure(w, http.StatusInternalServerError, "Failed to export results")
			return
		}
		observability.IncrementExport(string(format), destination)
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(format, now)))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	case destinationObjectStore:
		if !s.cfg.Export.ObjectStoreEnabled || s.deps.Exports == nil {
			writeFailure(w, http.StatusBadRequest, "Object store export is not enabled")
			return
		}
		info, err := export.Upload(r.Context(), s.deps.Exports, format, header, rows, now)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "export upload failed", slog.String("format", string(format)), slog.String("error", err.Error()))
			writeFailure(w, http.StatusInternalServerError, "Failed to upload export")
			return
		}
		observability.IncrementExport(string(format), destination)
		writeSuccess(w, map[string]any{
			"key":      info.Key,
			"size":     info.Size,
			"fileName": export.FileName(format, now),
			"rows":     len(rows),
		})
	default:
		writeFailure(w, http.StatusBadRequest, fmt.Sprintf("Unsupported export destination: %s", destination))
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
