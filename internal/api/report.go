package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/edubull/eeebee/internal/identity"
	"github.com/edubull/eeebee/internal/report"
	"github.com/go-chi/chi/v5"
)

// ReportHandler exports the last generated document.
type ReportHandler struct {
	*Handler
}

// NewReportHandler creates a report handler.
func NewReportHandler(base *Handler) *ReportHandler {
	return &ReportHandler{Handler: base}
}

// RegisterRoutes registers report routes. They require a session.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/report.pdf", h.DownloadPDF)
}

// DownloadPDF renders the stored learning path or exam questions.
func (h *ReportHandler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	sess := identity.SessionFromContext(r.Context())
	if sess == nil {
		Error(w, http.StatusUnauthorized, "not logged in")
		return
	}
	rep, ok := sess.Report()
	if !ok {
		Error(w, http.StatusNotFound, "nothing has been generated yet")
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, rep); err != nil {
		slog.Error("PDF export failed", "session_id", sess.ID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(rep)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("Failed to write PDF", "session_id", sess.ID, "error", err)
	}
}
