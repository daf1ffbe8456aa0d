package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/sipbridge/internal/export"
)

type ExportHandler struct {
	manager *export.Manager
	logger  *slog.Logger
}

func NewExportHandler(m *export.Manager, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{manager: m, logger: logger}
}

// Run triggers an export in the background and returns immediately.
func (h *ExportHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.manager.Enabled() {
		writeError(w, http.StatusConflict, "export not configured")
		return
	}

	go func() {
		if err := h.manager.RunNow(context.Background()); err != nil {
			h.logger.Error("export", "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// Status reports the export manager state.
func (h *ExportHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}
