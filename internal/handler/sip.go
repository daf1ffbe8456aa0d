package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/sipbridge/internal/model"
	"github.com/dukerupert/sipbridge/internal/store"
)

type SIPHandler struct {
	sips     *store.SIPStore
	archives *store.ArchiveStore
	logger   *slog.Logger
}

func NewSIPHandler(ss *store.SIPStore, as *store.ArchiveStore, logger *slog.Logger) *SIPHandler {
	return &SIPHandler{sips: ss, archives: as, logger: logger}
}

type sipRequest struct {
	Name        string `json:"name"`
	AccessionID string `json:"accession_id"`
}

type sipResponse struct {
	model.SIP
	Archive archiveResponse `json:"archive"`
}

// Create registers a new SIP. The archive record tracking its ingestion is
// created alongside it; the accession id defaults to the SIP's UUID.
func (h *SIPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req sipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	sip, err := h.sips.Create(strings.TrimSpace(req.Name))
	if err != nil {
		h.logger.Error("create sip", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create sip")
		return
	}

	accessionID := strings.TrimSpace(req.AccessionID)
	if accessionID == "" {
		accessionID = sip.ID
	}

	ark, err := h.archives.Create(sip.ID, accessionID)
	if err != nil {
		h.logger.Error("create archive", "sip_id", sip.ID, "error", err)
		writeError(w, http.StatusConflict, "accession_id already in use")
		return
	}

	writeJSON(w, http.StatusCreated, sipResponse{SIP: *sip, Archive: toResponse(ark)})
}

// Get returns one SIP with its archive record.
func (h *SIPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sip, err := h.sips.GetByID(id)
	if err != nil {
		h.logger.Error("get sip", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get sip")
		return
	}
	if sip == nil {
		writeError(w, http.StatusNotFound, "sip not found")
		return
	}

	ark, err := h.archives.GetBySIPID(sip.ID)
	if err != nil || ark == nil {
		h.logger.Error("get archive for sip", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get archive")
		return
	}

	writeJSON(w, http.StatusOK, sipResponse{SIP: *sip, Archive: toResponse(ark)})
}

// List returns all SIPs, newest first.
func (h *SIPHandler) List(w http.ResponseWriter, r *http.Request) {
	sips, err := h.sips.List()
	if err != nil {
		h.logger.Error("list sips", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sips")
		return
	}
	if sips == nil {
		sips = []model.SIP{}
	}
	writeJSON(w, http.StatusOK, sips)
}
