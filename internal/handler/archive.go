package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/sipbridge/internal/archivematica"
	"github.com/dukerupert/sipbridge/internal/model"
	"github.com/dukerupert/sipbridge/internal/status"
	"github.com/dukerupert/sipbridge/internal/store"
	"github.com/dukerupert/sipbridge/internal/websocket"
	"github.com/google/uuid"
)

// statusRemoteUnreachable mirrors Cloudflare's unofficial 520: the upstream
// archival system could not be reached at all.
const statusRemoteUnreachable = 520

// amClient is the slice of the Archivematica client the handlers need.
type amClient interface {
	Configured() bool
	IngestStatus(ctx context.Context, uuid string) (*archivematica.IngestStatus, error)
	DownloadAIP(ctx context.Context, uuid string) (*http.Response, error)
}

type ArchiveHandler struct {
	archives *store.ArchiveStore
	client   amClient
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewArchiveHandler(as *store.ArchiveStore, client amClient, hub *websocket.Hub, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{archives: as, client: client, hub: hub, logger: logger}
}

func (h *ArchiveHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

// archiveResponse is the wire shape of an archive record.
type archiveResponse struct {
	SIPID           string  `json:"sip_id"`
	Status          string  `json:"status"`
	AccessionID     string  `json:"accession_id"`
	ArchivematicaID *string `json:"archivematica_id"`
}

func toResponse(a *model.Archive) archiveResponse {
	return archiveResponse{
		SIPID:           a.SIPID,
		Status:          a.Status.String(),
		AccessionID:     a.AccessionID,
		ArchivematicaID: a.ArchivematicaID,
	}
}

// List returns archives, optionally filtered with ?status=<token>.
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	var st status.ArchiveStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		translated, ok := status.FromString(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		st = translated
	}

	archives, err := h.archives.List(st)
	if err != nil {
		h.logger.Error("list archives", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}

	resp := make([]archiveResponse, 0, len(archives))
	for i := range archives {
		resp = append(resp, toResponse(&archives[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one archive. When the request asks for the real status
// (?real_status=true or a JSON body {"realStatus": true}) and the archive is
// known to Archivematica, the dashboard is queried first: its error statuses
// are forwarded verbatim, unreachability maps to 520, and a successful
// answer is persisted before responding.
func (h *ArchiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	ark, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if wantRealStatus(r) && ark.ArchivematicaID != nil {
		ingest, err := h.client.IngestStatus(r.Context(), *ark.ArchivematicaID)
		if err != nil {
			h.writeRemoteError(w, err)
			return
		}

		if next, known := status.FromString(ingest.Status); known && next != ark.Status {
			updated, err := h.archives.SetStatus(ark.AccessionID, next)
			if err != nil {
				h.logger.Error("persist real status", "accession_id", ark.AccessionID, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to update archive")
				return
			}
			h.broadcast(websocket.StatusEvent(ark.AccessionID, next))
			ark = updated
		}
	}

	writeJSON(w, http.StatusOK, toResponse(ark))
}

type patchRequest struct {
	ArchivematicaID *string `json:"archivematica_id"`
	Status          *string `json:"status"`
}

// Patch updates the Archivematica identifier and/or status of an archive.
// Status tokens go through the same translation as poll results, so PATCHing
// "COMPLETE" persists REGISTERED.
func (h *ArchiveHandler) Patch(w http.ResponseWriter, r *http.Request) {
	ark, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	next := ark.Status
	if req.Status != nil {
		translated, known := status.FromString(*req.Status)
		if !known {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		next = translated
	}

	if req.ArchivematicaID != nil {
		if _, err := uuid.Parse(*req.ArchivematicaID); err != nil {
			writeError(w, http.StatusBadRequest, "archivematica_id must be a UUID")
			return
		}
	}

	updated, err := h.archives.Update(ark.AccessionID, req.ArchivematicaID, next)
	if err != nil {
		h.logger.Error("patch archive", "accession_id", ark.AccessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update archive")
		return
	}

	if updated.Status != ark.Status {
		h.broadcast(websocket.StatusEvent(ark.AccessionID, updated.Status))
	}

	writeJSON(w, http.StatusOK, toResponse(updated))
}

// Download streams the stored AIP from the Archivematica Storage Service.
// 412 when the archive has no Archivematica identifier yet, 520 when the
// storage service cannot be reached, otherwise the remote status is relayed.
func (h *ArchiveHandler) Download(w http.ResponseWriter, r *http.Request) {
	ark, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if ark.ArchivematicaID == nil {
		writeError(w, http.StatusPreconditionFailed, "archive has not been sent to archivematica")
		return
	}

	resp, err := h.client.DownloadAIP(r.Context(), *ark.ArchivematicaID)
	if err != nil {
		h.writeRemoteError(w, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		writeError(w, resp.StatusCode, "archivematica storage refused the download")
		return
	}

	for _, header := range []string{"Content-Type", "Content-Length", "Content-Disposition"} {
		if v := resp.Header.Get(header); v != "" {
			w.Header().Set(header, v)
		}
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn("stream aip", "accession_id", ark.AccessionID, "error", err)
	}
}

// lookup loads the archive from the path's accession_id, writing a 404 when
// it does not exist.
func (h *ArchiveHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.Archive, bool) {
	accessionID := r.PathValue("accession_id")

	ark, err := h.archives.GetByAccessionID(accessionID)
	if err != nil {
		h.logger.Error("get archive", "accession_id", accessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get archive")
		return nil, false
	}
	if ark == nil {
		writeError(w, http.StatusNotFound, "archive not found")
		return nil, false
	}
	return ark, true
}

func (h *ArchiveHandler) writeRemoteError(w http.ResponseWriter, err error) {
	if errors.Is(err, archivematica.ErrUnreachable) {
		writeError(w, statusRemoteUnreachable, "archivematica unreachable")
		return
	}
	var se *archivematica.StatusError
	if errors.As(err, &se) {
		writeError(w, se.Code, "archivematica error")
		return
	}
	h.logger.Error("archivematica request", "error", err)
	writeError(w, http.StatusInternalServerError, "archivematica request failed")
}

// wantRealStatus reports whether the request asks to consult Archivematica
// instead of trusting the stored status. Both the query parameter and the
// legacy JSON body form are accepted.
func wantRealStatus(r *http.Request) bool {
	if r.URL.Query().Get("real_status") == "true" {
		return true
	}
	if r.Body == nil {
		return false
	}
	var req struct {
		RealStatus bool `json:"realStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return false
	}
	return req.RealStatus
}
