package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/sipbridge/internal/database"
	"github.com/dukerupert/sipbridge/internal/store"
	"github.com/google/uuid"
)

func setupSIPHandler(t *testing.T) (*SIPHandler, *store.ArchiveStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ss := store.NewSIPStore(db)
	as := store.NewArchiveStore(db)
	return NewSIPHandler(ss, as, slog.Default()), as
}

func TestSIPCreate(t *testing.T) {
	h, as := setupSIPHandler(t)

	req := httptest.NewRequest("POST", "/api/sips", strings.NewReader(`{"name": "thesis scans", "accession_id": "acc-1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body)
	}

	var resp sipResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, err := uuid.Parse(resp.ID); err != nil {
		t.Errorf("sip id %q is not a UUID", resp.ID)
	}
	if resp.Name != "thesis scans" {
		t.Errorf("name = %q, want thesis scans", resp.Name)
	}
	if resp.Archive.AccessionID != "acc-1" {
		t.Errorf("accession_id = %q, want acc-1", resp.Archive.AccessionID)
	}
	if resp.Archive.Status != "NEW" {
		t.Errorf("archive status = %q, want NEW", resp.Archive.Status)
	}

	ark, _ := as.GetByAccessionID("acc-1")
	if ark == nil {
		t.Fatal("archive was not persisted")
	}
}

func TestSIPCreateDefaultsAccessionID(t *testing.T) {
	h, as := setupSIPHandler(t)

	req := httptest.NewRequest("POST", "/api/sips", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	var resp sipResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Archive.AccessionID != resp.ID {
		t.Errorf("accession_id = %q, want the SIP id %q", resp.Archive.AccessionID, resp.ID)
	}

	ark, _ := as.GetByAccessionID(resp.ID)
	if ark == nil {
		t.Fatal("archive was not persisted under the SIP id")
	}
}

func TestSIPCreateDuplicateAccessionID(t *testing.T) {
	h, _ := setupSIPHandler(t)

	first := httptest.NewRequest("POST", "/api/sips", strings.NewReader(`{"accession_id": "dup"}`))
	h.Create(httptest.NewRecorder(), first)

	second := httptest.NewRequest("POST", "/api/sips", strings.NewReader(`{"accession_id": "dup"}`))
	rec := httptest.NewRecorder()
	h.Create(rec, second)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestSIPCreateInvalidJSON(t *testing.T) {
	h, _ := setupSIPHandler(t)

	req := httptest.NewRequest("POST", "/api/sips", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSIPGet(t *testing.T) {
	h, _ := setupSIPHandler(t)

	create := httptest.NewRequest("POST", "/api/sips", strings.NewReader(`{"name": "box 7"}`))
	createRec := httptest.NewRecorder()
	h.Create(createRec, create)
	var created sipResponse
	json.NewDecoder(createRec.Body).Decode(&created)

	req := httptest.NewRequest("GET", "/api/sips/"+created.ID, nil)
	req.SetPathValue("id", created.ID)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp sipResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.ID != created.ID {
		t.Errorf("id = %q, want %q", resp.ID, created.ID)
	}
	if resp.Archive.SIPID != created.ID {
		t.Errorf("archive sip_id = %q, want %q", resp.Archive.SIPID, created.ID)
	}
}

func TestSIPGetNotFound(t *testing.T) {
	h, _ := setupSIPHandler(t)

	req := httptest.NewRequest("GET", "/api/sips/"+uuid.NewString(), nil)
	req.SetPathValue("id", uuid.NewString())
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSIPListEmpty(t *testing.T) {
	h, _ := setupSIPHandler(t)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest("GET", "/api/sips", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}
