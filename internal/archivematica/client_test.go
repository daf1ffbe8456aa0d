package archivematica

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIngestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ingest/status/0dc42a77-dbb4-4ba8-8e8a-b56ab0ffbe8c/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "ApiKey demo:secret" {
			t.Errorf("Authorization = %q, want ApiKey demo:secret", got)
		}
		json.NewEncoder(w).Encode(IngestStatus{
			UUID:   "0dc42a77-dbb4-4ba8-8e8a-b56ab0ffbe8c",
			Status: "COMPLETE",
			Name:   "transfer-1",
		})
	}))
	defer server.Close()

	c := NewClient(Config{
		DashboardURL: server.URL,
		Username:     "demo",
		APIKey:       "secret",
	})

	st, err := c.IngestStatus(context.Background(), "0dc42a77-dbb4-4ba8-8e8a-b56ab0ffbe8c")
	if err != nil {
		t.Fatalf("ingest status: %v", err)
	}
	if st.Status != "COMPLETE" {
		t.Errorf("status = %q, want COMPLETE", st.Status)
	}
}

func TestIngestStatusRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(Config{DashboardURL: server.URL})

	_, err := c.IngestStatus(context.Background(), "unknown")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != http.StatusNotFound {
		t.Errorf("code = %d, want %d", se.Code, http.StatusNotFound)
	}
}

func TestIngestStatusUnreachable(t *testing.T) {
	// Point at a server that is already closed.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(Config{DashboardURL: url})

	_, err := c.IngestStatus(context.Background(), "any")
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestDownloadAIP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/file/aip-uuid/download/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Write([]byte("aip-bytes"))
	}))
	defer server.Close()

	c := NewClient(Config{StorageURL: server.URL})

	resp, err := c.DownloadAIP(context.Background(), "aip-uuid")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "aip-bytes" {
		t.Errorf("body = %q, want %q", body, "aip-bytes")
	}
}

func TestDownloadAIPUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(Config{StorageURL: url})

	_, err := c.DownloadAIP(context.Background(), "any")
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestTrailingSlashTrimmed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ingest/status/u/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(IngestStatus{Status: "PROCESSING"})
	}))
	defer server.Close()

	c := NewClient(Config{DashboardURL: server.URL + "/"})
	if _, err := c.IngestStatus(context.Background(), "u"); err != nil {
		t.Fatalf("ingest status: %v", err)
	}
}
