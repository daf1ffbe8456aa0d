package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/sipbridge/internal/archivematica"
	"github.com/dukerupert/sipbridge/internal/export"
	"github.com/dukerupert/sipbridge/internal/handler"
	"github.com/dukerupert/sipbridge/internal/middleware"
	"github.com/dukerupert/sipbridge/internal/model"
	"github.com/dukerupert/sipbridge/internal/poller"
	"github.com/dukerupert/sipbridge/internal/store"
	ws "github.com/dukerupert/sipbridge/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	sipH          *handler.SIPHandler
	archiveH      *handler.ArchiveHandler
	exportH       *handler.ExportHandler
	tokenStore    *store.TokenStore
	rateLimiter   *middleware.RateLimiter
	statusPoller  *poller.Poller
	exportManager *export.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, amClient *archivematica.Client, pollInterval time.Duration, exportCfg export.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	sipStore := store.NewSIPStore(db)
	archiveStore := store.NewArchiveStore(db)
	tokenStore := store.NewTokenStore(db)

	exportMgr := export.NewManager(exportCfg, db, logger.With("component", "export"))
	statusPoller := poller.New(archiveStore, amClient, hub, pollInterval, logger.With("component", "poller"))

	return &Server{
		db:            db,
		hub:           hub,
		sipH:          handler.NewSIPHandler(sipStore, archiveStore, logger.With("component", "sip")),
		archiveH:      handler.NewArchiveHandler(archiveStore, amClient, hub, logger.With("component", "archive")),
		exportH:       handler.NewExportHandler(exportMgr, logger.With("component", "export_handler")),
		tokenStore:    tokenStore,
		rateLimiter:   middleware.NewRateLimiter(),
		statusPoller:  statusPoller,
		exportManager: exportMgr,
		logger:        logger,
	}
}

// TokenStore returns the access token store for CLI token management.
func (s *Server) TokenStore() *store.TokenStore {
	return s.tokenStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// StatusPoller returns the background ingest status poller.
func (s *Server) StatusPoller() *poller.Poller {
	return s.statusPoller
}

// ExportManager returns the registry export manager.
func (s *Server) ExportManager() *export.Manager {
	return s.exportManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireToken middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireToken(s.tokenStore)
	outerMux.Handle("/api/", s.rateLimited(authMiddleware(protectedMux)))
	outerMux.Handle("GET /ws", authMiddleware(ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket"))))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.Handler) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.RealIP, 120, time.Minute)(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	write := middleware.RequireScope(model.ScopeWrite)
	admin := middleware.RequireScope(model.ScopeAdmin)

	// SIP API routes
	mux.Handle("POST /api/sips", write(http.HandlerFunc(s.sipH.Create)))
	mux.HandleFunc("GET /api/sips", s.sipH.List)
	mux.HandleFunc("GET /api/sips/{id}", s.sipH.Get)

	// Archive API routes
	mux.HandleFunc("GET /api/archives", s.archiveH.List)
	mux.HandleFunc("GET /api/archives/{accession_id}", s.archiveH.Get)
	mux.Handle("PATCH /api/archives/{accession_id}", write(http.HandlerFunc(s.archiveH.Patch)))
	mux.HandleFunc("GET /api/archives/{accession_id}/download", s.archiveH.Download)

	// Admin routes
	mux.Handle("POST /api/admin/export", admin(http.HandlerFunc(s.exportH.Run)))
	mux.Handle("GET /api/admin/export/status", admin(http.HandlerFunc(s.exportH.Status)))
}
