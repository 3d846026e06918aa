// Package api provides read-only REST access to the track archive.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"quickroute/internal/export"
	"quickroute/internal/log"
	"quickroute/internal/qrt"
	"quickroute/internal/storage"
)

// Server serves the track archive over HTTP.
type Server struct {
	store       storage.Store
	port        int
	authEnabled bool
	apiKeys     map[string]bool // Simple API key auth (when enabled).
}

// Config holds configuration for the API server.
type Config struct {
	Port        int
	AuthEnabled bool
	APIKeys     []string // List of valid API keys.
}

// NewServer creates a new archive API server.
func NewServer(store storage.Store, cfg Config) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}

	return &Server{
		store:       store,
		port:        cfg.Port,
		authEnabled: cfg.AuthEnabled,
		apiKeys:     keys,
	}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS for browser access.
	r.Use(corsMiddleware)

	// Optional authentication.
	if s.authEnabled {
		r.Use(s.authMiddleware)
	}

	// API routes.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/tracks", s.handleListTracks)
		r.Get("/tracks/{id}", s.handleGetTrack)
		r.Get("/tracks/{id}/document", s.handleGetDocument)

		// Export in interchange formats.
		r.Get("/tracks/{id}/gpx", s.handleExportGPX)
		r.Get("/tracks/{id}/kml", s.handleExportKML)

		r.Get("/stats", s.handleStats)
	})

	addr := ":" + strconv.Itoa(s.port)
	log.Logger.Info("archive API starting",
		zap.String("addr", addr),
		zap.Bool("auth", s.authEnabled))

	return http.ListenAndServe(addr, r)
}

// Router returns the configured chi router for embedding in other
// servers and for tests.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// Optional authentication.
	if s.authEnabled {
		r.Use(s.authMiddleware)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/tracks", s.handleListTracks)
	r.Get("/tracks/{id}", s.handleGetTrack)
	r.Get("/tracks/{id}/document", s.handleGetDocument)
	r.Get("/tracks/{id}/gpx", s.handleExportGPX)
	r.Get("/tracks/{id}/kml", s.handleExportKML)
	r.Get("/stats", s.handleStats)

	return r
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		// Fall back to query parameter (for simple testing).
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := storage.QueryParams{
		Name:     q.Get("name"),
		Club:     q.Get("club"),
		FullText: q.Get("q"),
		OrderBy:  q.Get("order"),
	}

	if v := q.Get("since"); v != "" {
		t, err := parseTimeParam(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid since (use RFC 3339 or YYYY-MM-DD)")
			return
		}
		params.Since = t
	}
	if v := q.Get("until"); v != "" {
		t, err := parseTimeParam(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid until (use RFC 3339 or YYYY-MM-DD)")
			return
		}
		params.Until = t
	}
	if v := q.Get("min_distance"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid min_distance")
			return
		}
		params.MinDistance = f
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		params.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid offset")
			return
		}
		params.Offset = n
	}
	params.OrderDesc = q.Get("desc") == "true" || q.Get("desc") == "1"

	tracks, err := s.store.Query(r.Context(), params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tracks == nil {
		tracks = []storage.Track{}
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	id, err := trackID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid track ID")
		return
	}

	track, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if track == nil {
		writeError(w, http.StatusNotFound, "Track not found")
		return
	}

	writeJSON(w, http.StatusOK, track)
}

// handleGetDocument serves the stored decode result verbatim.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := trackID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid track ID")
		return
	}

	track, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if track == nil {
		writeError(w, http.StatusNotFound, "Track not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(track.DocumentJSON))
}

func (s *Server) handleExportGPX(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, "gpx")
}

func (s *Server) handleExportKML(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, "kml")
}

// handleExport re-decodes the archived raw payload and renders it in
// the requested format.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, format string) {
	id, err := trackID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid track ID")
		return
	}

	track, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if track == nil {
		writeError(w, http.StatusNotFound, "Track not found")
		return
	}

	payload, err := s.store.Payload(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(payload) == 0 {
		writeError(w, http.StatusNotFound, "No raw payload stored for track")
		return
	}

	doc, err := qrt.Decode(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Decode failed: "+err.Error())
		return
	}

	name := track.Name
	if name == "" {
		name = track.Source
	}

	var data []byte
	var contentType string
	switch format {
	case "gpx":
		data, err = export.ToGPX(doc, name)
		contentType = "application/gpx+xml"
	case "kml":
		data, err = export.ToKML(doc, name)
		contentType = "application/vnd.google-earth.kml+xml"
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("track-%d.%s", id, format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Helper functions.

func trackID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parseTimeParam(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
