// Package server exposes the scrape pipeline over HTTP: health and progress
// probes, a start trigger, exclusion management and read-only access to the
// saved run artifacts under data/.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"avtopress/internal/logger"
	"avtopress/internal/runner"
	"avtopress/internal/sink"
)

const (
	readHeaderTimeout = 10 * time.Second
	maxExcludeBody    = 4 << 10
)

// Scraper runs one full pipeline pass. *runner.Runner satisfies it.
type Scraper interface {
	Run(ctx context.Context, tracker *runner.Tracker) (runner.Result, error)
}

// Server routes pipeline operations. Scrapes run in the background; the
// tracker is the single source of truth for their state.
type Server struct {
	scraper         Scraper
	tracker         *runner.Tracker
	root            string
	excludedIDsPath string
	mux             *http.ServeMux
}

// New wires the handler set. root anchors the static /data/ file serving.
func New(scraper Scraper, tracker *runner.Tracker, root, excludedIDsPath string) *Server {
	s := &Server{
		scraper:         scraper,
		tracker:         tracker,
		root:            root,
		excludedIDsPath: excludedIDsPath,
		mux:             http.NewServeMux(),
	}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/scrape/status", s.handleScrapeStatus)
	s.mux.HandleFunc("/api/scrape/start", s.handleScrapeStart)
	s.mux.HandleFunc("/api/items/exclude", s.handleExcludeItem)
	s.mux.HandleFunc("/data/", s.handleStatic)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe blocks until the listener fails or ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleScrapeStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Snapshot())
}

func (s *Server) handleScrapeStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !s.tracker.TryStart() {
		writeJSON(w, http.StatusConflict, s.tracker.Snapshot())
		return
	}

	go func() {
		if _, err := s.scraper.Run(context.Background(), s.tracker); err != nil {
			logger.Error("background scrape failed", "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, s.tracker.Snapshot())
}

type excludeRequest struct {
	ID string `json:"id"`
}

type excludeResponse struct {
	OK          bool     `json:"ok"`
	Added       bool     `json:"added"`
	ExcludedIDs []string `json:"excluded_ids"`
}

func (s *Server) handleExcludeItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req excludeRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxExcludeBody))
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	added, ids, err := sink.AddExcludedID(s.excludedIDsPath, req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger.Info("item exclusion updated", "id", req.ID, "added", added)
	writeJSON(w, http.StatusOK, excludeResponse{OK: true, Added: added, ExcludedIDs: ids})
}

// safePath maps a request path onto the workspace, rejecting anything that
// escapes the root after normalization.
func (s *Server) safePath(requestPath string) string {
	trimmed := strings.TrimLeft(requestPath, "/\\")
	resolved := filepath.Join(s.root, filepath.FromSlash(trimmed))

	relative, err := filepath.Rel(s.root, resolved)
	if err != nil || relative == ".." || strings.HasPrefix(relative, ".."+string(filepath.Separator)) {
		return ""
	}
	return resolved
}

func contentTypeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	absPath := s.safePath(r.URL.Path)
	if absPath == "" {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}

	info, err := os.Stat(absPath)
	if err != nil || !info.Mode().IsRegular() {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	file, err := os.Open(absPath)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", contentTypeForFile(absPath))
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, "", info.ModTime(), file)
}
