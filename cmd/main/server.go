package main

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/mkarres/tagkit/pkg/tagkit"
	"github.com/mkarres/tagkit/pkg/tagstore"
)

// Server renders site pages from the template store and exposes a small
// management API for the stored templates.
type Server struct {
	config *Config
	logger *slog.Logger
	store  *tagstore.Store
	set    *pongo2.TemplateSet
	mux    *http.ServeMux
}

// NewServer builds the template set (database first, filesystem fallback),
// registers the site tags on it, and wires up all routes.
func NewServer(config *Config, logger *slog.Logger, store *tagstore.Store) (*Server, error) {
	fsLoader, err := pongo2.NewLocalFileSystemLoader(config.Server.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem template loader: %w", err)
	}
	set := pongo2.NewSet("site", tagstore.NewLoader(store, 0), fsLoader)

	if err = registerSiteTags(config.Site, set); err != nil {
		return nil, fmt.Errorf("failed to register template tags: %w", err)
	}

	s := &Server{
		config: config,
		logger: logger,
		store:  store,
		set:    set,
		mux:    http.NewServeMux(),
	}

	s.mux.HandleFunc("/api/templates/export", s.handleExport)
	s.mux.HandleFunc("/api/templates/import", s.handleImport)
	s.mux.HandleFunc("/api/templates/", s.handleTemplate)
	s.mux.HandleFunc("/api/templates", s.handleList)
	s.mux.HandleFunc("/", s.handlePage)

	return s, nil
}

// handlePage renders a stored template as a site page. "/" maps to
// index.html; every other path is the template name.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/")
	if name == "" {
		name = "index.html"
	}
	if strings.Contains(name, "..") {
		http.NotFound(w, r)
		return
	}

	tpl, err := s.set.FromCache(name)
	if err != nil {
		s.logger.Debug("Template not found", "template", name, "error", err)
		http.NotFound(w, r)
		return
	}

	token, err := csrfToken()
	if err != nil {
		s.logger.Error("Failed to generate csrf token", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Render into a buffer first so template errors never leak a half page.
	var buf bytes.Buffer
	err = tpl.ExecuteWriter(tagkit.NewRequestContext(r, pongo2.Context{
		"csrf_token": token,
		"path":       r.URL.Path,
	}), &buf)
	if err != nil {
		s.logger.Error("Failed to execute template", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleList returns the names of all stored templates.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	templates, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("Failed to list templates", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}
	names := make([]string, 0, len(templates))
	for _, tpl := range templates {
		names = append(names, tpl.Name)
	}
	respondWithJSON(w, http.StatusOK, names)
}

// handleTemplate reads, replaces, or removes a single stored template.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/templates/")
	if name == "" {
		respondWithError(w, http.StatusBadRequest, "Template name is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		tpl, err := s.store.Get(r.Context(), name)
		if errors.Is(err, tagstore.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Template not found")
			return
		}
		if err != nil {
			s.logger.Error("Failed to load template", "template", name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to load template")
			return
		}
		respondWithJSON(w, http.StatusOK, tpl)

	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read request body: %v", err))
			return
		}
		// Reject sources that do not compile before they reach the store.
		if _, err = s.set.FromString(string(body)); err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Template does not compile: %v", err))
			return
		}
		if err = s.store.Put(r.Context(), name, string(body)); err != nil {
			s.logger.Error("Failed to store template", "template", name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to store template")
			return
		}
		s.set.CleanCache(name)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		err := s.store.Delete(r.Context(), name)
		if errors.Is(err, tagstore.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Template not found")
			return
		}
		if err != nil {
			s.logger.Error("Failed to delete template", "template", name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to delete template")
			return
		}
		s.set.CleanCache(name)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleExport streams a JSON backup of every stored template.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="templates.json"`)
	if err := s.store.Export(r.Context(), w); err != nil {
		s.logger.Error("Failed to export templates", "error", err)
	}
}

// handleImport merges an uploaded JSON backup into the store.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := s.store.Import(r.Context(), r.Body); err != nil {
		s.logger.Error("Failed to import templates", "error", err)
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Import failed: %v", err))
		return
	}
	// Imported sources may shadow anything already compiled.
	s.set.CleanCache()
	w.WriteHeader(http.StatusNoContent)
}

// csrfToken returns a random per-request token for the csrf_token context
// variable that inclusion tags propagate into sub-templates.
func csrfToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		err := json.NewEncoder(w).Encode(payload)
		if err != nil {
			fmt.Printf("ERROR: Failed to encode JSON response: %v\n", err)
		}
	}
}
