package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/config"
	"github.com/livetemplate/tinkerpen/internal/gateway"
	"github.com/livetemplate/tinkerpen/internal/render"
)

// maxRequestBodySize limits the size of incoming request bodies (1MB)
const maxRequestBodySize = 1 << 20

func (s *Server) registerAPI(r chi.Router) {
	r.Post("/render", s.handleRender)
	r.Get("/snapshot", s.handleLoad)
	r.Put("/snapshot", s.handleSave)
	r.Post("/share", s.handleShare)
}

// readSnapshot decodes a snapshot request body.
func readSnapshot(w http.ResponseWriter, r *http.Request) (tinkerpen.Snapshot, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return tinkerpen.Snapshot{}, false
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return tinkerpen.Snapshot{}, false
	}

	snap, err := tinkerpen.UnmarshalSnapshot(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid snapshot: "+err.Error())
		return tinkerpen.Snapshot{}, false
	}
	return snap, true
}

// handleRender renders a snapshot into a document.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	snap, ok := readSnapshot(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(render.Render(snap).Bytes())
}

// handleLoad returns the saved snapshot.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	snap, err := s.gw.Load(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case tinkerpen.IsNotFound(err):
		writeError(w, http.StatusNotFound, tinkerpen.NoticeNoSaved)
	case tinkerpen.IsDeserialize(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleSave replaces the saved snapshot.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if config.IsReadOnly() {
		writeError(w, http.StatusForbidden, NoticeReadOnly)
		return
	}

	snap, ok := readSnapshot(w, r)
	if !ok {
		return
	}

	if err := s.gw.Save(r.Context(), snap); err != nil {
		writeError(w, http.StatusInsufficientStorage, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// handleShare returns the share link of a snapshot.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	snap, err := tinkerpen.UnmarshalSnapshot(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid snapshot: "+err.Error())
		return
	}

	// The snapshot object may also carry the page URL to share from.
	var req struct {
		Base string `json:"base"`
	}
	_ = json.Unmarshal(body, &req)

	base := req.Base
	if base == "" {
		base = requestOrigin(r) + "/"
	}
	base = s.shareBase(base)

	link, err := gateway.ShareURL(base, snap)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

// requestOrigin reconstructs scheme://host of the request, honoring
// X-Forwarded-Proto.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
