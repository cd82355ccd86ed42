package server

import (
	"bytes"
	"html/template"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/livetemplate/tinkerpen/internal/assets"
	"github.com/livetemplate/tinkerpen/internal/config"
	"github.com/livetemplate/tinkerpen/internal/gateway"
	"github.com/livetemplate/tinkerpen/internal/render"
)

// CodeMirrorBase is where the page loads the editor widget from.
const CodeMirrorBase = "https://cdnjs.cloudflare.com/ajax/libs/codemirror/5.65.16"

// pageData fills the playground page template.
type pageData struct {
	Title          string
	CodeMirrorBase string
	FontSize       int
	FontSizeMin    int
	FontSizeMax    int
	NoticeMS       int64
	WelcomeMS      int64
	WelcomeHTML    template.HTML
	ReadOnly       bool
}

func parsePage() (*template.Template, error) {
	src, err := assets.GetPageTemplate()
	if err != nil {
		return nil, err
	}
	return template.New("playground").Parse(string(src))
}

// loadWelcome renders the welcome overlay content, or returns "" when the
// overlay is disabled.
func loadWelcome(cfg config.WelcomeConfig) (template.HTML, error) {
	if cfg.Disabled {
		return "", nil
	}

	var md []byte
	var err error
	if cfg.File != "" {
		md, err = os.ReadFile(cfg.File)
	} else {
		md, err = assets.GetWelcomeMarkdown()
	}
	if err != nil {
		return "", err
	}
	return RenderWelcome(md)
}

// RenderWelcome converts markdown to HTML and strips anything unsafe, so a
// welcome file cannot inject script into the page.
func RenderWelcome(md []byte) (template.HTML, error) {
	var buf bytes.Buffer
	gm := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := gm.Convert(md, &buf); err != nil {
		return "", err
	}

	safe := bluemonday.UGCPolicy().SanitizeBytes(buf.Bytes())
	return template.HTML(safe), nil
}

// servePlayground serves the playground page.
func (s *Server) servePlayground(w http.ResponseWriter, r *http.Request) {
	lo, hi := s.config.Editor.GetFontSizeRange()
	data := pageData{
		Title:          s.config.Title,
		CodeMirrorBase: CodeMirrorBase,
		FontSize:       s.config.Editor.GetFontSize(),
		FontSizeMin:    lo,
		FontSizeMax:    hi,
		NoticeMS:       s.config.Notices.GetDuration().Milliseconds(),
		WelcomeMS:      s.config.Welcome.GetDuration().Milliseconds(),
		WelcomeHTML:    s.welcome,
		ReadOnly:       config.IsReadOnly(),
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		log.Printf("[Server] Failed to render playground page: %v", err)
		http.Error(w, "Playground not available", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}

// serveAsset serves the page's script and stylesheet.
func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) {
	var data []byte
	var err error

	switch chi.URLParam(r, "name") {
	case "playground.js":
		data, err = assets.GetClientJS()
		w.Header().Set("Content-Type", "application/javascript")
	case "playground.css":
		data, err = assets.GetClientCSS()
		w.Header().Set("Content-Type", "text/css")
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		http.Error(w, "Asset not found", http.StatusNotFound)
		return
	}
	_, _ = w.Write(data)
}

// PreviewSandbox lists the capabilities a preview document gets. It matches
// the sandbox attribute of the playground's output frame; without
// allow-same-origin the preview cannot reach the playground page or its API.
const PreviewSandbox = "allow-scripts allow-modals allow-forms allow-popups"

// previewCSP replaces the page policy on /preview responses.
const previewCSP = "sandbox " + PreviewSandbox + "; " +
	"default-src * data: blob: 'unsafe-inline' 'unsafe-eval'; " +
	"frame-ancestors 'self'"

// servePreview renders the snapshot in the code parameter as a standalone
// document.
func (s *Server) servePreview(w http.ResponseWriter, r *http.Request) {
	snap, ok, err := gateway.FromQuery(r.URL.Query())
	if !ok {
		http.Error(w, "missing code parameter", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", previewCSP)
	_, _ = w.Write(render.Render(snap).Bytes())
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.SessionCount(),
	})
}
