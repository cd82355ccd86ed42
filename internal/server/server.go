// Package server serves the playground page and hosts one live session per
// browser connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/cache"
	"github.com/livetemplate/tinkerpen/internal/config"
	"github.com/livetemplate/tinkerpen/internal/editor"
	"github.com/livetemplate/tinkerpen/internal/gateway"
	"github.com/livetemplate/tinkerpen/internal/store"
)

// Server is the playground HTTP server.
type Server struct {
	config   *config.Config
	store    store.Store
	gw       *gateway.Gateway
	penDir   string // optional pen directory new sessions start from
	sessions *cache.Registry[*liveSession]
	page     *template.Template
	welcome  template.HTML
	router   chi.Router

	mu      sync.Mutex
	watcher *editor.Watcher

	cancel        context.CancelFunc
	rateLimitDone <-chan struct{}
}

// New creates a server persisting through st. penDir may be empty; when set,
// new sessions start from the pen files in it.
func New(cfg *config.Config, st store.Store, penDir string) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	page, err := parsePage()
	if err != nil {
		return nil, fmt.Errorf("failed to parse playground page: %w", err)
	}

	welcome, err := loadWelcome(cfg.Welcome)
	if err != nil {
		return nil, fmt.Errorf("failed to load welcome text: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:  cfg,
		store:   st,
		gw:      gateway.New(st, cfg.Storage.GetKey()),
		penDir:  penDir,
		page:    page,
		welcome: welcome,
		cancel:  cancel,
	}
	s.sessions = cache.NewRegistry(cfg.Sessions.GetTTL(), func(id string, ls *liveSession) {
		if cfg.Server.Debug {
			log.Printf("[Server] Session %s expired", id)
		}
		ls.close()
	})
	s.router = s.routes(ctx)

	return s, nil
}

func (s *Server) routes(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if s.config.Server.Debug {
		r.Use(middleware.Logger)
	}

	// The WebSocket endpoint needs the raw connection, so it stays outside
	// the compressing group.
	r.Get("/ws", s.serveWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(SecurityHeadersMiddleware())
		r.Use(middleware.Compress(5, "text/html", "text/css", "application/javascript", "application/json"))

		r.Get("/", s.servePlayground)
		r.Get("/preview", s.servePreview)
		r.Get("/assets/{name}", s.serveAsset)
		r.Get("/healthz", s.serveHealth)

		if s.config.IsAPIEnabled() {
			rateLimit, done := RateLimitMiddleware(ctx,
				s.config.API.GetRateLimitRPS(), s.config.API.GetRateLimitBurst(), s.config.API.GetMaxTrackedIPs())
			s.rateLimitDone = done

			r.Route("/api", func(r chi.Router) {
				r.Use(CORSMiddleware(s.config.API.GetCORSOrigins()))
				r.Use(rateLimit)
				s.registerAPI(r)
			})
		}
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	return s.sessions.Len()
}

// initialSnapshot returns what a new session starts with: the pen directory
// contents when serving one, otherwise the default boilerplate.
func (s *Server) initialSnapshot() tinkerpen.Snapshot {
	if s.penDir == "" {
		return tinkerpen.DefaultSnapshot()
	}

	snap, err := store.ReadPen(s.penDir)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[Server] Failed to read pen directory %s: %v", s.penDir, err)
		}
		return tinkerpen.DefaultSnapshot()
	}
	return snap
}

// SyncAll pushes snap into every live session. Sessions already holding snap
// are left alone. It returns how many sessions changed.
func (s *Server) SyncAll(snap tinkerpen.Snapshot) int {
	changed := 0
	s.sessions.Range(func(id string, ls *liveSession) bool {
		if ls.sess.Sync(snap) {
			changed++
		}
		return true
	})
	return changed
}

// EnableWatch reloads the pen directory into all sessions whenever its files
// change on disk.
func (s *Server) EnableWatch(debug bool) error {
	if s.penDir == "" {
		return fmt.Errorf("no pen directory to watch")
	}

	watcher, err := editor.NewWatcher(s.penDir, store.PenFiles, func() error {
		snap, err := store.ReadPen(s.penDir)
		if err != nil {
			return fmt.Errorf("failed to read pen: %w", err)
		}

		n := s.SyncAll(snap)
		log.Printf("[Watch] Pen changed, updated %d session(s)", n)
		return nil
	}, debug)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()
	watcher.Start()

	log.Printf("[Watch] File watcher started for %s", s.penDir)
	return nil
}

// Close stops the watcher and rate limiter and ends every session.
func (s *Server) Close() error {
	s.mu.Lock()
	watcher := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	var err error
	if watcher != nil {
		err = watcher.Stop()
	}

	s.cancel()
	if s.rateLimitDone != nil {
		select {
		case <-s.rateLimitDone:
		case <-time.After(time.Second):
		}
	}

	s.sessions.Stop()
	return err
}
