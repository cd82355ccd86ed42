package main

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/livetemplate/tinkerpen/internal/config"
	"github.com/livetemplate/tinkerpen/internal/server"
	"github.com/livetemplate/tinkerpen/internal/store"
)

// App struct holds the application state.
type App struct {
	ctx        context.Context
	server     *server.Server
	store      store.Store
	httpServer *http.Server
	serverPort int
	currentDir string
	mu         sync.RWMutex
}

// NewApp creates a new App application struct.
func NewApp() *App {
	return &App{}
}

// startup is called when the app starts. An empty playground is available
// right away; opening a pen directory replaces it.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	if err := a.loadDirectory(""); err != nil {
		runtime.LogErrorf(ctx, "failed to start playground: %v", err)
	}
}

// shutdown is called when the app is closing.
func (a *App) shutdown(ctx context.Context) {
	a.stopServer()
}

// stopServer stops the current server if running.
func (a *App) stopServer() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.httpServer != nil {
		a.httpServer.Close()
		a.httpServer = nil
	}
	if a.server != nil {
		a.server.Close()
		a.server = nil
	}
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
	a.serverPort = 0
	a.currentDir = ""
}

// OpenDirectory opens a directory dialog and loads the chosen pen.
func (a *App) OpenDirectory() (string, error) {
	selection, err := runtime.OpenDirectoryDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Open Pen Directory",
	})
	if err != nil {
		return "", err
	}

	if selection == "" {
		return "", nil
	}

	if err := a.loadDirectory(selection); err != nil {
		return "", err
	}

	return selection, nil
}

// NewPlayground discards the open pen and starts an empty playground.
func (a *App) NewPlayground() error {
	return a.loadDirectory("")
}

// ToggleFullscreen switches the window in and out of fullscreen.
func (a *App) ToggleFullscreen() {
	if runtime.WindowIsFullscreen(a.ctx) {
		runtime.WindowUnfullscreen(a.ctx)
		return
	}
	runtime.WindowFullscreen(a.ctx)
}

// loadDirectory starts a playground server. With a pen directory, saves are
// written back into the pen files and external edits reload the page.
func (a *App) loadDirectory(dir string) error {
	var (
		absDir string
		err    error
	)
	cfg := config.DefaultConfig()

	if dir != "" {
		absDir, err = filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
		cfg, err = config.LoadFromDir(absDir)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		// The pen files are the desktop app's storage.
		cfg.Storage = config.StorageConfig{Driver: store.DriverDir, Path: absDir, Key: cfg.Storage.GetKey()}
		cfg.Features.HotReload = true
	}
	cfg.Server.Host = "127.0.0.1"
	cfg.API = nil

	// Stop existing server if running
	a.stopServer()

	st, err := store.Open(a.ctx, cfg.Storage.Options())
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	srv, err := server.New(cfg, st, absDir)
	if err != nil {
		st.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	if cfg.Features.HotReload {
		if err := srv.EnableWatch(false); err != nil {
			srv.Close()
			st.Close()
			return fmt.Errorf("failed to enable watch mode: %w", err)
		}
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		srv.Close()
		st.Close()
		return fmt.Errorf("failed to find free port: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	httpServer := &http.Server{Handler: srv}
	go func() {
		if err := httpServer.Serve(listener); err != http.ErrServerClosed {
			fmt.Printf("HTTP server error: %v\n", err)
		}
	}()

	// Store references
	a.mu.Lock()
	a.server = srv
	a.store = st
	a.httpServer = httpServer
	a.serverPort = port
	a.currentDir = absDir
	a.mu.Unlock()

	title := "tinkerpen"
	if absDir != "" {
		title = fmt.Sprintf("tinkerpen - %s", filepath.Base(absDir))
	}
	runtime.WindowSetTitle(a.ctx, title)
	runtime.EventsEmit(a.ctx, "navigate", a.GetServerURL())

	return nil
}

// GetCurrentDirectory returns the currently loaded pen directory.
func (a *App) GetCurrentDirectory() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentDir
}

// GetServerURL returns the URL of the running server, or empty string if not running.
func (a *App) GetServerURL() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.serverPort == 0 {
		return ""
	}
	return fmt.Sprintf("http://127.0.0.1:%d/", a.serverPort)
}

// GetHandler returns the asset server handler. The webview's asset origin
// cannot carry the playground WebSocket, so it forwards the window to the
// local server.
func (a *App) GetHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = launchPage.Execute(w, a.GetServerURL())
	})
}

var launchPage = template.Must(template.New("launch").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8"/>
    <title>tinkerpen</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               background: #1b2636; color: #94a3b8; display: flex; align-items: center;
               justify-content: center; min-height: 100vh; margin: 0; }
    </style>
</head>
<body>
    <p id="status">Starting playground...</p>
    <script>
        function navigate(url) {
            if (url) { window.location.replace(url); }
        }
        navigate({{.}});
        if (window.runtime) {
            window.runtime.EventsOn("navigate", navigate);
        }
        setTimeout(async function() {
            if (window.go && window.go.main) {
                navigate(await window.go.main.App.GetServerURL());
            }
        }, 500);
    </script>
</body>
</html>
`))
