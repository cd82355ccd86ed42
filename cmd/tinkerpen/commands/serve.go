package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/livetemplate/tinkerpen/internal/config"
	"github.com/livetemplate/tinkerpen/internal/server"
	"github.com/livetemplate/tinkerpen/internal/store"
)

// ServeCommand implements the serve command.
func ServeCommand(args []string) error {
	// Parse arguments
	dir := ""
	var configPath string
	var port string
	var host string
	var driver string
	var watch *bool
	var debug bool
	var readOnly bool

	// Parse flags
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--watch" || arg == "-w" {
			watchVal := true
			watch = &watchVal
		} else if arg == "--port" || arg == "-p" {
			if i+1 < len(args) {
				port = args[i+1]
				i++
			}
		} else if arg == "--host" {
			if i+1 < len(args) {
				host = args[i+1]
				i++
			}
		} else if arg == "--config" || arg == "-c" {
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		} else if arg == "--storage" || arg == "-s" {
			if i+1 < len(args) {
				driver = args[i+1]
				i++
			}
		} else if arg == "--debug" {
			debug = true
		} else if arg == "--read-only" {
			readOnly = true
		} else if !strings.HasPrefix(arg, "-") {
			// Positional argument (pen directory)
			dir = arg
		} else {
			return fmt.Errorf("unknown flag: %s", arg)
		}
	}

	config.SetReadOnly(readOnly)

	var absDir string
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
		if absDir, err = filepath.Abs(dir); err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
	}

	cfg, err := loadConfig(configPath, absDir)
	if err != nil {
		return err
	}

	// CLI flags override config
	if port != "" {
		portInt, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port: %s", port)
		}
		cfg.Server.Port = portInt
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if driver != "" {
		cfg.Storage.Driver = driver
	}
	if watch != nil {
		cfg.Features.HotReload = *watch
	}
	if debug {
		cfg.Server.Debug = true
	}
	if cfg.Storage.Driver == store.DriverDir && cfg.Storage.Path == "" {
		cfg.Storage.Path = absDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	st, err := store.Open(ctx, cfg.Storage.Options())
	cancel()
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}
	defer st.Close()

	srv, err := server.New(cfg, st, absDir)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	fmt.Printf("🖊  %s\n\n", cfg.Title)
	if absDir != "" {
		fmt.Printf("Pen: %s\n", absDir)
	}
	fmt.Printf("Storage: %s\n", storageName(cfg))

	if cfg.Features.HotReload {
		if absDir == "" {
			return fmt.Errorf("--watch needs a pen directory")
		}
		if err := srv.EnableWatch(cfg.Server.Debug); err != nil {
			return fmt.Errorf("failed to enable watch mode: %w", err)
		}
		fmt.Printf("👀 Watch mode enabled - edits to %s reload every open page\n", absDir)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("\n🌐 Server running at http://%s\n", addr)
	if config.IsReadOnly() {
		fmt.Printf("🔒 Read-only: saving is disabled\n")
	}
	if cfg.IsAPIEnabled() {
		fmt.Printf("🔌 REST API enabled at /api\n")
	}
	fmt.Printf("Press Ctrl+C to stop\n\n")

	httpServer := &http.Server{Addr: addr, Handler: srv}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-sig:
		fmt.Printf("\nShutting down...\n")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

// loadConfig reads the explicit config file, or the one in dir.
func loadConfig(configPath, dir string) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Printf("📝 Using config: %s\n", configPath)
		return cfg, nil
	}
	if dir == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func storageName(cfg *config.Config) string {
	switch cfg.Storage.Driver {
	case "", store.DriverMemory:
		return "memory (saves are lost on restart)"
	case store.DriverPostgres:
		return "postgres"
	case store.DriverRedis:
		return "redis " + cfg.Storage.Addr
	default:
		return cfg.Storage.Driver + " " + cfg.Storage.Path
	}
}

func init() {
	log.SetFlags(0) // Remove timestamp from logs
}
