package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/livetemplate/tinkerpen/internal/store"
)

// FileName is the config file looked up in a pen directory.
const FileName = "tinkerpen.yaml"

// Config represents the tinkerpen configuration
type Config struct {
	Title    string         `yaml:"title"`
	Server   ServerConfig   `yaml:"server"`
	Editor   EditorConfig   `yaml:"editor"`
	Notices  NoticesConfig  `yaml:"notices"`
	Welcome  WelcomeConfig  `yaml:"welcome"`
	Storage  StorageConfig  `yaml:"storage"`
	Share    ShareConfig    `yaml:"share"`
	Sessions SessionsConfig `yaml:"sessions"`
	API      *APIConfig     `yaml:"api,omitempty"`
	Features FeaturesConfig `yaml:"features"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port  int    `yaml:"port"`
	Host  string `yaml:"host"`
	Debug bool   `yaml:"debug"`
}

// EditorConfig holds editor behavior and appearance
type EditorConfig struct {
	Debounce    string `yaml:"debounce"`      // Quiet period before re-rendering (default: 300ms)
	FontSize    int    `yaml:"font_size"`     // Initial font size in px (default: 14)
	FontSizeMin int    `yaml:"font_size_min"` // Slider minimum (default: 10)
	FontSizeMax int    `yaml:"font_size_max"` // Slider maximum (default: 32)
}

// NoticesConfig holds notification settings
type NoticesConfig struct {
	Duration string `yaml:"duration"` // Auto-dismiss delay (default: 2s)
}

// WelcomeConfig holds the welcome overlay settings
type WelcomeConfig struct {
	Duration string `yaml:"duration"`           // Auto-dismiss delay (default: 3s)
	File     string `yaml:"file,omitempty"`     // Markdown file replacing the built-in text
	Disabled bool   `yaml:"disabled,omitempty"` // Hide the overlay entirely
}

// StorageConfig selects where saved snapshots live
type StorageConfig struct {
	Driver   string `yaml:"driver"`             // memory, file, dir, sqlite, postgres, redis (default: memory)
	Key      string `yaml:"key"`                // Storage key (default: savedCode)
	Path     string `yaml:"path,omitempty"`     // For file/dir/sqlite
	DSN      string `yaml:"dsn,omitempty"`      // For postgres (env vars expanded)
	Addr     string `yaml:"addr,omitempty"`     // For redis
	Password string `yaml:"password,omitempty"` // For redis (env vars expanded)
	DB       int    `yaml:"db,omitempty"`       // For redis
	Prefix   string `yaml:"prefix,omitempty"`   // For redis key prefix
}

// ShareConfig holds share link settings
type ShareConfig struct {
	BaseURL string `yaml:"base_url,omitempty"` // Public URL share links point at (default: request origin)
}

// SessionsConfig holds live session settings
type SessionsConfig struct {
	TTL string `yaml:"ttl"` // Idle time before a session is dropped (default: 1h)
}

// FeaturesConfig holds feature flags
type FeaturesConfig struct {
	HotReload bool `yaml:"hot_reload"` // Reload sessions when pen files change on disk
}

// APIConfig holds REST API configuration
type APIConfig struct {
	Enabled   bool             `yaml:"enabled"` // Enable REST API endpoints (default: true)
	CORS      *CORSConfig      `yaml:"cors,omitempty"`
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// CORSConfig holds CORS configuration for the API
type CORSConfig struct {
	Origins []string `yaml:"origins,omitempty"` // Allowed origins (e.g., ["http://localhost:3000", "*"])
}

// RateLimitConfig holds rate limiting configuration for the API
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"` // Rate limit in requests per second (default: 10)
	Burst             int     `yaml:"burst,omitempty"`               // Burst size (default: 20)
	MaxTrackedIPs     int     `yaml:"max_tracked_ips,omitempty"`     // Maximum IPs tracked before LRU eviction (default: 10000)
}

// parseDuration returns d parsed, or def when empty or invalid.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetDebounce returns the render debounce window (default: 300ms)
func (c EditorConfig) GetDebounce() time.Duration {
	return parseDuration(c.Debounce, 300*time.Millisecond)
}

// GetFontSizeRange returns the slider bounds (default: 10-32)
func (c EditorConfig) GetFontSizeRange() (lo, hi int) {
	lo, hi = c.FontSizeMin, c.FontSizeMax
	if lo <= 0 {
		lo = 10
	}
	if hi <= 0 {
		hi = 32
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// GetFontSize returns the initial font size clamped to the slider range (default: 14)
func (c EditorConfig) GetFontSize() int {
	size := c.FontSize
	if size <= 0 {
		size = 14
	}
	lo, hi := c.GetFontSizeRange()
	if size < lo {
		return lo
	}
	if size > hi {
		return hi
	}
	return size
}

// GetDuration returns the notice auto-dismiss delay (default: 2s)
func (c NoticesConfig) GetDuration() time.Duration {
	return parseDuration(c.Duration, 2*time.Second)
}

// GetDuration returns the welcome overlay delay (default: 3s)
func (c WelcomeConfig) GetDuration() time.Duration {
	return parseDuration(c.Duration, 3*time.Second)
}

// GetTTL returns the idle session lifetime (default: 1h)
func (c SessionsConfig) GetTTL() time.Duration {
	return parseDuration(c.TTL, time.Hour)
}

// GetDSN returns the postgres DSN with environment variable expansion
func (c StorageConfig) GetDSN() string {
	return os.ExpandEnv(c.DSN)
}

// GetPassword returns the redis password with environment variable expansion
func (c StorageConfig) GetPassword() string {
	return os.ExpandEnv(c.Password)
}

// GetKey returns the storage key (default: savedCode)
func (c StorageConfig) GetKey() string {
	if c.Key == "" {
		return "savedCode"
	}
	return c.Key
}

// Options converts the storage section into store options.
func (c StorageConfig) Options() store.Options {
	return store.Options{
		Driver:   c.Driver,
		Path:     c.Path,
		DSN:      c.GetDSN(),
		Addr:     os.ExpandEnv(c.Addr),
		Password: c.GetPassword(),
		DB:       c.DB,
		Prefix:   c.Prefix,
	}
}

// GetCORSOrigins returns the configured CORS origins, or nil if not configured
func (c *APIConfig) GetCORSOrigins() []string {
	if c == nil || c.CORS == nil {
		return nil
	}
	return c.CORS.Origins
}

// GetRateLimitRPS returns the rate limit in requests per second (default: 10)
func (c *APIConfig) GetRateLimitRPS() float64 {
	if c == nil || c.RateLimit == nil || c.RateLimit.RequestsPerSecond <= 0 {
		return 10
	}
	return c.RateLimit.RequestsPerSecond
}

// GetRateLimitBurst returns the burst size (default: 20)
func (c *APIConfig) GetRateLimitBurst() int {
	if c == nil || c.RateLimit == nil || c.RateLimit.Burst <= 0 {
		return 20
	}
	return c.RateLimit.Burst
}

// GetMaxTrackedIPs returns the maximum number of tracked client IPs (default: 10000)
func (c *APIConfig) GetMaxTrackedIPs() int {
	if c == nil || c.RateLimit == nil || c.RateLimit.MaxTrackedIPs <= 0 {
		return 10000
	}
	return c.RateLimit.MaxTrackedIPs
}

// IsAPIEnabled returns whether the API is enabled
func (c *Config) IsAPIEnabled() bool {
	return c.API != nil && c.API.Enabled
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case "", store.DriverMemory, store.DriverFile, store.DriverDir, store.DriverSQLite:
	case store.DriverPostgres:
		if c.Storage.GetDSN() == "" {
			return fmt.Errorf("storage: postgres driver requires dsn")
		}
	case store.DriverRedis:
		if c.Storage.Addr == "" {
			return fmt.Errorf("storage: redis driver requires addr")
		}
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	if c.Editor.FontSizeMin > 0 && c.Editor.FontSizeMax > 0 && c.Editor.FontSizeMin > c.Editor.FontSizeMax {
		return fmt.Errorf("editor: font_size_min %d exceeds font_size_max %d", c.Editor.FontSizeMin, c.Editor.FontSizeMax)
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Title: "tinkerpen",
		Server: ServerConfig{
			Port:  8080,
			Host:  "localhost",
			Debug: false,
		},
		Editor: EditorConfig{
			Debounce:    "300ms",
			FontSize:    14,
			FontSizeMin: 10,
			FontSizeMax: 32,
		},
		Notices: NoticesConfig{
			Duration: "2s",
		},
		Welcome: WelcomeConfig{
			Duration: "3s",
		},
		Storage: StorageConfig{
			Driver: store.DriverMemory,
			Key:    "savedCode",
			Prefix: "tinkerpen:",
		},
		Sessions: SessionsConfig{
			TTL: "1h",
		},
		API: &APIConfig{
			Enabled: true,
		},
	}
}

// Load loads configuration from a YAML file
// If the file doesn't exist, returns the default configuration
func Load(configPath string) (*Config, error) {
	// If no config path provided, use default
	if configPath == "" {
		return DefaultConfig(), nil
	}

	// Check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	config := DefaultConfig() // Start with defaults
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Relative paths are relative to the config file
	base := filepath.Dir(configPath)
	if config.Welcome.File != "" && !filepath.IsAbs(config.Welcome.File) {
		config.Welcome.File = filepath.Join(base, config.Welcome.File)
	}
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(base, config.Storage.Path)
	}

	return config, nil
}

// LoadFromDir looks for tinkerpen.yaml, then .tinkerpen.yaml, in the given directory
// If none is found, returns the default configuration
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Hidden variant
	return Load(filepath.Join(dir, "."+FileName))
}

// Save writes the configuration to a YAML file
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
