// ABOUTME: Configuration management for circle with YAML config loading.
// ABOUTME: Handles API, realtime, feed, and session settings plus .env overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAPIURL is the Circle REST endpoint used when none is configured.
const DefaultAPIURL = "https://circle-app-be-production.up.railway.app"

const (
	TransportWebsocket = "websocket"
	TransportNATS      = "nats"
)

const (
	DefaultPageSize = 5
	DefaultDebounce = 500 * time.Millisecond
)

// Config stores circle configuration loaded from ~/.config/circle/config.yaml.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Feed     FeedConfig     `yaml:"feed"`
	Search   SearchConfig   `yaml:"search"`
	Session  SessionConfig  `yaml:"session"`
}

// APIConfig holds the REST collaborator settings.
type APIConfig struct {
	URL string `yaml:"url"`
}

// RealtimeConfig selects and addresses the realtime transport.
type RealtimeConfig struct {
	Transport string `yaml:"transport"`
	URL       string `yaml:"url"`
	NATSURL   string `yaml:"nats_url"`
}

// FeedConfig controls pagination.
type FeedConfig struct {
	PageSize int `yaml:"page_size"`
}

// SearchConfig controls the user search debounce window.
type SearchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// SessionConfig holds the credential slot location.
type SessionConfig struct {
	TokenPath string `yaml:"token_path"`
}

// APIURL returns the configured REST base URL without a trailing slash.
func (c *Config) APIURL() string {
	if c.API.URL == "" {
		return DefaultAPIURL
	}
	return strings.TrimRight(c.API.URL, "/")
}

// RealtimeTransport returns the transport name, defaulting to websocket.
func (c *Config) RealtimeTransport() string {
	if c.Realtime.Transport == "" {
		return TransportWebsocket
	}
	return c.Realtime.Transport
}

// RealtimeURL returns the websocket endpoint, derived from the API URL when unset.
func (c *Config) RealtimeURL() string {
	if c.Realtime.URL != "" {
		return c.Realtime.URL
	}
	u := c.APIURL()
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// PageSize returns the feed page size.
func (c *Config) PageSize() int {
	if c.Feed.PageSize <= 0 {
		return DefaultPageSize
	}
	return c.Feed.PageSize
}

// SearchDebounce returns the search debounce window.
func (c *Config) SearchDebounce() time.Duration {
	if c.Search.Debounce <= 0 {
		return DefaultDebounce
	}
	return c.Search.Debounce
}

// GetTokenPath returns the credential file path, defaulting under the data dir.
func (c *Config) GetTokenPath() (string, error) {
	if c.Session.TokenPath != "" {
		return ExpandPath(c.Session.TokenPath)
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "token"), nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.RealtimeTransport() {
	case TransportWebsocket:
	case TransportNATS:
		if c.Realtime.NATSURL == "" {
			return fmt.Errorf("realtime.nats_url is required for the nats transport")
		}
	default:
		return fmt.Errorf("unknown realtime transport %q", c.Realtime.Transport)
	}
	return nil
}

// DataDir returns the default circle data directory.
func DataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "circle"), nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "circle", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Load reads config from disk and applies environment overrides.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	// A missing .env is the common case.
	_ = godotenv.Load()

	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"CIRCLE_API_URL":            &c.API.URL,
		"CIRCLE_REALTIME_URL":       &c.Realtime.URL,
		"CIRCLE_REALTIME_TRANSPORT": &c.Realtime.Transport,
		"CIRCLE_NATS_URL":           &c.Realtime.NATSURL,
		"CIRCLE_TOKEN_PATH":         &c.Session.TokenPath,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}
}

// Save writes config to disk.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
