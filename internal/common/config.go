package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// ErrMissingAPIKey is returned by Validate when no EODHD API key is configured
var ErrMissingAPIKey = errors.New("EODHD_API_KEY is required: set it in the environment, a .env file or [eodhd] api_key")

// Config represents the application configuration
type Config struct {
	EODHD   EODHDConfig   `toml:"eodhd"`
	Server  ServerConfig  `toml:"server"`
	Cache   CacheConfig   `toml:"cache"`
	Logging LoggingConfig `toml:"logging"`
	Debug   bool          `toml:"debug"` // Forces debug log level
}

// EODHDConfig holds upstream API settings
type EODHDConfig struct {
	APIKey         string `toml:"api_key"`          // Never logged
	BaseURL        string `toml:"base_url"`         // Default: https://eodhd.com/api
	RequestTimeout string `toml:"request_timeout"`  // Per-attempt timeout, duration string (default: "30s")
	MaxRetries     int    `toml:"max_retries"`      // Retries after the first attempt (default: 3)
	RateLimitDelay string `toml:"rate_limit_delay"` // Minimum spacing between requests and retry base delay (default: "100ms")
}

// ServerConfig selects the MCP transport
type ServerConfig struct {
	Transport string `toml:"transport"` // "stdio" (default) or "http"
	HTTPAddr  string `toml:"http_addr"` // Listen address for the http transport
}

// CacheConfig controls the in-memory response cache
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	TTL     string `toml:"ttl"` // Duration string; "0" disables caching
}

// LoggingConfig controls log writers
type LoggingConfig struct {
	Level  string   `toml:"level"`  // debug, info, warn, error
	Output []string `toml:"output"` // "file", "stdout"/"console"
	File   string   `toml:"file"`   // Log file path; relative paths resolve against the executable directory
}

// Transport names
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		EODHD: EODHDConfig{
			BaseURL:        "https://eodhd.com/api",
			RequestTimeout: "30s",
			MaxRetries:     3,
			RateLimitDelay: "100ms",
		},
		Server: ServerConfig{
			Transport: TransportStdio,
			HTTPAddr:  "localhost:8085",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     "5m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"file"}, // stdout carries the protocol in stdio mode
			File:   "logs/eodhd-mcp.log",
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> TOML file -> .env -> environment.
// An empty path skips the file layer. A missing .env file is not an error.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// godotenv.Load never overrides variables already set in the process environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) error {
	// EODHD configuration
	if key := os.Getenv("EODHD_API_KEY"); key != "" {
		config.EODHD.APIKey = key
	}
	if baseURL := os.Getenv("EODHD_BASE_URL"); baseURL != "" {
		config.EODHD.BaseURL = baseURL
	}
	if timeout := os.Getenv("REQUEST_TIMEOUT"); timeout != "" {
		if _, err := parseSeconds(timeout); err != nil {
			return fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", timeout, err)
		}
		config.EODHD.RequestTimeout = timeout
	}
	if retries := os.Getenv("MAX_RETRIES"); retries != "" {
		n, err := strconv.Atoi(retries)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid MAX_RETRIES %q: must be a non-negative integer", retries)
		}
		config.EODHD.MaxRetries = n
	}
	if delay := os.Getenv("RATE_LIMIT_DELAY"); delay != "" {
		if _, err := parseSeconds(delay); err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_DELAY %q: %w", delay, err)
		}
		config.EODHD.RateLimitDelay = delay
	}
	if debug := os.Getenv("DEBUG"); debug != "" {
		config.Debug = strings.EqualFold(debug, "true") || debug == "1"
	}

	// Server configuration
	if transport := os.Getenv("EODHD_MCP_TRANSPORT"); transport != "" {
		config.Server.Transport = strings.ToLower(transport)
	}
	if addr := os.Getenv("EODHD_MCP_HTTP_ADDR"); addr != "" {
		config.Server.HTTPAddr = addr
	}

	// Cache configuration
	if ttl := os.Getenv("EODHD_MCP_CACHE_TTL"); ttl != "" {
		if _, err := parseSeconds(ttl); err != nil {
			return fmt.Errorf("invalid EODHD_MCP_CACHE_TTL %q: %w", ttl, err)
		}
		config.Cache.TTL = ttl
	}

	// Logging configuration
	if level := os.Getenv("EODHD_MCP_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("EODHD_MCP_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, part := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		config.Logging.Output = outputs
	}

	return nil
}

// Validate checks that the configuration can start the server
func (c *Config) Validate() error {
	if strings.TrimSpace(c.EODHD.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.EODHD.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.EODHD.MaxRetries)
	}
	for name, value := range map[string]string{
		"request_timeout":  c.EODHD.RequestTimeout,
		"rate_limit_delay": c.EODHD.RateLimitDelay,
		"cache ttl":        c.Cache.TTL,
	} {
		if _, err := parseSeconds(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}
	if c.RequestTimeout() <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("unsupported transport %q (expected %q or %q)", c.Server.Transport, TransportStdio, TransportHTTP)
	}
	return nil
}

// RequestTimeout returns the per-attempt timeout
func (c *Config) RequestTimeout() time.Duration {
	d, _ := parseSeconds(c.EODHD.RequestTimeout)
	return d
}

// RateLimitDelay returns the minimum spacing between requests
func (c *Config) RateLimitDelay() time.Duration {
	d, _ := parseSeconds(c.EODHD.RateLimitDelay)
	return d
}

// CacheTTL returns the response cache lifetime; zero means caching is off
func (c *Config) CacheTTL() time.Duration {
	if !c.Cache.Enabled {
		return 0
	}
	d, _ := parseSeconds(c.Cache.TTL)
	return d
}

// LogLevel returns the effective log level
func (c *Config) LogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.Logging.Level
}

// parseSeconds accepts a Go duration ("250ms", "30s") or a bare number of seconds ("0.1", "30").
func parseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("must not be negative")
		}
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("expected a duration or a number of seconds")
	}
	if secs < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return time.Duration(secs * float64(time.Second)), nil
}
