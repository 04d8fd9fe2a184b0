// Package config handles loading and resolving tally configuration.
// Resolution order (last non-empty value wins):
//  1. built-in defaults
//  2. config.json in the current working directory
//  3. environment variables (TALLY_BASE_URL, TALLY_DB_PATH, SUMUP_API_KEY, PORT),
//     with a .env file in the working directory filling in unset ones
//  4. CLI flag --base-url
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultConfigFile  = "config.json"
	DotEnvFile         = ".env"
	DefaultFormat      = "terminal"
	DefaultTimeout     = 30 * time.Second
	DefaultRate        = 10.0
	DefaultBaseURL     = "http://localhost:5000/"
	DefaultUpstreamURL = "https://api.sumup.com/v0.1/"
	DefaultListenAddr  = ":5000"
	EnvBaseURL         = "TALLY_BASE_URL"
	EnvDBPath          = "TALLY_DB_PATH"
	EnvAPIKey          = "SUMUP_API_KEY"
	EnvPort            = "PORT"
)

// File is the on-disk representation of config.json.
type File struct {
	BaseURL        string   `json:"base_url"`
	DBPath         string   `json:"db_path"`
	DefaultFormat  string   `json:"default_format"`
	Timeout        string   `json:"timeout"`
	Rate           float64  `json:"rate"`
	APIKey         string   `json:"api_key"`
	UpstreamURL    string   `json:"upstream_url"`
	ListenAddr     string   `json:"listen_addr"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	BaseURL        string // dashboard backend consumed by the aggregate client
	DBPath         string
	Format         string
	Timeout        time.Duration
	Rate           float64
	APIKey         string // payment-processor key, needed by `serve` only
	UpstreamURL    string
	ListenAddr     string
	AllowedOrigins []string
	ConfigPath     string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet     bool
	Debug     bool
	Ephemeral bool
}

// Load resolves configuration from all sources.
// flagBaseURL is the value of --base-url (empty string if not set).
func Load(flagBaseURL string) (*Config, error) {
	cfg := &Config{
		BaseURL:     DefaultBaseURL,
		Format:      DefaultFormat,
		Timeout:     DefaultTimeout,
		Rate:        DefaultRate,
		UpstreamURL: DefaultUpstreamURL,
		ListenAddr:  DefaultListenAddr,
	}

	// Layer 1: config.json (lowest priority)
	if f, path, err := loadFile(); err == nil {
		applyFile(cfg, f, path)
	}

	// Layer 2: environment. Variables already set win over .env entries.
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", DotEnvFile, err)
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		cfg.ListenAddr = ":" + v
	}

	// Layer 3: CLI flag (highest priority)
	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".tally", "tally.db")
		}
	}

	return cfg, nil
}

// ValidateUpstream returns an error if the payment-processor key needed by
// the analytics server is missing.
func (c *Config) ValidateUpstream() error {
	if c.APIKey == "" {
		return errors.New(
			"payment processor API key not found.\n\n" +
				"Set it one of these ways:\n" +
				"  1. Environment:     export SUMUP_API_KEY=YOUR_KEY\n" +
				"  2. config.json:     {\"api_key\": \"YOUR_KEY\"}",
		)
	}
	return nil
}

// RedactedAPIKey returns the API key with most characters replaced by asterisks.
// Safe for logging and display.
func (c *Config) RedactedAPIKey() string {
	if len(c.APIKey) <= 4 {
		return "****"
	}
	return c.APIKey[:2] + "****" + c.APIKey[len(c.APIKey)-2:]
}

// loadFile attempts to read config.json from the current working directory.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("config.json not found at %s", path)
		}
		return nil, "", fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, path, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.APIKey != "" {
		cfg.APIKey = f.APIKey
	}
	if f.UpstreamURL != "" {
		cfg.UpstreamURL = f.UpstreamURL
	}
	if f.ListenAddr != "" {
		cfg.ListenAddr = f.ListenAddr
	}
	if len(f.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = f.AllowedOrigins
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `tally config init`.
func Template() File {
	return File{
		BaseURL:       DefaultBaseURL,
		DefaultFormat: DefaultFormat,
		Timeout:       "30s",
		Rate:          DefaultRate,
		UpstreamURL:   DefaultUpstreamURL,
		ListenAddr:    DefaultListenAddr,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
