// Package config loads prview settings from defaults, a YAML file, the
// environment and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no --config path is given and it exists.
const DefaultFile = "prview.yaml"

// ErrNoToken is returned by RequireToken when no GitHub token is configured.
var ErrNoToken = errors.New("GITHUB_TOKEN is not set; generate a personal access token and export it as GITHUB_TOKEN")

// Config holds every tunable of a prview run.
type Config struct {
	OutputDir      string        `yaml:"output_dir"`
	APIBaseURL     string        `yaml:"api_base_url"`
	Token          string        `yaml:"token"`
	State          string        `yaml:"state"`
	PRFilesPerPage int           `yaml:"pr_files_per_page"`
	MaxFileSize    int64         `yaml:"max_file_size"`
	Timeout        time.Duration `yaml:"timeout"`
	Timezone       string        `yaml:"timezone"`
	Style          string        `yaml:"style"`
	LogLevel       string        `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputDir:      "gh_local_viewer_output",
		APIBaseURL:     "https://api.github.com/",
		State:          "open",
		PRFilesPerPage: 100,
		MaxFileSize:    5 * 1024 * 1024,
		Timeout:        30 * time.Second,
		Timezone:       "Asia/Tokyo",
		Style:          "dracula",
		LogLevel:       "info",
	}
}

// Loader builds a Config. Getenv defaults to os.Getenv.
type Loader struct {
	EnvFile string
	Getenv  func(string) string
}

// NewLoader creates a loader that reads .env from the working directory.
func NewLoader() *Loader {
	return &Loader{EnvFile: ".env", Getenv: os.Getenv}
}

// Load returns defaults overlaid with the YAML file at path and the
// environment. An empty path falls back to DefaultFile when it exists.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := l.loadEnvFile(); err != nil {
		return nil, err
	}
	cfg.mergeEnv(l.getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) getenv(key string) string {
	if l.Getenv == nil {
		return os.Getenv(key)
	}
	return l.Getenv(key)
}

func (l *Loader) loadEnvFile() error {
	if l.EnvFile == "" {
		return nil
	}
	if err := godotenv.Load(l.EnvFile); err != nil {
		// A missing .env file is fine.
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", l.EnvFile, err)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	log.WithField("path", path).Debug("loaded config file")
	return nil
}

func (c *Config) mergeEnv(getenv func(string) string) {
	if v := getenv("GITHUB_TOKEN"); v != "" {
		c.Token = v
	} else if v := getenv("GH_TOKEN"); v != "" {
		c.Token = v
	}
	if v := getenv("PRVIEW_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := getenv("PRVIEW_API_BASE_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := getenv("PRVIEW_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration for values the tool cannot run with.
func (c *Config) Validate() error {
	switch c.State {
	case "open", "closed", "all":
	default:
		return fmt.Errorf("state %q: must be open, closed or all", c.State)
	}
	if c.PRFilesPerPage < 1 || c.PRFilesPerPage > 100 {
		return fmt.Errorf("pr_files_per_page %d: must be between 1 and 100", c.PRFilesPerPage)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// RequireToken returns ErrNoToken when the config has no GitHub token.
func (c *Config) RequireToken() error {
	if c.Token == "" {
		return ErrNoToken
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ApplyLogLevel configures the global logrus logger.
func (c *Config) ApplyLogLevel() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
