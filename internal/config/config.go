package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileNames are the project config files looked up at the project root, in order.
var FileNames = []string{".wsrun.yml", ".wsrun.yaml", ".wsrun.toml"}

// Config holds wsrun configuration loaded from the project config file and
// the environment. CLI flags take precedence over every field.
type Config struct {
	LogLevel  string `yaml:"log_level" toml:"log_level"`   // debug, info, warn, error
	LogFormat string `yaml:"log_format" toml:"log_format"` // text, json

	Manifest string `yaml:"manifest" toml:"manifest"` // Manifest file name (default "package.json")
	Shell    string `yaml:"shell" toml:"shell"`       // Shell used to run manifest scripts

	Jobs       int    `yaml:"jobs" toml:"jobs"` // Parallel job count; 0 derives it from the CPU count
	Interlaced bool   `yaml:"interlaced" toml:"interlaced"`
	Verbose    bool   `yaml:"verbose" toml:"verbose"`
	Color      string `yaml:"color" toml:"color"` // auto, always, never

	History History `yaml:"history" toml:"history"`
}

// History configures the run history database.
type History struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"` // Relative paths are resolved against the project root
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		LogLevel:  "warn",
		LogFormat: "text",
		Manifest:  "package.json",
		Shell:     "/bin/sh",
		Color:     "auto",
		History: History{
			Path: filepath.Join(".wsrun", "history.db"),
		},
	}
}

// Find returns the path of the first config file present in dir.
func Find(dir string) (string, bool, error) {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, true, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return "", false, nil
}

// Load reads the project config in root (if any), applies environment
// overrides, and validates the result. The returned path is empty when no
// config file exists.
func Load(root string, getenv func(string) string) (Config, string, error) {
	cfg := Default()

	path, exists, err := Find(root)
	if err != nil {
		return cfg, "", err
	}
	if exists {
		if err := cfg.decodeFile(path); err != nil {
			return cfg, "", err
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, path, err
	}

	cfg.normalize(root)

	if err := cfg.Validate(); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch filepath.Ext(path) {
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from WSRUN_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("WSRUN_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("WSRUN_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := getenv("WSRUN_COLOR"); v != "" {
		c.Color = v
	}
	if v := getenv("WSRUN_JOBS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WSRUN_JOBS: %w", err)
		}
		c.Jobs = n
	}
	if v := getenv("WSRUN_HISTORY"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WSRUN_HISTORY: %w", err)
		}
		c.History.Enabled = enabled
	}
	return nil
}

func (c *Config) normalize(root string) {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.Color = strings.ToLower(strings.TrimSpace(c.Color))
	if c.Manifest == "" {
		c.Manifest = "package.json"
	}
	if c.History.Path != "" && !filepath.IsAbs(c.History.Path) && c.History.Path != ":memory:" {
		c.History.Path = filepath.Join(root, c.History.Path)
	}
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("color must be one of auto, always, never (got %q)", c.Color)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json (got %q)", c.LogFormat)
	}
	if c.Jobs < 0 {
		return errors.New("jobs must not be negative")
	}
	if c.Jobs == 1 {
		return errors.New("jobs must be at least 2 when set; use sequential mode for a single job")
	}
	if strings.TrimSpace(c.Shell) == "" {
		return errors.New("shell must be set")
	}
	if c.History.Enabled && c.History.Path == "" {
		return errors.New("history.path must be set when history is enabled")
	}
	return nil
}
