// Package config loads StrikeLog settings from YAML, applies defaults and
// environment overrides, and validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type Config struct {
	DataDir   string `yaml:"data_dir"`
	ExportDir string `yaml:"export_dir"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		File   string `yaml:"file"` // empty means <data_dir>/strikelog.log
	} `yaml:"log"`

	// Location is the fallback position used when no spot is selected.
	Location struct {
		Name string   `yaml:"name" default:"Home"`
		Lat  *float64 `yaml:"lat" validate:"omitempty,gte=-90,lte=90"`
		Lon  *float64 `yaml:"lon" validate:"omitempty,gte=-180,lte=180"`
	} `yaml:"location"`

	Weather struct {
		ForecastURL string        `yaml:"forecast_url" default:"https://api.open-meteo.com/v1/forecast" validate:"url"`
		MarineURL   string        `yaml:"marine_url" default:"https://marine-api.open-meteo.com/v1/marine" validate:"url"`
		Timeout     time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	} `yaml:"weather"`

	Geocoding struct {
		URL       string `yaml:"url" default:"https://nominatim.openstreetmap.org" validate:"url"`
		UserAgent string `yaml:"user_agent" default:"StrikeLog/1.0" validate:"required"`
	} `yaml:"geocoding"`
}

// HasLocation reports whether a home position is configured.
func (c *Config) HasLocation() bool {
	return c.Location.Lat != nil && c.Location.Lon != nil
}

// ExportPath is the configured export directory, or exports/ in the data
// directory.
func (c *Config) ExportPath() string {
	if c.ExportDir != "" {
		return c.ExportDir
	}
	return filepath.Join(c.DataDir, "exports")
}

// LogPath is the configured log file, or strikelog.log in the data directory.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.DataDir, "strikelog.log")
}

// DefaultPath returns ~/.config/strikelog/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(dir, "strikelog", "config.yaml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".local", "share", "strikelog")
}

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. A missing file is not an
// error; the defaults are used instead.
func Load(path string) (*Config, error) {
	var c Config

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.finish(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("STRIKELOG_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("STRIKELOG_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("STRIKELOG_LAT"); v != "" {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse STRIKELOG_LAT: %w", err)
		}
		c.Location.Lat = &lat
	}
	if v := os.Getenv("STRIKELOG_LON"); v != "" {
		lon, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse STRIKELOG_LON: %w", err)
		}
		c.Location.Lon = &lon
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) finish() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("apply config defaults: %w", err)
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if (c.Location.Lat == nil) != (c.Location.Lon == nil) {
		return fmt.Errorf("location.lat and location.lon must be set together")
	}
	return nil
}

// EnsureDirs creates the data and export directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.ExportPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}
