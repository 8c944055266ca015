// Package config holds the service configuration, loaded from an optional
// YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/philipparndt/goply/internal/reconstruct"
	"github.com/philipparndt/goply/pkg/export"
	"github.com/philipparndt/goply/pkg/mesh"
)

// Config is the full service configuration
type Config struct {
	Server  Server  `yaml:"server"`
	Convert Convert `yaml:"convert"`
	Logging Logging `yaml:"logging"`
}

// Server configures the HTTP conversion service
type Server struct {
	Address        string `yaml:"address"`
	UploadDir      string `yaml:"uploadDir"`
	OutputDir      string `yaml:"outputDir"`
	MaxUploadBytes int64  `yaml:"maxUploadBytes"`
}

// Convert configures pipeline defaults
type Convert struct {
	Smoothing             string   `yaml:"smoothing"`
	Formats               []string `yaml:"formats"`
	OutwardRatioThreshold float64  `yaml:"outwardRatioThreshold"`
	DensityStdDevCutoff   float64  `yaml:"densityStdDevCutoff"`
}

// Logging configures the logger
type Logging struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration
func Default() Config {
	formats := make([]string, len(export.Formats))
	for i, f := range export.Formats {
		formats[i] = string(f)
	}
	return Config{
		Server: Server{
			Address:        ":8080",
			UploadDir:      "uploads",
			OutputDir:      "outputs",
			MaxUploadBytes: 256 << 20,
		},
		Convert: Convert{
			Smoothing:             string(mesh.DefaultSmoothingLevel),
			Formats:               formats,
			OutwardRatioThreshold: mesh.DefaultOutwardRatioThreshold,
			DensityStdDevCutoff:   reconstruct.DefaultDensityStdDevCutoff,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load reads the configuration file at path, merged over the defaults.
// An empty path returns the defaults. Environment variables override
// both.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString("GOPLY_ADDRESS", &c.Server.Address)
	setString("GOPLY_UPLOAD_DIR", &c.Server.UploadDir)
	setString("GOPLY_OUTPUT_DIR", &c.Server.OutputDir)
	setString("GOPLY_SMOOTHING", &c.Convert.Smoothing)
	setString("GOPLY_LOG_LEVEL", &c.Logging.Level)

	if v, ok := os.LookupEnv("GOPLY_MAX_UPLOAD_BYTES"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Server.MaxUploadBytes = n
		}
	}
}

func (c *Config) validate() error {
	if _, err := mesh.ParseSmoothingLevel(c.Convert.Smoothing); err != nil {
		return fmt.Errorf("convert.smoothing: %w", err)
	}
	for _, f := range c.Convert.Formats {
		if _, err := export.ParseFormat(f); err != nil {
			return fmt.Errorf("convert.formats: %w", err)
		}
	}
	if c.Convert.OutwardRatioThreshold < 0 || c.Convert.OutwardRatioThreshold > 1 {
		return fmt.Errorf("convert.outwardRatioThreshold %v out of range [0,1]", c.Convert.OutwardRatioThreshold)
	}
	if c.Convert.DensityStdDevCutoff < 0 {
		return fmt.Errorf("convert.densityStdDevCutoff must not be negative")
	}
	return nil
}

// SmoothingLevel returns the configured default smoothing level
func (c *Config) SmoothingLevel() mesh.SmoothingLevel {
	level, err := mesh.ParseSmoothingLevel(c.Convert.Smoothing)
	if err != nil {
		return mesh.DefaultSmoothingLevel
	}
	return level
}

// ExportFormats returns the configured default output formats
func (c *Config) ExportFormats() []export.Format {
	formats := make([]export.Format, 0, len(c.Convert.Formats))
	for _, f := range c.Convert.Formats {
		if parsed, err := export.ParseFormat(f); err == nil {
			formats = append(formats, parsed)
		}
	}
	return formats
}
