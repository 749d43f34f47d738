package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "dynamate.yaml"
	envPrefix      = "DYNAMATE"
	memoryDB       = ":memory:"
)

// Config holds the settings read from dynamate.yaml, overlaid with
// DYNAMATE_* environment variables and then command-line flags.
type Config struct {
	EndpointURL string `yaml:"endpoint_url" mapstructure:"endpoint_url"`
	Region      string `yaml:"region" mapstructure:"region"`
	Profile     string `yaml:"profile" mapstructure:"profile"`
	Table       string `yaml:"table" mapstructure:"table"`
	PageSize    int    `yaml:"page_size" mapstructure:"page_size"`
	Output      string `yaml:"output" mapstructure:"output"`
	LogLevel    string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat   string `yaml:"log_format" mapstructure:"log_format"`

	// LocalDB is a badger directory, or :memory:. Setting it or Schemas
	// runs against the local store instead of DynamoDB.
	LocalDB string `yaml:"local_db" mapstructure:"local_db"`
	// Schemas is a glob of table schema files created in the local store.
	Schemas string `yaml:"schemas" mapstructure:"schemas"`

	Listen   string `yaml:"listen" mapstructure:"listen"`
	Segments int    `yaml:"segments" mapstructure:"segments"`
}

func defaultConfig() Config {
	return Config{
		PageSize:  25,
		Output:    "table",
		LogFormat: "text",
		Listen:    ":3070",
		Segments:  1,
	}
}

// Local reports whether commands run against the local store.
func (c Config) Local() bool {
	return c.LocalDB != "" || c.Schemas != ""
}

func (c Config) validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.Segments <= 0 {
		return fmt.Errorf("segments must be positive, got %d", c.Segments)
	}
	return nil
}

// LoadConfig reads path, or the nearest dynamate.yaml when path is empty,
// and applies the environment overlay. A missing file is not an error
// unless it was named explicitly.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg, err := applyEnv(cfg)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays DYNAMATE_<KEY> variables, DYNAMATE_PAGE_SIZE for
// page_size and so on.
func applyEnv(cfg Config) (Config, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return Config{}, err
	}
	var fields map[string]any
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	for key, value := range fields {
		v.SetDefault(key, value)
	}

	var out Config
	if err := v.Unmarshal(&out); err != nil {
		return Config{}, fmt.Errorf("apply environment: %w", err)
	}
	return out, nil
}

// findConfigFile searches for dynamate.yaml walking up from the current
// directory.
func findConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, configFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
