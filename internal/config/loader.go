// Package config loads the guard configuration from TOML or YAML files. It
// carries the per-channel rate limit profiles, the shell to spawn, user
// environment overrides and the bridge listen address.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"strings"

	"github.com/isseis/go-safe-pty-guard/internal/safefileio"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Error definitions for the config package
var (
	// ErrInvalidConfigPath is returned when the config file path is invalid
	ErrInvalidConfigPath = errors.New("invalid config file path")
	// ErrUnsupportedFormat is returned for files that are neither TOML nor YAML
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

// MaxFileSize caps config and override files.
const MaxFileSize = 1 << 20

// Loader handles loading and validating configurations
type Loader struct {
	readFile func(string) ([]byte, error)
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{readFile: readFile}
}

// LoadConfigFile reads configPath and loads it.
func (l *Loader) LoadConfigFile(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, ErrInvalidConfigPath
	}
	content, err := l.readFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return l.LoadConfig(configPath, content)
}

// LoadConfig parses content, whose format follows the extension of configPath,
// merges the override file, applies defaults and validates the result.
func (l *Loader) LoadConfig(configPath string, content []byte) (*Config, error) {
	var cfg Config
	if err := decode(configPath, content, &cfg); err != nil {
		return nil, err
	}

	if err := l.mergeOverrideFile(configPath, &cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return &cfg, nil
}

func decode(configPath string, content []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(content))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(content))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, configPath)
	}
	return nil
}

// mergeOverrideFile loads the dotenv override file below the inline overrides.
func (l *Loader) mergeOverrideFile(configPath string, cfg *Config) error {
	file := cfg.Environment.OverrideFile
	if file == "" {
		return nil
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(filepath.Dir(configPath), file)
	}

	content, err := l.readFile(file)
	if err != nil {
		return fmt.Errorf("failed to read override file %s: %w", file, err)
	}
	fileEnv, err := parseOverrides(file, content)
	if err != nil {
		return err
	}

	merged := make(map[string]string, len(fileEnv)+len(cfg.Environment.Overrides))
	maps.Copy(merged, fileEnv)
	maps.Copy(merged, cfg.Environment.Overrides)
	cfg.Environment.Overrides = merged
	return nil
}

// LoadOverrideFile parses a dotenv file of environment overrides.
func LoadOverrideFile(path string) (map[string]string, error) {
	content, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read override file %s: %w", path, err)
	}
	return parseOverrides(path, content)
}

// readFile refuses symlinks, oversized files and files others may write.
func readFile(path string) ([]byte, error) {
	return safefileio.ReadFile(path, MaxFileSize)
}

func parseOverrides(path string, content []byte) (map[string]string, error) {
	env, err := godotenv.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse override file %s: %w", path, err)
	}
	return env, nil
}
