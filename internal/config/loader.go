// Package config provides configuration loading for startupbench.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bebsworthy/startupbench/internal/debug"
	"github.com/bebsworthy/startupbench/pkg/config"
)

const (
	// ConfigFileBase is the configuration file name without extension
	ConfigFileBase = ".startupbench"

	// ConfigEnvVar is the environment variable to specify custom config path
	ConfigEnvVar = "STARTUPBENCH_CONFIG"
)

// configExtensions lists the recognized configuration file extensions in
// search order.
var configExtensions = []string{".json", ".yaml", ".yml"}

// Loader handles locating and loading configuration files
type Loader struct {
	// SearchPaths contains the directories to search for configuration files
	SearchPaths []string
	// Getenv looks up environment variables; os.Getenv when nil.
	Getenv func(string) string
}

// NewLoader creates a loader that searches the given working directory.
func NewLoader(workingDir string) *Loader {
	return &Loader{
		SearchPaths: []string{workingDir},
		Getenv:      os.Getenv,
	}
}

// Load returns the configuration from the environment override, the first
// config file found in the search paths, or the defaults when none exists.
func (l *Loader) Load() (*config.Config, error) {
	debug.LogSection("Configuration Loading")

	if envPath := l.getenv(ConfigEnvVar); envPath != "" {
		debug.Log("Loading config from environment variable %s: %s", ConfigEnvVar, envPath)
		cfg, err := l.loadFromPath(envPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", ConfigEnvVar, err)
		}
		return cfg, nil
	}

	debug.Log("Searching for config in: %v", l.SearchPaths)
	for _, searchPath := range l.SearchPaths {
		for _, ext := range configExtensions {
			configPath := filepath.Join(searchPath, ConfigFileBase+ext)
			if _, err := os.Stat(configPath); err == nil {
				debug.Log("Found config at: %s", configPath)
				cfg, err := l.loadFromPath(configPath)
				if err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
				}
				return cfg, nil
			}
		}
	}

	debug.Log("No config file found, using defaults")
	return config.Default(), nil
}

// LoadFromPath loads configuration from a specific file path
func (l *Loader) LoadFromPath(path string) (*config.Config, error) {
	return l.loadFromPath(path)
}

func (l *Loader) loadFromPath(path string) (*config.Config, error) {
	debug.Log("Loading config from file: %s", path)
	// #nosec G304 - path is chosen by the user
	file, err := os.Open(path)
	if err != nil {
		debug.LogError(err, "opening config file")
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = file.Close() }() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		debug.LogError(err, "reading config file")
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg *config.Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = config.LoadYAMLConfig(data)
	default:
		cfg, err = config.LoadConfig(data)
	}
	if err != nil {
		debug.LogError(err, "parsing config")
		return nil, err
	}

	debug.Log("Loaded config: cacheDir=%s, versions=%d..%d, trials=%d",
		cfg.CacheDir, cfg.MinVersion, cfg.MaxVersion, cfg.Trials)
	return cfg, nil
}

func (l *Loader) getenv(key string) string {
	if l.Getenv == nil {
		return os.Getenv(key)
	}
	return l.Getenv(key)
}
