// Package config provides the configuration types and validation logic for startupbench.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Unbounded is the MaxVersion value that lets the fetcher scan until the
// repository stops answering.
const Unbounded = -1

// Defaults used when a field is absent from the configuration file.
const (
	DefaultVersion        = "1.0"
	DefaultCacheDir       = "tracers"
	DefaultLoaderDir      = ".startupbench/loader"
	DefaultRepository     = "https://repo1.maven.org/maven2"
	DefaultMinVersion     = 30
	DefaultTrials         = 10
	DefaultConnectTimeout = 20000 // milliseconds
	DefaultJava           = "java"
	DefaultJavac          = "javac"
	DefaultMainClass      = "startupbench.LoadClasses"
	DefaultFormat         = "csv"
	DefaultUnit           = "ms"
)

// Formats lists the report formats understood by the reporter.
var Formats = []string{"csv", "table", "json"}

var units = map[string]time.Duration{
	"ns": time.Nanosecond,
	"us": time.Microsecond,
	"ms": time.Millisecond,
	"s":  time.Second,
}

// Config represents the main configuration structure for startupbench
type Config struct {
	Version    string `json:"version" yaml:"version"`
	CacheDir   string `json:"cacheDir,omitempty" yaml:"cacheDir,omitempty"`
	Repository string `json:"repository,omitempty" yaml:"repository,omitempty"`
	MinVersion int    `json:"minVersion,omitempty" yaml:"minVersion,omitempty"`
	MaxVersion int    `json:"maxVersion,omitempty" yaml:"maxVersion,omitempty"`
	Trials     int    `json:"trials,omitempty" yaml:"trials,omitempty"`
	// TrialTimeout bounds a single subprocess run, in milliseconds. Zero waits forever.
	TrialTimeout int `json:"trialTimeout,omitempty" yaml:"trialTimeout,omitempty"`
	// ConnectTimeout bounds connection establishment for downloads, in milliseconds.
	ConnectTimeout int  `json:"connectTimeout,omitempty" yaml:"connectTimeout,omitempty"`
	HostCheck      bool `json:"hostCheck" yaml:"hostCheck"`

	Java   JavaConfig   `json:"java" yaml:"java"`
	Verify VerifyConfig `json:"verify" yaml:"verify"`
	Output OutputConfig `json:"output" yaml:"output"`
}

// JavaConfig describes how the benchmark subprocess is launched.
type JavaConfig struct {
	Command          string   `json:"command,omitempty" yaml:"command,omitempty"`
	Javac            string   `json:"javac,omitempty" yaml:"javac,omitempty"`
	SystemProperties []string `json:"systemProperties,omitempty" yaml:"systemProperties,omitempty"`
	Args             []string `json:"args,omitempty" yaml:"args,omitempty"`
	MainClass        string   `json:"mainClass,omitempty" yaml:"mainClass,omitempty"`
	// LoaderClasspath points at a prebuilt entry point; when empty the
	// embedded loader is compiled into LoaderDir.
	LoaderClasspath string `json:"loaderClasspath,omitempty" yaml:"loaderClasspath,omitempty"`
	LoaderDir       string `json:"loaderDir,omitempty" yaml:"loaderDir,omitempty"`
}

// VerifyConfig enables integrity checks on downloaded artifacts.
type VerifyConfig struct {
	Checksums bool   `json:"checksums" yaml:"checksums"`
	Keyring   string `json:"keyring,omitempty" yaml:"keyring,omitempty"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	Unit   string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Default returns a configuration populated with every default value.
func Default() *Config {
	return &Config{
		Version:        DefaultVersion,
		CacheDir:       DefaultCacheDir,
		Repository:     DefaultRepository,
		MinVersion:     DefaultMinVersion,
		MaxVersion:     Unbounded,
		Trials:         DefaultTrials,
		ConnectTimeout: DefaultConnectTimeout,
		HostCheck:      true,
		Java: JavaConfig{
			Command: DefaultJava,
			Javac:   DefaultJavac,
			SystemProperties: []string{
				"dd.jmxfetch.enabled=false",
				"dd.profiling.enabled=false",
			},
			MainClass: DefaultMainClass,
			LoaderDir: DefaultLoaderDir,
		},
		Output: OutputConfig{
			Format: DefaultFormat,
			Unit:   DefaultUnit,
		},
	}
}

// Validate performs validation on the Config
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}

	if c.CacheDir == "" {
		return fmt.Errorf("cache directory is required")
	}

	if !strings.HasPrefix(c.Repository, "http://") && !strings.HasPrefix(c.Repository, "https://") {
		return fmt.Errorf("repository must be an http(s) URL, got %q", c.Repository)
	}

	if c.MinVersion < 0 {
		return fmt.Errorf("min version must be non-negative")
	}

	if c.MaxVersion != Unbounded && c.MaxVersion < c.MinVersion {
		return fmt.Errorf("max version %d is below min version %d", c.MaxVersion, c.MinVersion)
	}

	if c.Trials <= 0 {
		return fmt.Errorf("trials must be positive")
	}

	if c.TrialTimeout < 0 {
		return fmt.Errorf("trial timeout must be non-negative")
	}

	if c.ConnectTimeout < 0 {
		return fmt.Errorf("connect timeout must be non-negative")
	}

	if err := c.Java.Validate(); err != nil {
		return fmt.Errorf("java: %w", err)
	}

	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}

	return nil
}

// Validate performs validation on the JavaConfig
func (j *JavaConfig) Validate() error {
	if j.Command == "" {
		return fmt.Errorf("command is required")
	}

	if j.MainClass == "" {
		return fmt.Errorf("main class is required")
	}

	if j.LoaderClasspath == "" && j.LoaderDir == "" {
		return fmt.Errorf("either loaderClasspath or loaderDir is required")
	}

	for _, prop := range j.SystemProperties {
		if key, _, _ := strings.Cut(prop, "="); key == "" {
			return fmt.Errorf("invalid system property %q", prop)
		}
	}

	return nil
}

// Validate performs validation on the OutputConfig
func (o *OutputConfig) Validate() error {
	valid := false
	for _, f := range Formats {
		if o.Format == f {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown format %q (want one of %s)", o.Format, strings.Join(Formats, ", "))
	}

	if _, ok := units[o.Unit]; !ok {
		return fmt.Errorf("unknown unit %q", o.Unit)
	}

	return nil
}

// UnitDuration returns the time unit reports are expressed in.
func (o *OutputConfig) UnitDuration() time.Duration {
	if d, ok := units[o.Unit]; ok {
		return d
	}
	return time.Millisecond
}

// TrialTimeoutDuration converts TrialTimeout to a time.Duration.
func (c *Config) TrialTimeoutDuration() time.Duration {
	return time.Duration(c.TrialTimeout) * time.Millisecond
}

// ConnectTimeoutDuration converts ConnectTimeout to a time.Duration.
func (c *Config) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Millisecond
}

// LoadConfig loads a configuration from JSON data on top of the defaults
func LoadConfig(data []byte) (*Config, error) {
	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// LoadYAMLConfig loads a configuration from YAML data on top of the defaults
func LoadYAMLConfig(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// SaveConfig serializes a configuration to JSON
func SaveConfig(config *Config) ([]byte, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	return data, nil
}
