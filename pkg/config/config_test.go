package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing version",
			mutate:  func(c *Config) { c.Version = "" },
			wantErr: "version is required",
		},
		{
			name:    "missing cache dir",
			mutate:  func(c *Config) { c.CacheDir = "" },
			wantErr: "cache directory is required",
		},
		{
			name:    "non-http repository",
			mutate:  func(c *Config) { c.Repository = "ftp://example.com" },
			wantErr: "repository must be an http(s) URL",
		},
		{
			name:    "max below min",
			mutate:  func(c *Config) { c.MinVersion = 40; c.MaxVersion = 39 },
			wantErr: "max version 39 is below min version 40",
		},
		{
			name:   "bounded range",
			mutate: func(c *Config) { c.MinVersion = 40; c.MaxVersion = 40 },
		},
		{
			name:    "zero trials",
			mutate:  func(c *Config) { c.Trials = 0 },
			wantErr: "trials must be positive",
		},
		{
			name:    "negative trial timeout",
			mutate:  func(c *Config) { c.TrialTimeout = -1 },
			wantErr: "trial timeout must be non-negative",
		},
		{
			name:    "missing java command",
			mutate:  func(c *Config) { c.Java.Command = "" },
			wantErr: "java: command is required",
		},
		{
			name:    "bad system property",
			mutate:  func(c *Config) { c.Java.SystemProperties = []string{"=oops"} },
			wantErr: "invalid system property",
		},
		{
			name:    "no loader",
			mutate:  func(c *Config) { c.Java.LoaderDir = ""; c.Java.LoaderClasspath = "" },
			wantErr: "either loaderClasspath or loaderDir is required",
		},
		{
			name:    "unknown format",
			mutate:  func(c *Config) { c.Output.Format = "xml" },
			wantErr: "unknown format",
		},
		{
			name:    "unknown unit",
			mutate:  func(c *Config) { c.Output.Unit = "hours" },
			wantErr: "unknown unit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_MergesOverDefaults(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{
		"version": "1.0",
		"minVersion": 40,
		"trials": 5,
		"trialTimeout": 60000,
		"java": {"command": "/opt/jdk/bin/java"},
		"output": {"format": "table"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.MinVersion)
	assert.Equal(t, Unbounded, cfg.MaxVersion)
	assert.Equal(t, 5, cfg.Trials)
	assert.Equal(t, time.Minute, cfg.TrialTimeoutDuration())
	assert.Equal(t, "/opt/jdk/bin/java", cfg.Java.Command)
	assert.Equal(t, DefaultMainClass, cfg.Java.MainClass)
	assert.Equal(t, "table", cfg.Output.Format)
	assert.Equal(t, DefaultUnit, cfg.Output.Unit)
	assert.Equal(t, DefaultCacheDir, cfg.CacheDir)
	assert.Equal(t, 20*time.Second, cfg.ConnectTimeoutDuration())
}

func TestLoadYAMLConfig_MatchesJSON(t *testing.T) {
	fromJSON, err := LoadConfig([]byte(`{"version":"1.0","minVersion":41,"maxVersion":45,"verify":{"checksums":true}}`))
	require.NoError(t, err)

	fromYAML, err := LoadYAMLConfig([]byte(`
version: "1.0"
minVersion: 41
maxVersion: 45
verify:
  checksums: true
`))
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig([]byte(`{"version": "1.0", "trials": -3}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")

	_, err = LoadConfig([]byte(`{not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")

	_, err = LoadYAMLConfig([]byte("trials: [1, 2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestOutputConfig_UnitDuration(t *testing.T) {
	for unit, want := range map[string]time.Duration{
		"ns": time.Nanosecond,
		"us": time.Microsecond,
		"ms": time.Millisecond,
		"s":  time.Second,
		"":   time.Millisecond,
	} {
		o := OutputConfig{Unit: unit}
		assert.Equal(t, want, o.UnitDuration(), unit)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Trials = 3

	data, err := SaveConfig(cfg)
	require.NoError(t, err)

	loaded, err := LoadConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
