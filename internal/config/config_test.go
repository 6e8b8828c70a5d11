package config

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"QDECK_SHOTS", "QDECK_SEED", "QDECK_WORKERS", "LOG_LEVEL", "LOG_PRETTY"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Shots)
	assert.Equal(t, int64(1), cfg.Seed)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("QDECK_SHOTS", "10000")
	t.Setenv("QDECK_SEED", "42")
	t.Setenv("QDECK_WORKERS", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10000, cfg.Shots)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.LogPretty)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("QDECK_SHOTS", "lots")
	t.Setenv("LOG_PRETTY", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Shots)
	assert.True(t, cfg.LogPretty)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Shots: 1, Workers: 1, LogLevel: "info"}, false},
		{"zero shots allowed", Config{Shots: 0, Workers: 1, LogLevel: "warn"}, false},
		{"negative shots", Config{Shots: -1, Workers: 1, LogLevel: "info"}, true},
		{"no workers", Config{Shots: 1, Workers: 0, LogLevel: "info"}, true},
		{"bad level", Config{Shots: 1, Workers: 1, LogLevel: "loud"}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	clearEnv(t)
	t.Setenv("QDECK_WORKERS", "0")
	_, err := Load()
	assert.Error(t, err)
}
