package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nwokike/museum-harvester/internal/config"
)

func TestWithDefaultValues(t *testing.T) {
	cfg, err := config.WithDefault("ukpuru", "http://ukpuru.example.com/").Build()
	require.NoError(t, err)

	assert.Equal(t, "ukpuru", cfg.ArchiveName())
	assert.Equal(t, "http://ukpuru.example.com/", cfg.Seed())
	assert.Equal(t, 4, cfg.Concurrency())
	assert.Equal(t, time.Second, cfg.PerHostMinInterval())
	assert.True(t, cfg.RespectRobots())
	assert.Equal(t, 3, cfg.MaxAttempts())
	assert.Equal(t, 500*time.Millisecond, cfg.BackoffInitialDuration())
	assert.Equal(t, 2.0, cfg.BackoffMultiplier())
	assert.Equal(t, 30*time.Second, cfg.BackoffMaxDuration())
	assert.Equal(t, "output", cfg.OutputDir())
	assert.False(t, cfg.Resume())
	assert.NotZero(t, cfg.RandomSeed())
}

func TestBuilderOverrides(t *testing.T) {
	cfg, err := config.WithDefault("gijones", "https://gijones.example.org/photo-indexes/").
		WithConcurrency(8).
		WithPerHostMinInterval(2 * time.Second).
		WithMaxAttempts(5).
		WithOutputDir("/tmp/harvest").
		WithResume(true).
		WithRespectRobots(false).
		WithRandomSeed(42).
		Build()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Concurrency())
	assert.Equal(t, 2*time.Second, cfg.PerHostMinInterval())
	assert.Equal(t, 5, cfg.MaxAttempts())
	assert.Equal(t, "/tmp/harvest", cfg.OutputDir())
	assert.True(t, cfg.Resume())
	assert.False(t, cfg.RespectRobots())
	assert.Equal(t, int64(42), cfg.RandomSeed())
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name    string
		archive string
		seed    string
		mutate  func(*config.Config) *config.Config
	}{
		{"empty archive", "", "seed", nil},
		{"empty seed", "ukpuru", "", nil},
		{"zero concurrency", "ukpuru", "s", func(c *config.Config) *config.Config {
			return c.WithConcurrency(0)
		}},
		{"multiplier below one", "ukpuru", "s", func(c *config.Config) *config.Config {
			return c.WithBackoffMultiplier(0.5)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := config.WithDefault(tt.archive, tt.seed)
			if tt.mutate != nil {
				builder = tt.mutate(builder)
			}
			_, err := builder.Build()
			require.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestWithConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "harvester.yaml")
	body := []byte(`concurrency: 2
perHostMinInterval: 3s
maxAttempts: 7
outputDir: /data/harvest
resume: true
userAgent: test-agent/0.1
`)
	require.NoError(t, os.WriteFile(path, body, 0644))

	cfg, err := config.WithConfigFile(path, "britishmuseum", "/data/export.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Concurrency())
	assert.Equal(t, 3*time.Second, cfg.PerHostMinInterval())
	assert.Equal(t, 7, cfg.MaxAttempts())
	assert.Equal(t, "/data/harvest", cfg.OutputDir())
	assert.True(t, cfg.Resume())
	assert.Equal(t, "test-agent/0.1", cfg.UserAgent())
	// Untouched fields keep their defaults.
	assert.Equal(t, 2.0, cfg.BackoffMultiplier())
}

func TestWithConfigFileMissing(t *testing.T) {
	_, err := config.WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml"), "ukpuru", "seed")
	require.ErrorIs(t, err, config.ErrReadConfigFail)
}
