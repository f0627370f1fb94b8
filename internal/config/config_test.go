package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openfms/fitstream/internal/stream"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"FIT_CHUNK_SIZE", "FIT_SKIP_UNDECODABLE", "FIT_OUTPUT_FORMAT", "FIT_WGS84",
		"FIT_VERIFY_CRC", "FIT_METRICS_FILE", "LOG_LEVEL", "LOG_OUTPUT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, stream.DefaultChunkSize, cfg.ChunkSize)
	assert.False(t, cfg.SkipUndecodable)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.True(t, cfg.VerifyCRC)
	assert.Empty(t, cfg.MetricsFile)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "stderr", cfg.Log.Output)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FIT_CHUNK_SIZE", "64")
	t.Setenv("FIT_SKIP_UNDECODABLE", "true")
	t.Setenv("FIT_OUTPUT_FORMAT", "yaml")
	t.Setenv("FIT_WGS84", "1")
	t.Setenv("FIT_VERIFY_CRC", "false")
	t.Setenv("FIT_METRICS_FILE", "/tmp/fit.prom")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, 64, cfg.ChunkSize)
	assert.True(t, cfg.SkipUndecodable)
	assert.Equal(t, "yaml", cfg.OutputFormat)
	assert.True(t, cfg.WGS84)
	assert.False(t, cfg.VerifyCRC)
	assert.Equal(t, "/tmp/fit.prom", cfg.MetricsFile)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("FIT_CHUNK_SIZE", "lots")
	t.Setenv("FIT_VERIFY_CRC", "maybe")

	cfg := Load()
	assert.Equal(t, stream.DefaultChunkSize, cfg.ChunkSize)
	assert.True(t, cfg.VerifyCRC)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFileYAML(t *testing.T) {
	path := writeFile(t, "fit.yaml", `
chunk_size: 4096
output_format: cbor
log:
  level: warn
`)
	cfg := &Config{ChunkSize: 512, OutputFormat: "json", VerifyCRC: true}
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, 4096, cfg.ChunkSize)
	assert.Equal(t, "cbor", cfg.OutputFormat)
	assert.Equal(t, "warn", cfg.Log.Level)
	// untouched keys keep their value
	assert.True(t, cfg.VerifyCRC)
}

func TestLoadFileJSONWithComments(t *testing.T) {
	path := writeFile(t, "fit.jsonc", `{
	// decode leniently
	"skip_undecodable": true,
	"wgs84": true, /* degrees */
	"log": {"output": "console",},
}`)
	cfg := Load()
	require.NoError(t, cfg.LoadFile(path))

	assert.True(t, cfg.SkipUndecodable)
	assert.True(t, cfg.WGS84)
	assert.Equal(t, "console", cfg.Log.Output)
}

func TestLoadFileErrors(t *testing.T) {
	cfg := Load()

	err := cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = cfg.LoadFile(writeFile(t, "fit.toml", "chunk_size = 1"))
	assert.ErrorContains(t, err, "unsupported file type")

	err = cfg.LoadFile(writeFile(t, "fit.yaml", "chunk_size: [1"))
	assert.ErrorContains(t, err, "parse")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "zero chunk size", mutate: func(c *Config) { c.ChunkSize = 0 }, wantErr: "chunk size"},
		{name: "unknown format", mutate: func(c *Config) { c.OutputFormat = "xml" }, wantErr: "unknown format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{ChunkSize: 1, OutputFormat: "json"}
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}
