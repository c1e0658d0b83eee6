package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/filedrop/commands"
	"github.com/opd-ai/filedrop/limits"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0", cfg.Address)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, logrus.InfoLevel, cfg.Level())
	assert.Equal(t, time.Second, cfg.ShutdownWait)
	assert.Equal(t, int64(limits.MinChunkSize), cfg.Chunk.MinSize)
	assert.Equal(t, int64(limits.MaxChunkSize), cfg.Chunk.MaxSize)
	assert.Equal(t, int64(1024), cfg.Chunk.SizeKB)
	assert.Equal(t, int64(limits.MaxEncodeSize), cfg.Encode.MaxSize)
	assert.Equal(t, commands.ShellPOSIX, cfg.Shell())
}

func TestDefaultIgnoresEnvironment(t *testing.T) {
	t.Setenv("FILEDROP_PORT", "not-a-port")
	assert.Equal(t, limits.DefaultPort, Default().Port)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("FILEDROP_PORT", "9090")
	t.Setenv("FILEDROP_LOG_LEVEL", "debug")
	t.Setenv("FILEDROP_SHUTDOWN_WAIT", "3s")
	t.Setenv("FILEDROP_CHUNK_SIZE_KB", "64")
	t.Setenv("FILEDROP_ENCODE_SHELL", "windows")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
	assert.Equal(t, 3*time.Second, cfg.ShutdownWait)
	assert.Equal(t, int64(64), cfg.Chunk.SizeKB)
	assert.Equal(t, commands.ShellWindowsCmd, cfg.Shell())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filedrop.yaml")
	content := `
address: 127.0.0.1
port: 8443
max-connections: 4
chunk:
  output-dir: /tmp/parts
  size-kb: 16
encode:
  max-size: 1048576
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Address)
	assert.Equal(t, 8443, cfg.Port)
	assert.Equal(t, 4, cfg.MaxConnections)
	assert.Equal(t, "/tmp/parts", cfg.Chunk.OutputDir)
	assert.Equal(t, int64(16), cfg.Chunk.SizeKB)
	assert.Equal(t, int64(1048576), cfg.Encode.MaxSize)
	assert.Equal(t, int64(limits.MaxChunkSize), cfg.Chunk.MaxSize)
}

func TestEnvironmentBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filedrop.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 8100}`), 0o644))
	t.Setenv("FILEDROP_PORT", "8200")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8200, cfg.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "could not read config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Port = 0 }, "port"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "loud"},
		{"negative connections", func(c *Config) { c.MaxConnections = -1 }, "max-connections"},
		{"zero wait", func(c *Config) { c.ShutdownWait = 0 }, "shutdown-wait"},
		{"inverted bounds", func(c *Config) { c.Chunk.MinSize = c.Chunk.MaxSize + 1 }, "bounds"},
		{"default chunk out of bounds", func(c *Config) { c.Chunk.SizeKB = 1 }, "chunk.size-kb"},
		{"chunk size overflows", func(c *Config) { c.Chunk.SizeKB = (1 << 54) + 16 }, "chunk.size-kb"},
		{"unknown shell", func(c *Config) { c.Encode.Shell = "fish" }, "encode.shell"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	assert.NoError(t, Default().Validate())
}
