package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoaderWithEnv("", func(string) (string, bool) { return "", false }).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultHALSocketPath, cfg.HALSocketPath)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "adapter: \"AA:BB:CC:DD:EE:FF\"\nhal_socket_path: \"/tmp/hal.sock\"\nlog_level: \"debug\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoaderWithEnv(path, func(string) (string, bool) { return "", false }).Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/hal.sock", cfg.HALSocketPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", cfg.Adapter.String())
	// Values not set in the file keep their defaults.
	assert.Equal(t, DefaultAudioSocketPath, cfg.AudioSocketPath)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: \"debug\"\n"), 0o600))

	env := map[string]string{EnvLogLevel: "warn"}
	cfg, err := NewLoaderWithEnv(path, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}).Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel, "env should win over file")
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not_a_real_field: true\n"), 0o600))

	_, err := NewLoaderWithEnv(path, func(string) (string, bool) { return "", false }).Load()
	assert.Error(t, err, "expected strict decode error for an unknown config field")
}

func TestLoadRejectsNonYAMLExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, err := NewLoaderWithEnv(path, func(string) (string, bool) { return "", false }).Load()
	assert.Error(t, err, "expected error for a non-YAML config file extension")
}

func TestEnvInvalidAdapterRejected(t *testing.T) {
	env := map[string]string{EnvAdapter: "not-an-address"}
	_, err := NewLoaderWithEnv("", func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}).Load()
	assert.Error(t, err, "expected error for a malformed adapter address from the environment")
}
