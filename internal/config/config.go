// Package config loads this daemon's small configuration set with the
// same ENV > file > default precedence as the teacher's loader
// (ManuGH/xg2g/internal/config), reduced to the handful of settings this
// module actually needs: the local adapter address, the two IPC socket
// paths, the log level, and the metrics and status API listener addresses.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hmallat/a2dp-source/internal/bdaddr"
)

// Config is this daemon's full runtime configuration.
type Config struct {
	Adapter         bdaddr.Addr
	HALSocketPath   string
	AudioSocketPath string
	LogLevel        string
	MetricsAddr     string
	StatusAddr      string
}

// FileConfig is the YAML-decodable shape of an on-disk config file; field
// names map to the conventional lower_snake YAML keys.
type FileConfig struct {
	Adapter         string `yaml:"adapter"`
	HALSocketPath   string `yaml:"hal_socket_path"`
	AudioSocketPath string `yaml:"audio_socket_path"`
	LogLevel        string `yaml:"log_level"`
	MetricsAddr     string `yaml:"metrics_addr"`
	StatusAddr      string `yaml:"status_addr"`
}

// Defaults mirror the original's hal-ipc/audio-ipc socket path
// conventions (android/hal-ipc.h, android/audio-ipc.c — see DESIGN.md).
const (
	DefaultHALSocketPath   = "/var/run/bluetooth/hal-ipc.sock"
	DefaultAudioSocketPath = "/var/run/bluetooth/audio-ipc.sock"
	DefaultLogLevel        = "info"
	DefaultMetricsAddr     = "127.0.0.1:9190"
	DefaultStatusAddr      = "127.0.0.1:8719"
)

// envLookupFunc abstracts os.LookupEnv for testability, as in the
// teacher's loader.
type envLookupFunc func(string) (string, bool)

// Loader loads a Config with ENV > file > default precedence.
type Loader struct {
	configPath string
	lookupEnv  envLookupFunc
}

// NewLoader returns a Loader that will read configPath (if non-empty) and
// fall back to os.LookupEnv for environment overrides.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath, lookupEnv: os.LookupEnv}
}

// NewLoaderWithEnv is NewLoader with an injected environment source, for
// deterministic tests.
func NewLoaderWithEnv(configPath string, lookup envLookupFunc) *Loader {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Loader{configPath: configPath, lookupEnv: lookup}
}

// Load resolves the final Config: defaults, then file overrides, then
// environment overrides.
func (l *Loader) Load() (Config, error) {
	cfg := Config{
		HALSocketPath:   DefaultHALSocketPath,
		AudioSocketPath: DefaultAudioSocketPath,
		LogLevel:        DefaultLogLevel,
		MetricsAddr:     DefaultMetricsAddr,
		StatusAddr:      DefaultStatusAddr,
	}

	if l.configPath != "" {
		fc, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("config: load file: %w", err)
		}
		mergeFile(&cfg, fc)
	}

	if err := l.mergeEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("config: apply environment: %w", err)
	}

	if cfg.HALSocketPath == "" || cfg.AudioSocketPath == "" {
		return cfg, fmt.Errorf("config: hal and audio socket paths must not be empty")
	}

	return cfg, nil
}

func (l *Loader) loadFile(path string) (FileConfig, error) {
	var fc FileConfig
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fc, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if err == io.EOF {
			return FileConfig{}, nil
		}
		return fc, fmt.Errorf("strict config parse error: %w", err)
	}
	return fc, nil
}

func mergeFile(cfg *Config, fc FileConfig) {
	if fc.Adapter != "" {
		if a, err := bdaddr.Parse(fc.Adapter); err == nil {
			cfg.Adapter = a
		}
	}
	if fc.HALSocketPath != "" {
		cfg.HALSocketPath = fc.HALSocketPath
	}
	if fc.AudioSocketPath != "" {
		cfg.AudioSocketPath = fc.AudioSocketPath
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.MetricsAddr != "" {
		cfg.MetricsAddr = fc.MetricsAddr
	}
	if fc.StatusAddr != "" {
		cfg.StatusAddr = fc.StatusAddr
	}
}

// Environment variable names, per this module's own convention (no prior
// art to inherit naming from, unlike the teacher's XG2G_* keys).
const (
	EnvAdapter     = "A2DPD_ADAPTER"
	EnvHALSocket   = "A2DPD_HAL_SOCKET"
	EnvAudioSocket = "A2DPD_AUDIO_SOCKET"
	EnvLogLevel    = "A2DPD_LOG_LEVEL"
	EnvMetricsAddr = "A2DPD_METRICS_ADDR"
	EnvStatusAddr  = "A2DPD_STATUS_ADDR"
)

func (l *Loader) mergeEnv(cfg *Config) error {
	if v, ok := l.lookupEnv(EnvAdapter); ok && v != "" {
		a, err := bdaddr.Parse(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAdapter, err)
		}
		cfg.Adapter = a
	}
	if v, ok := l.lookupEnv(EnvHALSocket); ok && v != "" {
		cfg.HALSocketPath = v
	}
	if v, ok := l.lookupEnv(EnvAudioSocket); ok && v != "" {
		cfg.AudioSocketPath = v
	}
	if v, ok := l.lookupEnv(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := l.lookupEnv(EnvMetricsAddr); ok && v != "" {
		cfg.MetricsAddr = v
	}
	if v, ok := l.lookupEnv(EnvStatusAddr); ok && v != "" {
		cfg.StatusAddr = v
	}
	return nil
}
