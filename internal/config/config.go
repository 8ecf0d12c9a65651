// Package config handles engine configuration: the wire-format limits and
// logging level a connection is built with.
// file: internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/linerpc/linerpc/internal/logging"
)

var logger = logging.GetLogger("config")

// Wire-format limits. Defaults match the reference implementation's
// compile-time constants exactly.
const (
	DefaultInitialBufferCap = 4096
	DefaultMaxMessageBytes  = 1 << 20 // 1 MiB
	DefaultMaxBufferBytes   = 2 << 20 // 2 MiB
	DefaultArenaBytes       = 2 * DefaultMaxMessageBytes
)

// Settings holds the tunables a Connection is constructed with.
type Settings struct {
	Limits   LimitsConfig `yaml:"limits"`
	LogLevel string       `yaml:"log_level"`
}

// LimitsConfig groups the connection's buffer and arena sizing.
type LimitsConfig struct {
	InitialBufferCap int `yaml:"initial_buffer_cap"`
	MaxMessageBytes  int `yaml:"max_message_bytes"`
	MaxBufferBytes   int `yaml:"max_buffer_bytes"`
	ArenaBytes       int `yaml:"arena_bytes"`
}

// New returns Settings populated with the reference defaults.
func New() *Settings {
	logger.Debug("creating settings with defaults")
	return &Settings{
		Limits: LimitsConfig{
			InitialBufferCap: DefaultInitialBufferCap,
			MaxMessageBytes:  DefaultMaxMessageBytes,
			MaxBufferBytes:   DefaultMaxBufferBytes,
			ArenaBytes:       DefaultArenaBytes,
		},
		LogLevel: "info",
	}
}

// Load overlays path, a YAML file, onto the reference defaults. A missing
// file is not an error; New()'s defaults are returned unchanged.
func Load(path string) (*Settings, error) {
	s := New()

	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("config file not found, using defaults", "path", expanded)
			return s, nil
		}
		return nil, errors.Wrapf(err, "config: reading %s", expanded)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrapf(err, "config: parsing %s", expanded)
	}
	logger.Debug("loaded settings", "path", expanded)
	return s, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "config: resolving home directory")
	}
	return filepath.Join(home, path[1:]), nil
}
