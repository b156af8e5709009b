// Package config loads qjunit settings from .qjunit.yaml and command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/zk/qjunit/internal/naming"
)

// DefaultFile is read from the working directory when --config is not given
const DefaultFile = ".qjunit.yaml"

// Constants for default values
const (
	DefaultDest    = "_build/test-reports"
	DefaultTimeout = 30 * time.Second
)

// Flag names shared by RegisterFlags and ApplyFlags
const (
	FlagDest        = "dest"
	FlagConfig      = "config"
	FlagTimeout     = "timeout"
	FlagWatch       = "watch"
	FlagMetricsFile = "metrics-file"
	FlagLogLevel    = "log-level"
)

// Config is the resolved configuration for a run
type Config struct {
	Dest        string        `yaml:"dest"`
	Timeout     time.Duration `yaml:"timeout"`
	Watch       bool          `yaml:"watch"`
	MetricsFile string        `yaml:"metrics_file"`
	LogLevel    string        `yaml:"log_level"` // Empty defers to QJUNIT_LOG_LEVEL
	Namers      naming.Rules  `yaml:"namers"`
}

// Default returns the configuration used when no file or flags are given
func Default() *Config {
	return &Config{
		Dest:    DefaultDest,
		Timeout: DefaultTimeout,
	}
}

// Load reads path over the defaults. An empty path means DefaultFile, which
// may be absent; an explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// RegisterFlags defines the configuration flags on fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP(FlagDest, "d", DefaultDest, "directory the JUnit reports are written to")
	fs.StringP(FlagConfig, "c", "", "config file (default "+DefaultFile+" when present)")
	fs.Duration(FlagTimeout, DefaultTimeout, "inactivity deadline before a source is reported as timed out")
	fs.BoolP(FlagWatch, "w", false, "keep tailing event files until every source finishes")
	fs.String(FlagMetricsFile, "", "write Prometheus text-format metrics to this file")
	fs.String(FlagLogLevel, "", "debug log level: DEBUG, INFO, WARN or ERROR (default $QJUNIT_LOG_LEVEL, then WARN)")
}

// ApplyFlags overrides file values with flags the user set explicitly.
// Flag defaults never replace values read from the config file.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	if fs.Changed(FlagDest) {
		if c.Dest, err = fs.GetString(FlagDest); err != nil {
			return err
		}
	}
	if fs.Changed(FlagTimeout) {
		if c.Timeout, err = fs.GetDuration(FlagTimeout); err != nil {
			return err
		}
	}
	if fs.Changed(FlagWatch) {
		if c.Watch, err = fs.GetBool(FlagWatch); err != nil {
			return err
		}
	}
	if fs.Changed(FlagMetricsFile) {
		if c.MetricsFile, err = fs.GetString(FlagMetricsFile); err != nil {
			return err
		}
	}
	if fs.Changed(FlagLogLevel) {
		if c.LogLevel, err = fs.GetString(FlagLogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks values that cannot be expressed by their types
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Dest) == "" {
		return errors.New("dest must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	switch strings.ToUpper(c.LogLevel) {
	case "", "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	return nil
}

// Policy builds the naming policy described by the namers section
func (c *Config) Policy() (naming.Policy, error) {
	return naming.FromRules(c.Namers)
}
