// Package config loads the warpjs configuration file and applies
// environment overrides on top of it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"github.com/warpdl/warpjs/common"
)

// Log output formats.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

const (
	DefaultMaxSleep    = 60 * time.Second
	DefaultReportEvery = time.Second
	DefaultReportBurst = 5
)

var ErrInvalidConfig = errors.New("invalid config")

// Config mirrors the YAML file. Durations are kept as strings and parsed
// by Resolve so errors can name the offending key.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Journal   JournalConfig   `yaml:"journal"`
	Scripts   ScriptsConfig   `yaml:"scripts"`
}

type LogConfig struct {
	// Level is "info" (default) or "debug".
	Level string `yaml:"level"`
	// Format is "text" (default), "json" or "pretty".
	Format string `yaml:"format"`
	// File, if set, receives log output instead of stderr.
	File string `yaml:"file"`
}

type SchedulerConfig struct {
	MaxSleep    string `yaml:"max_sleep"`
	ReportEvery string `yaml:"report_every"`
	ReportBurst int    `yaml:"report_burst"`
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

type ScriptsConfig struct {
	Root string `yaml:"root"`
}

// Settings is the validated, typed form of Config.
type Settings struct {
	Debug       bool
	LogFormat   string
	LogFile     string
	MaxSleep    time.Duration
	ReportEvery time.Duration
	ReportBurst int
	JournalPath string
	ScriptRoot  string
}

func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: FormatText},
	}
}

// Load reads the config file at path. An empty path yields Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML config data on top of Default. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the WARPJS_* environment variables.
// getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(common.DebugEnv)); v != "" {
		if on, err := strconv.ParseBool(v); err == nil && on {
			c.Log.Level = "debug"
		}
	}
	if v := strings.TrimSpace(getenv(common.LogFormatEnv)); v != "" {
		c.Log.Format = v
	}
	if v := strings.TrimSpace(getenv(common.JournalEnv)); v != "" {
		c.Journal.Path = v
	}
	if v := strings.TrimSpace(getenv(common.ScriptRootEnv)); v != "" {
		c.Scripts.Root = v
	}
}

// Resolve validates the config and converts it to Settings.
func (c *Config) Resolve() (Settings, error) {
	s := Settings{
		LogFile:     strings.TrimSpace(c.Log.File),
		JournalPath: strings.TrimSpace(c.Journal.Path),
		ScriptRoot:  strings.TrimSpace(c.Scripts.Root),
	}

	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "", "info":
	case "debug":
		s.Debug = true
	default:
		return Settings{}, fmt.Errorf("%w: log.level: unknown level %q", ErrInvalidConfig, c.Log.Level)
	}

	switch f := strings.ToLower(strings.TrimSpace(c.Log.Format)); f {
	case "":
		s.LogFormat = FormatText
	case FormatText, FormatJSON, FormatPretty:
		s.LogFormat = f
	default:
		return Settings{}, fmt.Errorf("%w: log.format: unknown format %q", ErrInvalidConfig, c.Log.Format)
	}

	var err error
	if s.MaxSleep, err = ParseDurationOrDefault("scheduler.max_sleep", c.Scheduler.MaxSleep, DefaultMaxSleep); err != nil {
		return Settings{}, err
	}
	if s.ReportEvery, err = ParseDurationOrDefault("scheduler.report_every", c.Scheduler.ReportEvery, DefaultReportEvery); err != nil {
		return Settings{}, err
	}
	switch {
	case c.Scheduler.ReportBurst < 0:
		return Settings{}, fmt.Errorf("%w: scheduler.report_burst must be >= 0", ErrInvalidConfig)
	case c.Scheduler.ReportBurst == 0:
		s.ReportBurst = DefaultReportBurst
	default:
		s.ReportBurst = c.Scheduler.ReportBurst
	}
	return s, nil
}
