// Package config provides configuration management for scorewatch.
//
// Configuration is loaded from three sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (SCOREWATCH_ prefix)
//  3. Config file (.scorewatch.yaml)
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the global configuration for scorewatch.
type Config struct {
	// DataDir is the directory holding the workbook result files. It is
	// also where the scan manifest and mapping report are written.
	DataDir string `mapstructure:"data-dir" json:"dataDir"`

	// ListenAddr is the address the dashboard server binds to.
	ListenAddr string `mapstructure:"listen-addr" json:"listenAddr"`

	// Port is the dashboard server port.
	Port int `mapstructure:"port" json:"port"`

	// Extension restricts scanning and watching to files with this
	// extension.
	Extension string `mapstructure:"extension" json:"extension"`

	// SummaryMarker is the filename token identifying the overall summary
	// workbook.
	SummaryMarker string `mapstructure:"summary-marker" json:"summaryMarker"`

	// SettleWindow is how long a file must stay unmodified before it is
	// treated as fully written.
	SettleWindow time.Duration `mapstructure:"settle-window" json:"settleWindow"`

	// SettlePoll is the granularity at which write stability is checked.
	SettlePoll time.Duration `mapstructure:"settle-poll" json:"settlePoll"`

	// Debounce collapses bursts of file changes into one rescan.
	Debounce time.Duration `mapstructure:"debounce" json:"debounce"`

	// PollInterval is the client-side freshness poll period, exposed so
	// the dashboard and the server agree on one value.
	PollInterval time.Duration `mapstructure:"poll-interval" json:"pollInterval"`

	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// LogDir, when set, additionally writes log output to scorewatch.log
	// inside this directory.
	LogDir string `mapstructure:"log-dir" json:"logDir,omitempty"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load() — not read from config itself.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		DataDir:       "data",
		ListenAddr:    "0.0.0.0",
		Port:          8000,
		Extension:     ".xlsx",
		SummaryMarker: "overall_summary",
		SettleWindow:  2 * time.Second,
		SettlePoll:    100 * time.Millisecond,
		Debounce:      time.Second,
		PollInterval:  30 * time.Second,
		LogLevel:      LogLevelInfo,
		LogFormat:     LogFormatText,
		Quiet:         false,
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}

	if !strings.HasPrefix(c.Extension, ".") {
		return fmt.Errorf("invalid extension %q: must start with a dot", c.Extension)
	}

	for name, d := range map[string]time.Duration{
		"settle-window": c.SettleWindow,
		"settle-poll":   c.SettlePoll,
		"debounce":      c.Debounce,
		"poll-interval": c.PollInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid %s %s: must be positive", name, d)
		}
	}

	return nil
}

// Addr returns the host:port pair the server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenAddr, c.Port)
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Store the resolved config file path so downstream code can locate it.
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper) {
	def := Default()

	v.SetDefault("data-dir", def.DataDir)
	v.SetDefault("listen-addr", def.ListenAddr)
	v.SetDefault("port", def.Port)
	v.SetDefault("extension", def.Extension)
	v.SetDefault("summary-marker", def.SummaryMarker)
	v.SetDefault("settle-window", def.SettleWindow)
	v.SetDefault("settle-poll", def.SettlePoll)
	v.SetDefault("debounce", def.Debounce)
	v.SetDefault("poll-interval", def.PollInterval)
	v.SetDefault("log-level", def.LogLevel)
	v.SetDefault("log-format", def.LogFormat)
	v.SetDefault("quiet", def.Quiet)
	v.SetDefault("log-dir", def.LogDir)
}

// configureEnv sets up environment variable support.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("SCOREWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// configureFile sets up the config file source.
func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	// Auto-discovery mode.
	v.SetConfigName(".scorewatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "scorewatch"))
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file found → perfectly fine in auto-discovery.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}

		// Found a file but it was malformed.
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags walks from cmd up to the root and binds all PersistentFlags.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	// Bind the current command's own flags.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	// Walk up to root and bind all persistent flags at each level.
	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
