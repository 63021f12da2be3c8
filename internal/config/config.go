// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Inspector() InspectorConfig
	Browser() BrowserConfig

	// Inspector Setters
	SetInspectorTimeout(d time.Duration)
	SetInspectorViewport(width, height float64)

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserIgnoreTLSErrors(bool)
}

// Config holds the entire application configuration. It uses private fields
// to enforce access through the Interface's getter methods.
type Config struct {
	logger    LoggerConfig
	inspector InspectorConfig
	browser   BrowserConfig
}

// fileConfig is the unmarshal target; viper cannot populate private fields.
type fileConfig struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Inspector InspectorConfig `mapstructure:"inspector" yaml:"inspector"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig       { return c.logger }
func (c *Config) Inspector() InspectorConfig { return c.inspector }
func (c *Config) Browser() BrowserConfig     { return c.browser }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetInspectorTimeout(d time.Duration) { c.inspector.DefaultTimeout = d }
func (c *Config) SetInspectorViewport(width, height float64) {
	c.inspector.ViewportWidth = width
	c.inspector.ViewportHeight = height
}

func (c *Config) SetBrowserHeadless(b bool)        { c.browser.Headless = b }
func (c *Config) SetBrowserIgnoreTLSErrors(b bool) { c.browser.IgnoreTLSErrors = b }

// InspectorConfig holds the settings governing inspection runs.
type InspectorConfig struct {
	// DefaultTimeout bounds wait-for-readiness when the caller gives none.
	DefaultTimeout time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	// FrameInterval is the static oracle's simulated rendering cadence.
	FrameInterval  time.Duration `mapstructure:"frame_interval" yaml:"frame_interval"`
	ViewportWidth  float64       `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight float64       `mapstructure:"viewport_height" yaml:"viewport_height"`
}

// BrowserConfig holds settings for the live-browser oracle backend.
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	NavigationWait  time.Duration `mapstructure:"navigation_wait" yaml:"navigation_wait"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	cfg, err := NewConfigFromViper(v)
	if err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to build default config: %v", err))
	}
	return cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "domprobe")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Inspector --
	v.SetDefault("inspector.default_timeout", "30s")
	v.SetDefault("inspector.frame_interval", "16ms")
	v.SetDefault("inspector.viewport_width", 1280)
	v.SetDefault("inspector.viewport_height", 720)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_wait", "2s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg := &Config{logger: fc.Logger, inspector: fc.Inspector, browser: fc.Browser}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.inspector.DefaultTimeout <= 0 {
		return fmt.Errorf("inspector.default_timeout must be a positive duration")
	}
	if c.inspector.FrameInterval <= 0 {
		return fmt.Errorf("inspector.frame_interval must be a positive duration")
	}
	if c.inspector.ViewportWidth <= 0 || c.inspector.ViewportHeight <= 0 {
		return fmt.Errorf("inspector viewport dimensions must be positive")
	}
	return nil
}
