// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "domprobe", cfg.Logger().ServiceName)
	assert.Equal(t, 30*time.Second, cfg.Inspector().DefaultTimeout)
	assert.Equal(t, 16*time.Millisecond, cfg.Inspector().FrameInterval)
	assert.Equal(t, float64(1280), cfg.Inspector().ViewportWidth)
	assert.Equal(t, float64(720), cfg.Inspector().ViewportHeight)
	assert.True(t, cfg.Browser().Headless)
	assert.False(t, cfg.Browser().IgnoreTLSErrors)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.NoError(t, cfg.Validate(), "a default config should be valid")

	invalidTimeout := *cfg
	invalidTimeout.inspector.DefaultTimeout = 0
	err := invalidTimeout.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "inspector.default_timeout must be a positive duration")

	invalidFrame := *cfg
	invalidFrame.inspector.FrameInterval = -time.Millisecond
	err = invalidFrame.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "inspector.frame_interval must be a positive duration")

	invalidViewport := *cfg
	invalidViewport.inspector.ViewportWidth = 0
	err = invalidViewport.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "viewport dimensions must be positive")
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
logger:
  level: debug
  log_file: /var/log/domprobe.log
inspector:
  default_timeout: 5s
  viewport_width: 1024
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		err := v.ReadConfig(bytes.NewBuffer(yamlBytes))
		require.NoError(t, err)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Logger().Level)
		assert.Equal(t, "/var/log/domprobe.log", cfg.Logger().LogFile)
		assert.Equal(t, 5*time.Second, cfg.Inspector().DefaultTimeout)
		assert.Equal(t, float64(1024), cfg.Inspector().ViewportWidth)
		// A value absent from the YAML falls back to its default.
		assert.Equal(t, float64(720), cfg.Inspector().ViewportHeight)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("inspector.default_timeout", "0s") // Intentionally invalid

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

// -- Setter Tests --

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()

	cfg.SetInspectorTimeout(time.Minute)
	assert.Equal(t, time.Minute, cfg.Inspector().DefaultTimeout)

	cfg.SetInspectorViewport(640, 480)
	assert.Equal(t, float64(640), cfg.Inspector().ViewportWidth)
	assert.Equal(t, float64(480), cfg.Inspector().ViewportHeight)

	cfg.SetBrowserHeadless(false)
	assert.False(t, cfg.Browser().Headless)

	cfg.SetBrowserIgnoreTLSErrors(true)
	assert.True(t, cfg.Browser().IgnoreTLSErrors)
}
