package tts

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads configuration from Viper.
func LoadConfigFromViper() (Config, error) {
	return LoadConfig(viper.GetViper())
}

// LoadConfig loads configuration from v, keeping defaults for keys that
// are not set.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	if v.IsSet("engine") {
		cfg.Engine = v.GetString("engine")
	}
	if v.IsSet("audio.volume") {
		cfg.Volume = v.GetFloat64("audio.volume")
	}
	if v.IsSet("reader.window") {
		cfg.Window = v.GetInt("reader.window")
	}
	if v.IsSet("reader.max_inflight") {
		cfg.MaxInFlight = v.GetInt("reader.max_inflight")
	}
	if v.IsSet("cache.max_entries") {
		cfg.MaxCacheEntries = v.GetInt("cache.max_entries")
	}

	cfg.Gemini = loadGeminiConfig(v)
	cfg.Mock = loadMockConfig(v)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadGeminiConfig loads Gemini-specific configuration from Viper.
func loadGeminiConfig(v *viper.Viper) GeminiConfig {
	cfg := DefaultGeminiConfig()

	if v.IsSet("gemini.api_key") {
		cfg.APIKey = v.GetString("gemini.api_key")
	}
	if v.IsSet("gemini.model") {
		cfg.Model = v.GetString("gemini.model")
	}
	if v.IsSet("gemini.voice") {
		cfg.Voice = v.GetString("gemini.voice")
	}
	if v.IsSet("gemini.timeout") {
		if d, err := time.ParseDuration(v.GetString("gemini.timeout")); err == nil {
			cfg.Timeout = d
		}
	}
	if v.IsSet("gemini.requests_per_minute") {
		cfg.RequestsPerMinute = v.GetInt("gemini.requests_per_minute")
	}
	if v.IsSet("gemini.retries") {
		cfg.Retries = v.GetInt("gemini.retries")
	}

	return cfg
}

// loadMockConfig loads mock engine configuration from Viper.
func loadMockConfig(v *viper.Viper) MockConfig {
	cfg := DefaultMockConfig()

	if v.IsSet("mock.delay") {
		if d, err := time.ParseDuration(v.GetString("mock.delay")); err == nil {
			cfg.Delay = d
		}
	}
	if v.IsSet("mock.failure_rate") {
		cfg.FailureRate = v.GetFloat64("mock.failure_rate")
	}
	if v.IsSet("mock.tone") {
		cfg.Tone = v.GetFloat64("mock.tone")
	}

	return cfg
}

// SetDefaults sets default values in Viper for the configuration.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("engine", defaults.Engine)
	viper.SetDefault("audio.volume", defaults.Volume)
	viper.SetDefault("reader.window", defaults.Window)
	viper.SetDefault("reader.max_inflight", defaults.MaxInFlight)
	viper.SetDefault("cache.max_entries", defaults.MaxCacheEntries)

	viper.SetDefault("gemini.model", defaults.Gemini.Model)
	viper.SetDefault("gemini.voice", defaults.Gemini.Voice)
	viper.SetDefault("gemini.timeout", defaults.Gemini.Timeout.String())
	viper.SetDefault("gemini.requests_per_minute", defaults.Gemini.RequestsPerMinute)
	viper.SetDefault("gemini.retries", defaults.Gemini.Retries)

	viper.SetDefault("mock.delay", defaults.Mock.Delay.String())
	viper.SetDefault("mock.failure_rate", defaults.Mock.FailureRate)
	viper.SetDefault("mock.tone", defaults.Mock.Tone)
}
