package tts

import (
	"fmt"
	"strings"
	"time"
)

// Engine names accepted in the configuration.
const (
	EngineGemini = "gemini"
	EngineMock   = "mock"
)

// Config contains all speech and playback configuration options.
type Config struct {
	Engine string `yaml:"engine" env:"READALOUD_ENGINE" envDefault:"gemini"`

	// Playback settings
	Volume          float64 `yaml:"volume" env:"READALOUD_AUDIO_VOLUME" envDefault:"1.0"`
	Window          int     `yaml:"window" env:"READALOUD_READER_WINDOW" envDefault:"5"`
	MaxInFlight     int     `yaml:"max_inflight" env:"READALOUD_READER_MAX_INFLIGHT" envDefault:"6"`
	MaxCacheEntries int     `yaml:"max_entries" env:"READALOUD_CACHE_MAX_ENTRIES" envDefault:"0"`

	// Engine-specific configurations
	Gemini GeminiConfig `yaml:"gemini"`
	Mock   MockConfig   `yaml:"mock"`
}

// GeminiConfig contains Gemini speech generation settings.
type GeminiConfig struct {
	APIKey            string        `yaml:"api_key" env:"GEMINI_API_KEY"`
	Model             string        `yaml:"model" env:"READALOUD_GEMINI_MODEL" envDefault:"gemini-2.5-flash-preview-tts"`
	Voice             string        `yaml:"voice" env:"READALOUD_GEMINI_VOICE" envDefault:"Kore"`
	Timeout           time.Duration `yaml:"timeout" env:"READALOUD_GEMINI_TIMEOUT" envDefault:"30s"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"READALOUD_GEMINI_REQUESTS_PER_MINUTE" envDefault:"0"`
	Retries           int           `yaml:"retries" env:"READALOUD_GEMINI_RETRIES" envDefault:"2"`
}

// MockConfig contains settings for the offline mock engine.
type MockConfig struct {
	Delay       time.Duration `yaml:"delay" env:"READALOUD_MOCK_DELAY" envDefault:"300ms"`
	FailureRate float64       `yaml:"failure_rate" env:"READALOUD_MOCK_FAILURE_RATE" envDefault:"0.0"`
	Tone        float64       `yaml:"tone" env:"READALOUD_MOCK_TONE" envDefault:"440"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:          EngineGemini,
		Volume:          1.0,
		Window:          5,
		MaxInFlight:     6,
		MaxCacheEntries: 0,

		Gemini: DefaultGeminiConfig(),
		Mock:   DefaultMockConfig(),
	}
}

// DefaultGeminiConfig returns default Gemini configuration.
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		Model:   "gemini-2.5-flash-preview-tts",
		Voice:   "Kore",
		Timeout: 30 * time.Second,
		Retries: 2,
	}
}

// DefaultMockConfig returns default mock engine configuration.
func DefaultMockConfig() MockConfig {
	return MockConfig{
		Delay: 300 * time.Millisecond,
		Tone:  440,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validEngines := []string{EngineGemini, EngineMock}
	engineValid := false
	for _, e := range validEngines {
		if strings.EqualFold(c.Engine, e) {
			engineValid = true
			c.Engine = e
			break
		}
	}
	if !engineValid {
		return fmt.Errorf("%w '%s': must be one of %v", ErrInvalidEngine, c.Engine, validEngines)
	}

	if c.Volume < 0.0 || c.Volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", c.Volume)
	}

	if c.Window < 0 || c.Window > 50 {
		return fmt.Errorf("window must be between 0 and 50, got %d", c.Window)
	}

	if c.MaxInFlight < 0 {
		return fmt.Errorf("max_inflight must not be negative, got %d", c.MaxInFlight)
	}

	if c.MaxCacheEntries < 0 {
		return fmt.Errorf("max_entries must not be negative, got %d", c.MaxCacheEntries)
	}
	if c.MaxCacheEntries > 0 && c.MaxCacheEntries <= c.Window {
		return fmt.Errorf("max_entries must exceed the window (%d), got %d", c.Window, c.MaxCacheEntries)
	}

	switch c.Engine {
	case EngineGemini:
		if err := c.Gemini.Validate(); err != nil {
			return fmt.Errorf("gemini config: %w", err)
		}
	case EngineMock:
		if err := c.Mock.Validate(); err != nil {
			return fmt.Errorf("mock config: %w", err)
		}
	}

	return nil
}

// Validate checks if the Gemini configuration is valid.
func (c *GeminiConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.Voice == "" {
		return fmt.Errorf("voice cannot be empty")
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative, got %d", c.RequestsPerMinute)
	}
	if c.Retries < 0 || c.Retries > 10 {
		return fmt.Errorf("retries must be between 0 and 10, got %d", c.Retries)
	}
	return nil
}

// Validate checks if the mock configuration is valid.
func (c *MockConfig) Validate() error {
	if c.Delay < 0 {
		return fmt.Errorf("delay must not be negative, got %v", c.Delay)
	}
	if c.FailureRate < 0.0 || c.FailureRate > 1.0 {
		return fmt.Errorf("failure_rate must be between 0.0 and 1.0, got %f", c.FailureRate)
	}
	if c.Tone < 0 || c.Tone > 4000 {
		return fmt.Errorf("tone must be between 0 and 4000 Hz, got %f", c.Tone)
	}
	return nil
}
