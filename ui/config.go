package ui

// Config contains TUI-specific configuration.
type Config struct {
	ShowAllFiles bool
	EnableMouse  bool
	WrapWidth    uint
	HomeDir      string `env:"HOME"`

	// Working directory or file path
	Path string

	// For debugging the UI
	ShowCacheStats bool `env:"READALOUD_SHOW_CACHE_STATS"`
}
