// Package config provides configuration types and defaults for folio.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/folioterm/folio/internal/tracing"
)

// View modes for the reading surface.
const (
	ViewModeSingle = "single"
	ViewModeSplit  = "split"
)

// Page numbering modes.
const (
	PageNumberingAbsolute = "absolute"
	PageNumberingDynamic  = "dynamic"
)

// LayoutConfig holds the settings that determine how text is wrapped and
// paginated. Any change here invalidates the pagination cache key.
type LayoutConfig struct {
	// ViewMode is "single" (one column) or "split" (two side-by-side columns).
	ViewMode string `mapstructure:"view_mode"`

	// LineSpacing is the number of screen rows per text line (1 or 2).
	LineSpacing int `mapstructure:"line_spacing"`

	// PageNumbering selects the page map algorithm: "absolute" counts pages
	// per chapter, "dynamic" numbers pages continuously across the book.
	PageNumbering string `mapstructure:"page_numbering"`

	// ShowImages renders image placeholder rows; when false image blocks
	// collapse to their alt text.
	ShowImages bool `mapstructure:"show_images"`

	// MaxImageRows caps the height of an image placeholder.
	MaxImageRows int `mapstructure:"max_image_rows"`

	// PrefetchChapters is how many chapters on each side of the visible one
	// are formatted in the background. 0 disables prefetching.
	PrefetchChapters int `mapstructure:"prefetch_chapters"`
}

// UIConfig holds user interface configuration options.
type UIConfig struct {
	ShowStatusBar bool   `mapstructure:"show_status_bar"`
	Theme         string `mapstructure:"theme"` // "dark" (default) or "light"

	// ToastDuration is how long transient messages stay visible, in seconds.
	ToastDurationSeconds int `mapstructure:"toast_duration_seconds"`
}

// Config holds all configuration options for folio.
type Config struct {
	Layout  LayoutConfig   `mapstructure:"layout"`
	UI      UIConfig       `mapstructure:"ui"`
	Tracing tracing.Config `mapstructure:"tracing"`

	// CacheDir overrides the pagination cache location.
	// Default: os.UserCacheDir()/folio
	CacheDir string `mapstructure:"cache_dir"`

	// Debug enables file logging.
	Debug bool `mapstructure:"debug"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		Layout: LayoutConfig{
			ViewMode:         ViewModeSingle,
			LineSpacing:      1,
			PageNumbering:    PageNumberingDynamic,
			ShowImages:       true,
			MaxImageRows:     8,
			PrefetchChapters: 1,
		},
		UI: UIConfig{
			ShowStatusBar:        true,
			Theme:                "dark",
			ToastDurationSeconds: 2,
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// Validate checks the configuration for values the layout engine cannot
// work with. Unknown strings are rejected rather than silently defaulted so
// a typo in the config file is visible.
func (c Config) Validate() error {
	switch c.Layout.ViewMode {
	case ViewModeSingle, ViewModeSplit:
	default:
		return fmt.Errorf("layout.view_mode must be %q or %q, got %q",
			ViewModeSingle, ViewModeSplit, c.Layout.ViewMode)
	}

	if c.Layout.LineSpacing < 1 || c.Layout.LineSpacing > 2 {
		return fmt.Errorf("layout.line_spacing must be 1 or 2, got %d", c.Layout.LineSpacing)
	}

	switch c.Layout.PageNumbering {
	case PageNumberingAbsolute, PageNumberingDynamic:
	default:
		return fmt.Errorf("layout.page_numbering must be %q or %q, got %q",
			PageNumberingAbsolute, PageNumberingDynamic, c.Layout.PageNumbering)
	}

	if c.Layout.MaxImageRows < 1 {
		return fmt.Errorf("layout.max_image_rows must be positive, got %d", c.Layout.MaxImageRows)
	}

	if c.Layout.PrefetchChapters < 0 {
		return fmt.Errorf("layout.prefetch_chapters must not be negative, got %d", c.Layout.PrefetchChapters)
	}

	switch c.UI.Theme {
	case "dark", "light":
	default:
		return fmt.Errorf("ui.theme must be \"dark\" or \"light\", got %q", c.UI.Theme)
	}

	return nil
}

// DefaultConfigDir returns the folio config directory.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "folio"), nil
}

// DefaultCacheDir returns the pagination cache directory.
func DefaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache directory: %w", err)
	}
	return filepath.Join(base, "folio"), nil
}

// DefaultTracesFilePath returns the default trace output file.
func DefaultTracesFilePath() string {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "traces.jsonl"
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// DefaultLogFilePath returns the default debug log file.
func DefaultLogFilePath() string {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "folio.log"
	}
	return filepath.Join(dir, "folio.log")
}
