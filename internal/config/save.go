package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// yamlConfig mirrors Config with yaml tags for writing the default file.
// mapstructure tags drive reading via viper; writing goes through yaml.v3.
type yamlConfig struct {
	Layout struct {
		ViewMode      string `yaml:"view_mode"`
		LineSpacing   int    `yaml:"line_spacing"`
		PageNumbering string `yaml:"page_numbering"`
		ShowImages    bool   `yaml:"show_images"`
		MaxImageRows  int    `yaml:"max_image_rows"`
	} `yaml:"layout"`
	UI struct {
		ShowStatusBar        bool   `yaml:"show_status_bar"`
		Theme                string `yaml:"theme"`
		ToastDurationSeconds int    `yaml:"toast_duration_seconds"`
	} `yaml:"ui"`
	Debug bool `yaml:"debug"`
}

// WriteDefault writes a commented default config file at path, creating
// parent directories. Refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	def := Default()
	var yc yamlConfig
	yc.Layout.ViewMode = def.Layout.ViewMode
	yc.Layout.LineSpacing = def.Layout.LineSpacing
	yc.Layout.PageNumbering = def.Layout.PageNumbering
	yc.Layout.ShowImages = def.Layout.ShowImages
	yc.Layout.MaxImageRows = def.Layout.MaxImageRows
	yc.UI.ShowStatusBar = def.UI.ShowStatusBar
	yc.UI.Theme = def.UI.Theme
	yc.UI.ToastDurationSeconds = def.UI.ToastDurationSeconds
	yc.Debug = def.Debug

	data, err := yaml.Marshal(yc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	header := []byte("# folio configuration\n# See `folio --help` for option documentation.\n")
	if err := os.WriteFile(path, append(header, data...), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
