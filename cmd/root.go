// Package cmd wires the CLI: the root command opens a book in the TUI,
// subcommands manage the pagination cache.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/folioterm/folio/internal/clipboard"
	"github.com/folioterm/folio/internal/config"
	"github.com/folioterm/folio/internal/epub"
	"github.com/folioterm/folio/internal/format"
	"github.com/folioterm/folio/internal/log"
	"github.com/folioterm/folio/internal/pagecache"
	"github.com/folioterm/folio/internal/tracing"
	"github.com/folioterm/folio/internal/ui/reader"
	"github.com/folioterm/folio/internal/ui/styles"
	"github.com/folioterm/folio/internal/watcher"
)

func init() {
	// Force lipgloss/termenv to query the terminal background color BEFORE
	// the Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "folio <book.epub>",
	Short:   "A terminal EPUB reader",
	Long:    `A terminal EPUB reader with dynamic pagination, split view, and mouse text selection.`,
	Version: version,
	Args:    cobra.ExactArgs(1),
	RunE:    runReader,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/folio/config.yaml)")
	rootCmd.Flags().Bool("debug", false,
		"enable debug logging to ~/.config/folio/folio.log")
	rootCmd.Flags().Bool("no-watch", false,
		"disable reloading when the book file changes on disk")

	_ = viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))
}

func initConfig() {
	defaults := config.Default()
	viper.SetDefault("layout.view_mode", defaults.Layout.ViewMode)
	viper.SetDefault("layout.line_spacing", defaults.Layout.LineSpacing)
	viper.SetDefault("layout.page_numbering", defaults.Layout.PageNumbering)
	viper.SetDefault("layout.show_images", defaults.Layout.ShowImages)
	viper.SetDefault("layout.max_image_rows", defaults.Layout.MaxImageRows)
	viper.SetDefault("layout.prefetch_chapters", defaults.Layout.PrefetchChapters)
	viper.SetDefault("ui.show_status_bar", defaults.UI.ShowStatusBar)
	viper.SetDefault("ui.theme", defaults.UI.Theme)
	viper.SetDefault("ui.toast_duration_seconds", defaults.UI.ToastDurationSeconds)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	viper.SetEnvPrefix("FOLIO")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if dir, err := config.DefaultConfigDir(); err == nil {
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file anywhere: write the default one so the user has
		// something to edit, then continue with defaults either way.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			if dir, dirErr := config.DefaultConfigDir(); dirErr == nil {
				path := filepath.Join(dir, "config.yaml")
				if writeErr := config.WriteDefault(path); writeErr == nil {
					viper.SetConfigFile(path)
					_ = viper.ReadInConfig()
				}
			}
		}
	}

	_ = viper.Unmarshal(&cfg)
}

func runReader(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	styles.SetTheme(cfg.UI.Theme)

	if cfg.Debug || os.Getenv("FOLIO_DEBUG") != "" {
		closeLog, err := log.Init(config.DefaultLogFilePath())
		if err != nil {
			return fmt.Errorf("initializing log: %w", err)
		}
		defer closeLog()
		log.SetEnabled(true)
	}

	if cfg.Tracing.Enabled && cfg.Tracing.FilePath == "" {
		cfg.Tracing.FilePath = config.DefaultTracesFilePath()
	}
	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}()

	doc, err := epub.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer doc.Close()

	opts := []reader.Option{reader.WithClipboard(clipboard.System{})}

	store, err := openStore()
	if err != nil {
		// A broken cache degrades to cold pagination, not a fatal error.
		log.ErrorErr(log.CatCache, "pagination cache unavailable", err)
	} else {
		defer store.Close()
		opts = append(opts, reader.WithStore(store))
	}

	var bookWatcher *watcher.Watcher
	if noWatch, _ := cmd.Flags().GetBool("no-watch"); !noWatch {
		bookWatcher, err = watcher.New(watcher.DefaultConfig(args[0]))
		if err != nil {
			log.ErrorErr(log.CatWatcher, "file watcher unavailable", err)
		} else {
			changes, startErr := bookWatcher.Start()
			if startErr != nil {
				log.ErrorErr(log.CatWatcher, "file watcher failed to start", startErr)
			} else {
				opts = append(opts, reader.WithReloadChannel(changes))
			}
		}
	}

	model := reader.New(doc, format.NewService(format.WithPrefetchDepth(cfg.Layout.PrefetchChapters)), cfg, opts...)
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)

	_, err = p.Run()

	if bookWatcher != nil {
		if stopErr := bookWatcher.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
	}

	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

func openStore() (*pagecache.Store, error) {
	dir := cfg.CacheDir
	if dir == "" {
		var err error
		dir, err = config.DefaultCacheDir()
		if err != nil {
			return nil, err
		}
	}
	return pagecache.Open(dir)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
