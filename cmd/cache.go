package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/folioterm/folio/internal/config"
	"github.com/folioterm/folio/internal/epub"
	"github.com/folioterm/folio/internal/format"
	"github.com/folioterm/folio/internal/paginate"
	"github.com/folioterm/folio/internal/pubsub"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the on-disk pagination cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pagination cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer store.Close()

		stats, err := store.Stats()
		if err != nil {
			return fmt.Errorf("reading cache stats: %w", err)
		}

		fmt.Printf("documents:  %d\n", stats.Documents)
		fmt.Printf("layouts:    %d\n", stats.Entries)
		fmt.Printf("pages:      %d\n", stats.Pages)
		fmt.Printf("size:       %d bytes\n", stats.SizeBytes)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached page maps and positions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer store.Close()

		if err := store.Clear(); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Println("cache cleared")
		return nil
	},
}

var (
	warmWidth  int
	warmHeight int
)

var cacheWarmCmd = &cobra.Command{
	Use:   "warm <book.epub>",
	Short: "Paginate a book ahead of time for the given terminal size",
	Long: `Build and persist the page map for a book so the first open at the same
terminal size starts from a warm cache instead of paginating every chapter.`,
	Args: cobra.ExactArgs(1),
	RunE: runCacheWarm,
}

func init() {
	cacheWarmCmd.Flags().IntVar(&warmWidth, "width", 80, "terminal width to paginate for")
	cacheWarmCmd.Flags().IntVar(&warmHeight, "height", 24, "terminal height to paginate for")

	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheWarmCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheWarm(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	doc, err := epub.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer doc.Close()

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Fan progress out through a broker so the build loop stays decoupled
	// from the terminal.
	broker := pubsub.NewBroker[pubsub.Progress]()
	defer broker.Close()
	updates := broker.Subscribe(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range updates {
			fmt.Printf("\rpaginating chapter %d/%d", ev.Payload.Done, ev.Payload.Total)
		}
	}()

	calc := paginate.NewCalculator(format.NewService(), store)
	textHeight := warmHeight - 1 // status bar row
	err = calc.BuildPageMap(ctx, warmWidth, textHeight, doc, cfg.Layout, func(chapter, total int) {
		broker.Publish(pubsub.ProgressEvent, pubsub.Progress{Done: chapter, Total: total})
	})
	broker.Close()
	<-done
	fmt.Println()

	if err != nil {
		return fmt.Errorf("paginating: %w", err)
	}

	key := layoutDescription(cfg)
	fmt.Printf("cached %d pages for %s at %dx%d (%s)\n",
		calc.TotalPages(), doc.Title(), warmWidth, warmHeight, key)
	return nil
}

func layoutDescription(c config.Config) string {
	return fmt.Sprintf("%s view, %s numbering", c.Layout.ViewMode, c.Layout.PageNumbering)
}
