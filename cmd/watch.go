package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/vscroll/internal/config"
	"github.com/marcus/vscroll/internal/feedstore"
	"github.com/marcus/vscroll/internal/selection"
	"github.com/marcus/vscroll/internal/tui/scrollview"
	"github.com/marcus/vscroll/internal/vscroll"
	"github.com/spf13/cobra"
)

var watchChannel string
var watchPredicate string

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "core",
	Short:   "Open the terminal UI and scroll the feed live",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(getBaseDir())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		store, err := feedstore.Open(getBaseDir())
		if err != nil {
			return fmt.Errorf("open feed store: %w", err)
		}
		defer store.Close()

		predStr := watchPredicate
		if predStr == "" {
			predStr = fmt.Sprintf(`channel = "%s"`, watchChannel)
		}
		pred, err := selection.ParsePredicate(predStr)
		if err != nil {
			return fmt.Errorf("parse predicate %q: %w", predStr, err)
		}

		qctx := feedstore.QueryContext{Store: store}
		order := []selection.OrderByItem{{Field: "timestamp", Direction: selection.Descending}}
		mgr, err := vscroll.NewScrollManager[feedstore.Message](
			qctx, pred, order, cfg.MinRowHeight, cfg.ViewportHeight, cfg.BufferFactor, nil,
		)
		if err != nil {
			return fmt.Errorf("construct scroll manager: %w", err)
		}
		defer mgr.Close()

		model, err := scrollview.Start(context.Background(), mgr)
		if err != nil {
			return fmt.Errorf("start scroll manager: %w", err)
		}

		p := tea.NewProgram(model, tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchChannel, "channel", "general", "channel to watch")
	watchCmd.Flags().StringVar(&watchPredicate, "predicate", "", "explicit predicate expression, overrides --channel")
	rootCmd.AddCommand(watchCmd)
}
