package cmd

import (
	"fmt"

	"github.com/marcus/vscroll/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "system",
	Short:   "View or change the demo's persisted viewport geometry",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current geometry configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(getBaseDir())
		if err != nil {
			return err
		}
		fmt.Printf("min_row_height:   %v\n", cfg.MinRowHeight)
		fmt.Printf("viewport_height:  %v\n", cfg.ViewportHeight)
		fmt.Printf("buffer_factor:    %v\n", cfg.BufferFactor)
		fmt.Printf("poll_interval_ms: %v\n", cfg.PollIntervalMs)
		return nil
	},
}

var configSetBufferCmd = &cobra.Command{
	Use:   "set-buffer-factor <value>",
	Short: "Persist a new buffer_factor (clamped to >= 2.0 by the core)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var factor float64
		if _, err := fmt.Sscanf(args[0], "%f", &factor); err != nil {
			return fmt.Errorf("invalid buffer factor %q: %w", args[0], err)
		}
		return config.SetBufferFactor(getBaseDir(), factor)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetBufferCmd)
	rootCmd.AddCommand(configCmd)
}
