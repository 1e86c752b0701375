package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcus/vscroll/internal/feedstore"
	"github.com/spf13/cobra"
)

var appendChannel string
var appendSender string

var appendCmd = &cobra.Command{
	Use:     "append <body>",
	GroupID: "core",
	Short:   "Append a single message to the feed",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ValidateNonEmpty(args[0], "append <body>"); err != nil {
			return err
		}
		store, err := feedstore.Open(getBaseDir())
		if err != nil {
			return fmt.Errorf("open feed store: %w", err)
		}
		defer store.Close()

		m, err := store.Append(feedstore.Message{
			ID:        uuid.NewString(),
			Channel:   appendChannel,
			Sender:    appendSender,
			Body:      args[0],
			Timestamp: time.Now().Unix(),
		})
		if err != nil {
			return fmt.Errorf("append message: %w", err)
		}
		fmt.Printf("appended %s\n", m.ID)
		return nil
	},
}

func init() {
	appendCmd.Flags().StringVar(&appendChannel, "channel", "general", "channel to post to")
	appendCmd.Flags().StringVar(&appendSender, "sender", "cli", "sender name")
	rootCmd.AddCommand(appendCmd)
}
