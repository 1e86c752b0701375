package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/marcus/vscroll/internal/feedstore"
	"github.com/spf13/cobra"
)

var seedCount int
var seedChannel string

var seedCmd = &cobra.Command{
	Use:     "seed",
	GroupID: "core",
	Short:   "Populate the feed with synthetic messages for a demo run",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := feedstore.Open(getBaseDir())
		if err != nil {
			return fmt.Errorf("open feed store: %w", err)
		}
		defer store.Close()

		senders := []string{"amy", "bo", "cam", "dee"}
		for i := 0; i < seedCount; i++ {
			m := feedstore.Message{
				ID:        uuid.NewString(),
				Channel:   seedChannel,
				Sender:    senders[i%len(senders)],
				Body:      fmt.Sprintf("message %d", i),
				Timestamp: int64(i),
			}
			if _, err := store.Append(m); err != nil {
				return fmt.Errorf("append message %d: %w", i, err)
			}
		}
		fmt.Printf("seeded %d messages into channel %q\n", seedCount, seedChannel)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 200, "number of messages to generate")
	seedCmd.Flags().StringVar(&seedChannel, "channel", "general", "channel to seed")
	rootCmd.AddCommand(seedCmd)
}
