package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	messenger "github.com/buildit-network/messenger-go"
)

// history: fetch and print stored direct messages, oldest first.
func historyCmd() *cobra.Command {
	var (
		limit      int
		sinceHours int
		byConvo    bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Fetch stored direct messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, pub, err := loadIdentity()
			if err != nil {
				return err
			}
			defer messenger.ZeroKey(secret)

			client, rc, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer rc.Close()
			defer client.Close()

			var opts []messenger.HistoryOption
			if limit > 0 {
				opts = append(opts, messenger.WithHistoryLimit(limit))
			}
			if sinceHours > 0 {
				opts = append(opts, messenger.WithHistorySince(time.Now().Add(-time.Duration(sinceHours)*time.Hour)))
			}

			if byConvo {
				conversations, err := client.GetConversations(cmd.Context(), pub, secret, opts...)
				if err != nil {
					return err
				}
				for _, conv := range conversations {
					last := conv.LastMessage
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %d unread  last %s: %s\n",
						conv.ID[:12], conv.UnreadCount,
						last.Timestamp.Local().Format(time.RFC3339), last.Content)
				}
				return nil
			}

			messages, err := client.LoadConversationHistory(cmd.Context(), pub, secret, opts...)
			if err != nil {
				return err
			}
			for _, msg := range messages {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n",
					msg.Timestamp.Local().Format(time.RFC3339), msg.From, msg.Content)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of envelopes to fetch")
	cmd.Flags().IntVar(&sinceHours, "since", 0, "only messages from the last N hours")
	cmd.Flags().BoolVar(&byConvo, "conversations", false, "summarize by conversation instead of listing messages")
	return cmd
}
