package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	messenger "github.com/buildit-network/messenger-go"
)

// listen: stream incoming direct messages until interrupted.
func listenCmd() *cobra.Command {
	var sinceHours int

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print incoming direct messages as they arrive",
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

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var opts []messenger.SubscribeOption
			if sinceHours > 0 {
				opts = append(opts, messenger.WithSince(time.Now().Add(-time.Duration(sinceHours)*time.Hour)))
			}

			sub, err := client.SubscribeToDirectMessages(ctx, pub, secret, func(msg *messenger.DirectMessage) {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n",
					msg.Timestamp.Local().Format(time.RFC3339), msg.From, msg.Content)
			}, opts...)
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			fmt.Fprintf(cmd.OutOrStdout(), "listening as %s\n", pub)
			<-ctx.Done()
			if err := ctx.Err(); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&sinceHours, "since", 0, "also replay messages from the last N hours")
	return cmd
}
