package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	messenger "github.com/buildit-network/messenger-go"
)

// send <recipient> <message>: wrap and publish a direct message.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <recipient-pubkey> <message>",
		Short: "Send an encrypted direct message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipient, content := args[0], args[1]

			secret, _, err := loadIdentity()
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

			published, err := client.SendDirectMessage(cmd.Context(), recipient, content, secret)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sent envelope %s\n", published.ID)
			return nil
		},
	}
}
