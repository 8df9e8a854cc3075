package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	messenger "github.com/buildit-network/messenger-go"
)

// keygen: generate a fresh identity keypair.
func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new identity keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := messenger.GenerateSecretKey()
			if err != nil {
				return err
			}
			defer messenger.ZeroKey(secret)

			pub, err := messenger.PublicKeyOf(secret)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "secret key: %s\n", messenger.EncodeSecretKey(secret))
			fmt.Fprintf(cmd.OutOrStdout(), "public key: %s\n", pub)
			return nil
		},
	}
}
