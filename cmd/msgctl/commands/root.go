package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	messenger "github.com/buildit-network/messenger-go"
	"github.com/buildit-network/messenger-go/relay"
)

// Environment variables read on startup; flags take precedence.
const (
	envRelayURL  = "MSGCTL_RELAY_URL"
	envSecretKey = "MSGCTL_SECRET_KEY"
)

var (
	relayURL  string
	secretHex string
	verbose   bool

	logger *zap.Logger
)

// Execute runs the msgctl command tree.
func Execute() error {
	root := &cobra.Command{
		Use:           "msgctl",
		Short:         "Private direct messages over public relays",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine; the environment may be set directly.
			_ = godotenv.Load()

			if relayURL == "" {
				relayURL = os.Getenv(envRelayURL)
			}
			if secretHex == "" {
				secretHex = os.Getenv(envSecretKey)
			}

			var err error
			if verbose {
				logger, err = zap.NewDevelopment()
			} else {
				logger = zap.NewNop()
			}
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay websocket URL (or "+envRelayURL+")")
	root.PersistentFlags().StringVar(&secretHex, "key", "", "secret key as hex (or "+envSecretKey+")")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(keygenCmd(), sendCmd(), listenCmd(), historyCmd())
	return root.Execute()
}

// loadIdentity decodes the configured secret key and derives its public
// key.
func loadIdentity() ([]byte, string, error) {
	if secretHex == "" {
		return nil, "", fmt.Errorf("secret key required (--key or %s)", envSecretKey)
	}
	secret, err := messenger.DecodeSecretKey(secretHex)
	if err != nil {
		return nil, "", err
	}
	pub, err := messenger.PublicKeyOf(secret)
	if err != nil {
		messenger.ZeroKey(secret)
		return nil, "", err
	}
	return secret, pub, nil
}

// connect dials the relay and builds a messaging client on top of it.
// The caller must close both.
func connect(ctx context.Context) (*messenger.Client, *relay.Client, error) {
	if relayURL == "" {
		return nil, nil, fmt.Errorf("relay URL required (--relay or %s)", envRelayURL)
	}
	rc, err := relay.Dial(ctx, relayURL, relay.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	client, err := messenger.New(rc, messenger.WithLogger(logger))
	if err != nil {
		rc.Close()
		return nil, nil, err
	}
	return client, rc, nil
}
