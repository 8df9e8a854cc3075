// Package commands implements the msgctl subcommands: key generation,
// sending, listening, and history over a relay.
package commands
