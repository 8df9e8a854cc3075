package messenger

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultWaitTimeout = 60 * time.Second

// clientConfig holds configuration for the client.
type clientConfig struct {
	logger *zap.Logger
}

// subscribeConfig holds configuration for live subscriptions.
type subscribeConfig struct {
	since time.Time
}

// historyConfig holds configuration for history loads.
type historyConfig struct {
	since time.Time
	until time.Time
	limit int
}

// waitConfig holds configuration for waiting on messages.
type waitConfig struct {
	from      string
	contains  string
	predicate func(*DirectMessage) bool
	timeout   time.Duration
}

// Matches reports whether a message satisfies all wait criteria.
func (c *waitConfig) Matches(msg *DirectMessage) bool {
	if c.from != "" && msg.From.String() != c.from {
		return false
	}
	if c.contains != "" && !strings.Contains(msg.Content, c.contains) {
		return false
	}
	if c.predicate != nil && !c.predicate(msg) {
		return false
	}
	return true
}

// Option configures the client.
type Option func(*clientConfig)

// SubscribeOption configures a live message subscription.
type SubscribeOption func(*subscribeConfig)

// HistoryOption configures a conversation history load.
type HistoryOption func(*historyConfig)

// WaitOption configures message waiting.
type WaitOption func(*waitConfig)

// WithLogger sets the logger used for subscription and history
// diagnostics. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithSince limits a subscription to envelopes created at or after t.
// The transport filter is widened by the envelope timestamp jitter so
// backdated envelopes are not missed.
func WithSince(t time.Time) SubscribeOption {
	return func(c *subscribeConfig) {
		c.since = t
	}
}

// WithHistorySince limits a history load to envelopes at or after t.
func WithHistorySince(t time.Time) HistoryOption {
	return func(c *historyConfig) {
		c.since = t
	}
}

// WithHistoryUntil limits a history load to envelopes before t.
func WithHistoryUntil(t time.Time) HistoryOption {
	return func(c *historyConfig) {
		c.until = t
	}
}

// WithHistoryLimit caps the number of envelopes fetched from the
// transport. The cap applies to envelopes, not decrypted messages: some
// fetched envelopes may not decrypt for the local key.
func WithHistoryLimit(n int) HistoryOption {
	return func(c *historyConfig) {
		c.limit = n
	}
}

// WithWaitTimeout sets the maximum time to wait for a message.
// Default: 60 seconds.
func WithWaitTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.timeout = d
	}
}

// WithFrom waits only for messages from the given sender public key.
func WithFrom(pubkey string) WaitOption {
	return func(c *waitConfig) {
		c.from = pubkey
	}
}

// WithContentContains waits only for messages whose content contains the
// given substring.
func WithContentContains(s string) WaitOption {
	return func(c *waitConfig) {
		c.contains = s
	}
}

// WithPredicate waits only for messages matching a custom predicate.
func WithPredicate(fn func(*DirectMessage) bool) WaitOption {
	return func(c *waitConfig) {
		c.predicate = fn
	}
}
