package messenger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/buildit-network/messenger-go/event"
	"github.com/buildit-network/messenger-go/internal/crypto"
)

// Transport is the relay network the client publishes to and receives
// from. The core never relies on transport-level ordering guarantees.
type Transport interface {
	// Publish sends a signed event to the network.
	Publish(ctx context.Context, ev *event.Event) error

	// Subscribe registers a handler for events matching the filters and
	// returns an unsubscribe function. Delivery is asynchronous.
	Subscribe(ctx context.Context, filters []event.Filter, handler func(*event.Event)) (func(), error)

	// Query fetches stored events matching the filters.
	Query(ctx context.Context, filters []event.Filter) ([]*event.Event, error)
}

// Client sends and receives private direct messages over a Transport.
// All methods are safe for concurrent use. The client never stores
// private keys between calls; subscriptions hold a caller-scoped copy
// that is wiped on unsubscribe.
type Client struct {
	transport Transport
	log       *zap.Logger
	subs      *subscriptionManager

	mu     sync.RWMutex
	closed bool
}

// New creates a messaging client on top of a transport.
func New(transport Transport, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}

	cfg := &clientConfig{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		transport: transport,
		log:       cfg.logger,
		subs:      newSubscriptionManager(),
	}, nil
}

// checkClosed returns ErrClientClosed if the client has been closed.
func (c *Client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// SendDirectMessage encrypts content for recipientPub, wraps it in a
// fresh envelope, and publishes it. The sender secret is borrowed for the
// duration of the call only.
func (c *Client) SendDirectMessage(ctx context.Context, recipientPub, content string, senderSecret []byte) (*PublishedEnvelope, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if content == "" {
		return nil, &EncodingError{Message: "empty message content"}
	}

	senderPub, err := crypto.PublicKeyHex(senderSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: sender secret key", ErrInvalidKey)
	}

	sentAt := time.Now().UTC().Truncate(time.Second)
	rumor, err := NewRumor(senderPub, recipientPub, content, sentAt)
	if err != nil {
		return nil, err
	}

	env, err := BuildEnvelope(senderSecret, recipientPub, rumor)
	if err != nil {
		return nil, err
	}

	if err := c.transport.Publish(ctx, env); err != nil {
		return nil, &PublishError{EnvelopeID: env.ID, Err: err}
	}

	c.log.Debug("published direct message envelope",
		zap.String("envelope_id", env.ID))

	return &PublishedEnvelope{
		ID:        env.ID,
		Recipient: recipientPub,
		SentAt:    sentAt,
	}, nil
}

// ReceiveDirectMessage unwraps a single envelope. Envelopes that cannot
// be decrypted are a normal filter miss and yield (nil, nil); structural
// and security rejections are returned for the caller's diagnostics.
func (c *Client) ReceiveDirectMessage(ev *event.Event, recipientSecret []byte) (*DirectMessage, error) {
	msg, err := Receive(ev, recipientSecret)
	if err != nil {
		if isBenignMiss(err) {
			return nil, nil
		}
		c.logRejection(err)
		return nil, err
	}
	return msg, nil
}

// SubscribeToDirectMessages delivers verified messages addressed to myPub
// as they arrive. Envelopes that fail verification are skipped without
// aborting the stream. The recipient secret is copied into the
// subscription and wiped when it is unsubscribed.
func (c *Client) SubscribeToDirectMessages(ctx context.Context, myPub string, mySecret []byte, onMessage func(*DirectMessage), opts ...SubscribeOption) (*Subscription, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if onMessage == nil {
		return nil, errors.New("onMessage callback is required")
	}
	if err := checkIdentity(myPub, mySecret); err != nil {
		return nil, err
	}

	cfg := &subscribeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	filter := event.Filter{
		Kinds:      []int{event.KindGiftWrap},
		Recipients: []string{myPub},
	}
	if !cfg.since.IsZero() {
		// Envelope timestamps are jittered into the past, so the window
		// must open earlier than the caller asked for.
		since := cfg.since.Add(-timestampJitterRange).Unix()
		filter.Since = &since
	}

	secret := make([]byte, len(mySecret))
	copy(secret, mySecret)

	sub := c.subs.add(nil, secret)
	handler := func(ev *event.Event) {
		if !sub.active.Load() {
			return
		}
		msg, err := Receive(ev, secret)
		if err != nil {
			c.logRejection(err)
			return
		}
		if msg == nil {
			return
		}
		onMessage(msg)
	}

	unsub, err := c.transport.Subscribe(ctx, []event.Filter{filter}, handler)
	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	sub.transport = unsub

	return sub, nil
}

// LoadConversationHistory fetches stored envelopes addressed to myPub and
// returns the messages that decrypt and verify, oldest first. Each
// envelope is processed independently; one bad envelope never aborts the
// batch, it is simply not a message for us.
func (c *Client) LoadConversationHistory(ctx context.Context, myPub string, mySecret []byte, opts ...HistoryOption) ([]*DirectMessage, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if err := checkIdentity(myPub, mySecret); err != nil {
		return nil, err
	}

	cfg := &historyConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	filter := event.Filter{
		Kinds:      []int{event.KindGiftWrap},
		Recipients: []string{myPub},
		Limit:      cfg.limit,
	}
	if !cfg.since.IsZero() {
		since := cfg.since.Add(-timestampJitterRange).Unix()
		filter.Since = &since
	}
	if !cfg.until.IsZero() {
		until := cfg.until.Unix()
		filter.Until = &until
	}

	envelopes, err := c.transport.Query(ctx, []event.Filter{filter})
	if err != nil {
		return nil, err
	}

	messages := make([]*DirectMessage, 0, len(envelopes))
	for _, env := range envelopes {
		msg, err := Receive(env, mySecret)
		if err != nil {
			c.logRejection(err)
			continue
		}
		if msg == nil {
			continue
		}
		messages = append(messages, msg)
	}

	sortMessagesAscending(messages)
	return messages, nil
}

// GetConversations loads the message history and folds it into
// conversations, newest first.
func (c *Client) GetConversations(ctx context.Context, myPub string, mySecret []byte, opts ...HistoryOption) ([]*Conversation, error) {
	messages, err := c.LoadConversationHistory(ctx, myPub, mySecret, opts...)
	if err != nil {
		return nil, err
	}
	return FoldConversations(messages), nil
}

// WaitForMessage blocks until a message matching the criteria arrives or
// the timeout elapses. Stored envelopes are checked first, so a message
// that arrived before the call is still found.
func (c *Client) WaitForMessage(ctx context.Context, myPub string, mySecret []byte, opts ...WaitOption) (*DirectMessage, error) {
	cfg := &waitConfig{
		timeout: defaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	// Subscribe first to avoid a gap between the history check and the
	// live stream.
	found := make(chan *DirectMessage, 16)
	sub, err := c.SubscribeToDirectMessages(ctx, myPub, mySecret, func(msg *DirectMessage) {
		select {
		case found <- msg:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	existing, err := c.LoadConversationHistory(ctx, myPub, mySecret)
	if err != nil {
		return nil, err
	}
	for _, msg := range existing {
		if cfg.Matches(msg) {
			return msg, nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, &TimeoutError{Operation: "wait for message"}
			}
			return nil, ctx.Err()
		case msg := <-found:
			if msg != nil && cfg.Matches(msg) {
				return msg, nil
			}
		}
	}
}

// Close tears down all subscriptions and marks the client unusable.
// Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.subs.clear()
	return nil
}

// logRejection records rejected envelopes for local diagnostics. The
// taxonomy matters: tampered or forged envelopes are security-relevant,
// structural garbage is noise, and decryption misses are the everyday
// outcome for envelopes addressed to someone else and are not logged at
// all. Nothing is ever reported back to the sender.
func (c *Client) logRejection(err error) {
	switch {
	case errors.Is(err, ErrInvalidEnvelopeSignature):
		c.log.Warn("envelope rejected: outer signature invalid", zap.Error(err))
	case errors.Is(err, ErrUnverifiedSender):
		c.log.Warn("envelope rejected: sender unverifiable", zap.Error(err))
	case errors.Is(err, ErrMalformedEnvelope):
		c.log.Debug("envelope rejected: malformed", zap.Error(err))
	case isBenignMiss(err):
		// Not addressed to us. Expected, frequent, and deliberately
		// indistinguishable from a corrupt payload.
	default:
		c.log.Debug("envelope rejected", zap.Error(err))
	}
}

// checkIdentity verifies that the claimed public key belongs to the
// provided secret key, so messages are never filtered for one identity
// and decrypted with another.
func checkIdentity(pub string, secret []byte) error {
	derived, err := crypto.PublicKeyHex(secret)
	if err != nil {
		return fmt.Errorf("%w: secret key", ErrInvalidKey)
	}
	if derived != pub {
		return fmt.Errorf("%w: public key does not match secret key", ErrInvalidKey)
	}
	return nil
}
