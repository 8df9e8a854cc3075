package relay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/buildit-network/messenger-go/event"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPublishAck   = 10 * time.Second
)

// Option configures a relay client.
type Option func(*config)

type config struct {
	logger       *zap.Logger
	writeTimeout time.Duration
	publishAck   time.Duration
}

// WithLogger sets the logger used for connection and protocol diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithWriteTimeout bounds each websocket write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithPublishAckTimeout bounds how long Publish waits for the relay's OK
// acknowledgement.
func WithPublishAckTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.publishAck = d
		}
	}
}

// subscription tracks one live REQ on the wire.
type subscription struct {
	handler func(*event.Event)

	// eose is closed when the relay signals end of stored events. Query
	// waits on it; live subscriptions ignore it.
	eose     chan struct{}
	eoseOnce sync.Once

	// closed is closed when the relay terminates the subscription.
	closed     chan struct{}
	closedOnce sync.Once
	reason     string
}

func (s *subscription) markEOSE() {
	s.eoseOnce.Do(func() { close(s.eose) })
}

func (s *subscription) markClosed(reason string) {
	s.closedOnce.Do(func() {
		s.reason = reason
		close(s.closed)
	})
}

// Client is a websocket connection to a single relay. It is safe for
// concurrent use and satisfies the messenger Transport interface.
type Client struct {
	url  string
	conn *websocket.Conn
	log  *zap.Logger

	writeTimeout time.Duration
	publishAck   time.Duration

	writeMu sync.Mutex

	subMu sync.Mutex
	subs  map[string]*subscription

	ackMu sync.Mutex
	acks  map[string]chan *serverMessage

	nextSub atomic.Uint64

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the relay at url and starts the read loop.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	cfg := &config{
		logger:       zap.NewNop(),
		writeTimeout: defaultWriteTimeout,
		publishAck:   defaultPublishAck,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("relay: dial %s: %w", url, err)
	}

	c := &Client{
		url:          url,
		conn:         conn,
		log:          cfg.logger,
		writeTimeout: cfg.writeTimeout,
		publishAck:   cfg.publishAck,
		subs:         make(map[string]*subscription),
		acks:         make(map[string]chan *serverMessage),
		done:         make(chan struct{}),
	}
	go c.readLoop()

	c.log.Debug("relay connected", zap.String("url", url))
	return c, nil
}

// Publish sends the event and waits for the relay's acknowledgement.
func (c *Client) Publish(ctx context.Context, ev *event.Event) error {
	data, err := encodeEvent(ev)
	if err != nil {
		return fmt.Errorf("relay: encode event: %w", err)
	}

	ack := make(chan *serverMessage, 1)
	c.ackMu.Lock()
	c.acks[ev.ID] = ack
	c.ackMu.Unlock()
	defer func() {
		c.ackMu.Lock()
		delete(c.acks, ev.ID)
		c.ackMu.Unlock()
	}()

	if err := c.write(data); err != nil {
		return err
	}

	timer := time.NewTimer(c.publishAck)
	defer timer.Stop()

	select {
	case msg := <-ack:
		if !msg.Accepted {
			return fmt.Errorf("%w: %s", ErrRejected, msg.Reason)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("relay: publish %s: no acknowledgement", ev.ID)
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// Subscribe opens a long-lived subscription for events matching filters.
// The handler is invoked from the read loop for every matching event,
// including stored events replayed before end-of-stored-events. The
// returned function cancels the subscription.
func (c *Client) Subscribe(ctx context.Context, filters []event.Filter, handler func(*event.Event)) (func(), error) {
	subID := c.newSubID()
	sub := &subscription{
		handler: handler,
		eose:    make(chan struct{}),
		closed:  make(chan struct{}),
	}

	c.subMu.Lock()
	c.subs[subID] = sub
	c.subMu.Unlock()

	data, err := encodeReq(subID, filters)
	if err != nil {
		c.dropSub(subID)
		return nil, fmt.Errorf("relay: encode request: %w", err)
	}
	if err := c.write(data); err != nil {
		c.dropSub(subID)
		return nil, err
	}

	unsub := func() {
		c.dropSub(subID)
		if data, err := encodeClose(subID); err == nil {
			_ = c.write(data)
		}
	}
	return unsub, nil
}

// Query fetches stored events matching filters: it opens a subscription,
// collects events until the relay signals end of stored events, then
// closes the subscription.
func (c *Client) Query(ctx context.Context, filters []event.Filter) ([]*event.Event, error) {
	var (
		mu     sync.Mutex
		events []*event.Event
	)

	subID := c.newSubID()
	sub := &subscription{
		handler: func(ev *event.Event) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		},
		eose:   make(chan struct{}),
		closed: make(chan struct{}),
	}

	c.subMu.Lock()
	c.subs[subID] = sub
	c.subMu.Unlock()
	defer func() {
		c.dropSub(subID)
		if data, err := encodeClose(subID); err == nil {
			_ = c.write(data)
		}
	}()

	data, err := encodeReq(subID, filters)
	if err != nil {
		return nil, fmt.Errorf("relay: encode request: %w", err)
	}
	if err := c.write(data); err != nil {
		return nil, err
	}

	select {
	case <-sub.eose:
		mu.Lock()
		defer mu.Unlock()
		return events, nil
	case <-sub.closed:
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionClosed, sub.reason)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Close terminates the connection. Pending Publish and Query calls return
// ErrClosed.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.writeTimeout))
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *Client) newSubID() string {
	return fmt.Sprintf("sub%d", c.nextSub.Add(1))
}

func (c *Client) dropSub(subID string) {
	c.subMu.Lock()
	delete(c.subs, subID)
	c.subMu.Unlock()
}

// write serializes websocket writes; gorilla connections allow a single
// concurrent writer.
func (c *Client) write(data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("relay: write: %w", err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer func() {
		c.subMu.Lock()
		for id, sub := range c.subs {
			sub.markClosed("connection lost")
			delete(c.subs, id)
		}
		c.subMu.Unlock()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.Warn("relay read failed", zap.String("url", c.url), zap.Error(err))
			}
			return
		}

		msg, err := decodeMessage(data)
		if err != nil {
			c.log.Debug("relay sent unparseable message", zap.Error(err))
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg *serverMessage) {
	switch msg.Label {
	case labelEvent:
		c.subMu.Lock()
		sub := c.subs[msg.SubID]
		c.subMu.Unlock()
		if sub != nil {
			sub.handler(msg.Event)
		}

	case labelEOSE:
		c.subMu.Lock()
		sub := c.subs[msg.SubID]
		c.subMu.Unlock()
		if sub != nil {
			sub.markEOSE()
		}

	case labelOK:
		c.ackMu.Lock()
		ack := c.acks[msg.EventID]
		c.ackMu.Unlock()
		if ack != nil {
			select {
			case ack <- msg:
			default:
			}
		}

	case labelClosed:
		c.subMu.Lock()
		sub := c.subs[msg.SubID]
		delete(c.subs, msg.SubID)
		c.subMu.Unlock()
		if sub != nil {
			sub.markClosed(msg.Reason)
		}

	case labelNotice:
		c.log.Info("relay notice", zap.String("url", c.url), zap.String("message", msg.Reason))
	}
}
