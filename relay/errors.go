package relay

import "errors"

var (
	// ErrMalformedMessage reports a wire message that does not follow the
	// relay protocol framing.
	ErrMalformedMessage = errors.New("relay: malformed message")

	// ErrClosed is returned by operations on a closed client.
	ErrClosed = errors.New("relay: client closed")

	// ErrRejected is returned when the relay refuses a published event.
	ErrRejected = errors.New("relay: event rejected")

	// ErrSubscriptionClosed is returned when the relay terminates a
	// subscription before end-of-stored-events.
	ErrSubscriptionClosed = errors.New("relay: subscription closed")
)
