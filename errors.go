package messenger

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrInvalidKey is returned when key material is malformed. Fatal to
	// the call; never retried.
	ErrInvalidKey = errors.New("invalid key material")

	// ErrEncoding is returned when an outgoing rumor fails shape
	// validation (missing recipient tag, disallowed kind).
	ErrEncoding = errors.New("message encoding failed")

	// ErrMalformedEnvelope is returned when an incoming envelope fails
	// structural decoding before any cryptographic check.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrInvalidEnvelopeSignature is returned when the outer envelope
	// signature does not verify against its own ephemeral key. The
	// envelope was tampered with in transit.
	ErrInvalidEnvelopeSignature = errors.New("invalid envelope signature")

	// ErrUnverifiedSender is returned when the seal signature does not
	// verify against the sender key embedded in the seal. The message has
	// no trustworthy author and must be discarded.
	ErrUnverifiedSender = errors.New("unverified sender")

	// ErrDecryptionFailed is returned when an envelope layer cannot be
	// decrypted. This is the expected outcome for every envelope not
	// addressed to the local key and is treated as a filter miss, not an
	// anomaly.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrNilTransport is returned when a client is constructed without a
	// transport.
	ErrNilTransport = errors.New("transport is required")

	// ErrClientClosed is returned when operations are attempted on a
	// closed client.
	ErrClientClosed = errors.New("client has been closed")
)

// MessengerError is implemented by all SDK errors.
type MessengerError interface {
	error
	MessengerError() // marker method
}

// ReceiveStage identifies where in the verification protocol an incoming
// envelope was rejected.
type ReceiveStage string

// Stages of the verification protocol, in checking order.
const (
	StageParse        ReceiveStage = "parse"
	StageEnvelopeSig  ReceiveStage = "envelope-signature"
	StageOuterDecrypt ReceiveStage = "outer-decrypt"
	StageSealVerify   ReceiveStage = "seal-verify"
	StageInnerDecrypt ReceiveStage = "inner-decrypt"
)

// ReceiveError reports a rejected incoming envelope along with the
// verification stage that rejected it. The stage exists for the local
// caller's diagnostics only; nothing is ever reported back to the remote
// party.
type ReceiveError struct {
	Stage ReceiveStage
	Err   error
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("receive rejected at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReceiveError) Unwrap() error {
	return e.Err
}

// MessengerError implements the MessengerError interface.
func (e *ReceiveError) MessengerError() {}

// EncodingError reports an outgoing message that failed shape validation.
type EncodingError struct {
	Message string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("message encoding failed: %s", e.Message)
}

// Is implements errors.Is for sentinel error matching.
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

// MessengerError implements the MessengerError interface.
func (e *EncodingError) MessengerError() {}

// PublishError reports a transport failure while publishing an envelope.
type PublishError struct {
	EnvelopeID string
	Err        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish envelope %s: %v", e.EnvelopeID, e.Err)
}

// Unwrap returns the underlying error.
func (e *PublishError) Unwrap() error {
	return e.Err
}

// MessengerError implements the MessengerError interface.
func (e *PublishError) MessengerError() {}

// TimeoutError represents an operation that exceeded its deadline.
type TimeoutError struct {
	Operation string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out", e.Operation)
}

// MessengerError implements the MessengerError interface.
func (e *TimeoutError) MessengerError() {}

// isBenignMiss reports whether an error from Receive is the expected,
// high-frequency outcome for envelopes that simply are not for us. These
// are collapsed to "no message" on the subscription and history paths so
// that wrong-recipient and corrupt-payload cases are indistinguishable to
// the outside.
func isBenignMiss(err error) bool {
	return errors.Is(err, ErrDecryptionFailed)
}
