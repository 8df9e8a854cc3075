package messenger

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/buildit-network/messenger-go/event"
	"github.com/buildit-network/messenger-go/internal/crypto"
)

// timestampJitterRange bounds the random backdating applied to seal and
// gift-wrap timestamps (2 days). The rumor keeps the real timestamp; the
// outer layers are jittered independently so that relay-visible times
// cannot be correlated with message times.
const timestampJitterRange = 2 * 24 * time.Hour

// NewRumor builds the innermost, unsigned message event: a pairwise chat
// message from sender to recipient with the sender-claimed timestamp. The
// rumor carries no signature of its own; authenticity is provided by the
// seal that wraps it.
func NewRumor(senderPub, recipientPub, content string, at time.Time) (*event.Event, error) {
	rumor := &event.Event{
		PubKey:    senderPub,
		CreatedAt: at.Unix(),
		Kind:      event.KindChatMessage,
		Tags:      event.Tags{event.Recipient(recipientPub)},
		Content:   content,
	}
	id, err := rumor.ComputeID()
	if err != nil {
		return nil, &EncodingError{Message: err.Error()}
	}
	rumor.ID = id
	return rumor, nil
}

// BuildEnvelope wraps a rumor into a transport-ready gift wrap addressed
// to recipientPub.
//
// The rumor is encrypted under the conversation key of (sender, recipient)
// and signed by the sender into a seal; the seal is encrypted under the
// conversation key of a freshly generated single-use key and the recipient,
// and signed by that ephemeral key. The ephemeral secret is wiped before
// returning, so the only way to learn the author of the result is to
// decrypt and verify the seal.
func BuildEnvelope(senderSecret []byte, recipientPub string, rumor *event.Event) (*event.Event, error) {
	senderPub, err := crypto.PublicKeyHex(senderSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: sender secret key", ErrInvalidKey)
	}
	if !crypto.ValidPublicKeyHex(recipientPub) {
		return nil, fmt.Errorf("%w: recipient public key", ErrInvalidKey)
	}
	if err := validateRumor(rumor, senderPub, recipientPub); err != nil {
		return nil, err
	}

	seal, err := buildSeal(senderSecret, recipientPub, rumor)
	if err != nil {
		return nil, err
	}

	ephemeralSecret, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	defer crypto.Zero(ephemeralSecret)

	wrapKey, err := crypto.ConversationKey(ephemeralSecret, recipientPub)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient public key", ErrInvalidKey)
	}
	defer crypto.Zero(wrapKey)

	sealJSON, err := seal.Marshal()
	if err != nil {
		return nil, &EncodingError{Message: err.Error()}
	}
	sealCiphertext, err := crypto.Encrypt(wrapKey, sealJSON)
	if err != nil {
		return nil, &EncodingError{Message: err.Error()}
	}

	wrap := &event.Event{
		CreatedAt: jitteredTimestamp(time.Now()),
		Kind:      event.KindGiftWrap,
		Tags:      event.Tags{event.Recipient(recipientPub)},
		Content:   sealCiphertext,
	}
	if err := wrap.Sign(ephemeralSecret); err != nil {
		return nil, fmt.Errorf("sign gift wrap: %w", err)
	}
	return wrap, nil
}

// buildSeal encrypts the rumor under the sender/recipient conversation key
// and signs the result with the sender's key. The seal signature is the
// sole proof of authorship in the protocol.
func buildSeal(senderSecret []byte, recipientPub string, rumor *event.Event) (*event.Event, error) {
	sealKey, err := crypto.ConversationKey(senderSecret, recipientPub)
	if err != nil {
		return nil, fmt.Errorf("%w: conversation key", ErrInvalidKey)
	}
	defer crypto.Zero(sealKey)

	rumorJSON, err := rumor.Marshal()
	if err != nil {
		return nil, &EncodingError{Message: err.Error()}
	}
	rumorCiphertext, err := crypto.Encrypt(sealKey, rumorJSON)
	if err != nil {
		return nil, &EncodingError{Message: err.Error()}
	}

	// No tags on the seal: anything here would leak metadata in the event
	// a relay ever saw a seal without its wrap.
	seal := &event.Event{
		CreatedAt: jitteredTimestamp(time.Now()),
		Kind:      event.KindSeal,
		Tags:      event.Tags{},
		Content:   rumorCiphertext,
	}
	if err := seal.Sign(senderSecret); err != nil {
		return nil, fmt.Errorf("sign seal: %w", err)
	}
	return seal, nil
}

// validateRumor enforces the rumor shape before any encryption happens.
func validateRumor(rumor *event.Event, senderPub, recipientPub string) error {
	if rumor == nil {
		return &EncodingError{Message: "rumor is nil"}
	}
	if rumor.Kind != event.KindChatMessage {
		return &EncodingError{Message: fmt.Sprintf("kind %d is not a direct message", rumor.Kind)}
	}
	if rumor.Sig != "" {
		return &EncodingError{Message: "rumor must not be signed"}
	}
	if rumor.PubKey != senderPub {
		return &EncodingError{Message: "rumor author does not match sender key"}
	}
	tag, ok := rumor.Tags.First(event.TagRecipient)
	if !ok || tag.Value() == "" {
		return &EncodingError{Message: "rumor has no recipient tag"}
	}
	if tag.Value() != recipientPub {
		return &EncodingError{Message: "rumor recipient tag does not match recipient key"}
	}
	return nil
}

// jitteredTimestamp backdates t by a uniform random offset within the
// jitter range. Timestamps are only ever moved into the past so envelopes
// never appear to come from the future.
func jitteredTimestamp(t time.Time) int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// The CSPRNG failing is unrecoverable for key generation, but for
		// jitter the true timestamp is still a valid (if weaker) choice.
		return t.Unix()
	}
	offset := int64(binary.BigEndian.Uint64(buf[:]) % uint64(timestampJitterRange/time.Second))
	return t.Unix() - offset
}

// rawEnvelope is the structurally decoded outer layer of a gift wrap.
// Nothing in it is authenticated yet.
type rawEnvelope struct {
	id           string
	ephemeralPub string
	recipient    string
	ciphertext   string
	ev           *event.Event
}

// parseEnvelope performs the pure structural decode of a gift wrap with no
// cryptographic checks, so the verification protocol can apply its checks
// in a fixed order.
func parseEnvelope(ev *event.Event) (*rawEnvelope, error) {
	if ev == nil {
		return nil, fmt.Errorf("%w: nil event", ErrMalformedEnvelope)
	}
	if ev.Kind != event.KindGiftWrap {
		return nil, fmt.Errorf("%w: kind %d", ErrMalformedEnvelope, ev.Kind)
	}
	if !isHex(ev.ID, 64) {
		return nil, fmt.Errorf("%w: bad id", ErrMalformedEnvelope)
	}
	if !isHex(ev.PubKey, 64) {
		return nil, fmt.Errorf("%w: bad pubkey", ErrMalformedEnvelope)
	}
	if !isHex(ev.Sig, 128) {
		return nil, fmt.Errorf("%w: bad signature", ErrMalformedEnvelope)
	}
	if ev.Content == "" {
		return nil, fmt.Errorf("%w: empty ciphertext", ErrMalformedEnvelope)
	}
	tag, ok := ev.Tags.First(event.TagRecipient)
	if !ok || tag.Value() == "" {
		return nil, fmt.Errorf("%w: missing recipient tag", ErrMalformedEnvelope)
	}
	return &rawEnvelope{
		id:           ev.ID,
		ephemeralPub: ev.PubKey,
		recipient:    tag.Value(),
		ciphertext:   ev.Content,
		ev:           ev,
	}, nil
}

func isHex(s string, length int) bool {
	if len(s) != length {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
