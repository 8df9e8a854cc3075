package event

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buildit-network/messenger-go/internal/crypto"
)

// Tag is an ordered list of strings; the first element is the tag name.
type Tag []string

// Tags is the ordered tag list of an event.
type Tags []Tag

// First returns the first tag with the given name.
func (ts Tags) First(name string) (Tag, bool) {
	for _, t := range ts {
		if len(t) > 0 && t[0] == name {
			return t, true
		}
	}
	return nil, false
}

// Value returns the tag's first value, or "" if it has none.
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Recipient builds a recipient-reference tag for a public key.
func Recipient(publicKey string) Tag {
	return Tag{TagRecipient, publicKey}
}

// Recipient returns the public key from the first recipient tag, or ""
// if the event has none.
func (ts Tags) Recipient() string {
	if t, ok := ts.First(TagRecipient); ok {
		return t.Value()
	}
	return ""
}

// Event is a generic signed event. A Rumor is an Event with an empty Sig;
// Seal and GiftWrap are signed Events whose Content carries ciphertext.
type Event struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      int    `json:"kind"`
	Tags      Tags   `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

// ErrMissingPubKey is returned when an event is serialized or signed
// without an author public key.
var ErrMissingPubKey = errors.New("event has no pubkey")

// Serialize produces the canonical byte form the event ID is derived from:
// a JSON array [0, pubkey, created_at, kind, tags, content]. HTML escaping
// is disabled so the encoding is stable across implementations.
func (e *Event) Serialize() ([]byte, error) {
	if e.PubKey == "" {
		return nil, ErrMissingPubKey
	}
	tags := e.Tags
	if tags == nil {
		tags = Tags{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]any{0, e.PubKey, e.CreatedAt, e.Kind, tags, e.Content}); err != nil {
		return nil, fmt.Errorf("serialize event: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ComputeID returns the hex SHA-256 digest of the canonical serialization.
func (e *Event) ComputeID() (string, error) {
	digest, err := e.digest()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(digest[:]), nil
}

func (e *Event) digest() ([32]byte, error) {
	serialized, err := e.Serialize()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(serialized), nil
}

// Sign derives the author public key from the secret key, computes the
// event ID, and signs it. PubKey, ID, and Sig are overwritten.
func (e *Event) Sign(secretKey []byte) error {
	pub, err := crypto.PublicKeyHex(secretKey)
	if err != nil {
		return err
	}
	e.PubKey = pub

	digest, err := e.digest()
	if err != nil {
		return err
	}
	e.ID = hex.EncodeToString(digest[:])

	sig, err := crypto.SignDigest(secretKey, digest)
	if err != nil {
		return err
	}
	e.Sig = hex.EncodeToString(sig)
	return nil
}

// Verify reports whether the event ID matches its content and the
// signature verifies against the event's own PubKey. It proves the event
// was authored by the holder of PubKey and nothing more.
func (e *Event) Verify() bool {
	digest, err := e.digest()
	if err != nil {
		return false
	}
	if e.ID != hex.EncodeToString(digest[:]) {
		return false
	}
	sig, err := hex.DecodeString(e.Sig)
	if err != nil {
		return false
	}
	return crypto.VerifyDigest(e.PubKey, digest, sig)
}

// Marshal encodes the event as JSON for embedding in an encrypted layer or
// sending on the wire.
func (e *Event) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal decodes an event from JSON.
func Unmarshal(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &e, nil
}
