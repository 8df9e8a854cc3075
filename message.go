package messenger

import "time"

// VerifiedKey is a sender public key that was authenticated by a seal
// signature. It is a distinct type so the transport-facing ephemeral key
// can never be handed to callers as an author: only the verification
// protocol produces values of this type.
type VerifiedKey string

// String returns the key as 64-character hex.
func (k VerifiedKey) String() string { return string(k) }

// DirectMessage is a fully verified, decrypted message as seen by the
// receiver.
type DirectMessage struct {
	// ID is the envelope identifier from the gift wrap.
	ID string
	// From is the author public key, proven by the seal signature. It is
	// never taken from the outer envelope.
	From VerifiedKey
	// To is the recipient public key from the rumor's recipient tag.
	To string
	// Content is the plaintext message body.
	Content string
	// Timestamp is the sender-claimed creation time from the rumor. The
	// outer layers carry independently jittered timestamps instead.
	Timestamp time.Time
	// ConversationID groups the message with its pairwise conversation.
	ConversationID string
	// Decrypted is true for every message produced by the verification
	// protocol.
	Decrypted bool
	// Read marks messages the local user has seen; it feeds the unread
	// count when folding conversations.
	Read bool
}

// Conversation is the derived, local-only view of a pairwise message
// history. It is never transmitted or signed.
type Conversation struct {
	// ID is the order-independent conversation identifier.
	ID string
	// Participants are the two parties' public keys, sorted.
	Participants [2]string
	// LastMessage is the most recent message by sender-claimed timestamp.
	LastMessage *DirectMessage
	// UnreadCount is the number of messages not yet marked read.
	UnreadCount int
}

// PublishedEnvelope describes an envelope that was accepted by the
// transport.
type PublishedEnvelope struct {
	// ID is the gift wrap's content-derived identifier.
	ID string
	// Recipient is the public key the envelope is addressed to.
	Recipient string
	// SentAt is the rumor timestamp carried inside the envelope.
	SentAt time.Time
}
