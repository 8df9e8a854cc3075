package event

// Event kinds used by the private messaging protocol.
const (
	// KindSeal is the middle layer: an encrypted rumor signed by the true
	// sender. The seal signature is the only proof of authorship.
	KindSeal = 13

	// KindChatMessage is the innermost, unsigned pairwise text message
	// (the rumor).
	KindChatMessage = 14

	// KindGiftWrap is the outer transport envelope: an encrypted seal
	// signed by a single-use ephemeral key.
	KindGiftWrap = 1059
)

// TagRecipient is the tag name referencing a recipient public key.
const TagRecipient = "p"
