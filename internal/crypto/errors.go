package crypto

import "errors"

var (
	// ErrInvalidSecretKeySize is returned when the secret key size is invalid.
	ErrInvalidSecretKeySize = errors.New("invalid secret key size")

	// ErrInvalidSecretKey is returned when the secret key is not a valid
	// scalar on the curve (zero or >= group order).
	ErrInvalidSecretKey = errors.New("invalid secret key")

	// ErrInvalidPublicKey is returned when a public key cannot be parsed.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidConversationKeySize is returned when a conversation key has
	// the wrong size.
	ErrInvalidConversationKeySize = errors.New("invalid conversation key size")

	// ErrInvalidSignature is returned when a signature cannot be parsed.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidPlaintextLength is returned when the plaintext is empty or
	// exceeds the maximum encodable length.
	ErrInvalidPlaintextLength = errors.New("invalid plaintext length")

	// ErrInvalidPayload is returned when an encrypted payload is structurally
	// malformed (bad base64, wrong version, too short).
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrInvalidPadding is returned when decrypted padding is inconsistent.
	ErrInvalidPadding = errors.New("invalid padding")

	// ErrDecryptionFailed is returned when MAC verification or AEAD opening
	// fails. It deliberately does not distinguish the two.
	ErrDecryptionFailed = errors.New("decryption failed")
)
