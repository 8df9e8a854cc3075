package crypto

const (
	// SecretKeySize is the size of a secp256k1 private scalar in bytes.
	SecretKeySize = 32
	// PublicKeySize is the size of an x-only secp256k1 public key in bytes.
	PublicKeySize = 32
	// SignatureSize is the size of a BIP-340 Schnorr signature in bytes.
	SignatureSize = 64
	// ConversationKeySize is the size of a derived conversation key in bytes.
	ConversationKeySize = 32

	// payloadVersion is the version byte prefixed to every encrypted payload.
	payloadVersion = 2

	// nonceSize is the size of the random nonce carried in the payload.
	// It seeds the per-message HKDF expansion.
	nonceSize = 32
	// cipherKeySize is the ChaCha20-Poly1305 key size in bytes.
	cipherKeySize = 32
	// cipherNonceSize is the ChaCha20-Poly1305 nonce size in bytes.
	cipherNonceSize = 12
	// macSize is the size of the HMAC-SHA256 tag in bytes.
	macSize = 32
	// cipherOverhead is the Poly1305 tag appended by the AEAD.
	cipherOverhead = 16

	// MinPlaintextSize and MaxPlaintextSize bound the unpadded plaintext.
	MinPlaintextSize = 1
	MaxPlaintextSize = 65535

	// minPaddedSize is the smallest padded plaintext: 2-byte length prefix
	// plus the 32-byte minimum pad block.
	minPaddedSize = 2 + 32

	// minPayloadSize is the smallest valid decoded payload:
	// version || nonce || AEAD(minPadded) || mac.
	minPayloadSize = 1 + nonceSize + minPaddedSize + cipherOverhead + macSize
)

// conversationKeySalt is the HKDF salt for conversation-key extraction and
// the info string for per-message key expansion. Both sides must agree on it
// for the derivation to be symmetric.
var conversationKeySalt = []byte("nip44-v2")
