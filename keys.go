package messenger

import (
	"encoding/hex"
	"fmt"

	"github.com/buildit-network/messenger-go/internal/crypto"
)

// GenerateSecretKey returns a fresh 32-byte secp256k1 secret key. Callers
// own the bytes and should wipe them with ZeroKey when done.
func GenerateSecretKey() ([]byte, error) {
	return crypto.GeneratePrivateKey()
}

// PublicKeyOf derives the 64-character hex public key for a secret key.
func PublicKeyOf(secretKey []byte) (string, error) {
	pub, err := crypto.PublicKeyHex(secretKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return pub, nil
}

// DecodeSecretKey parses a hex-encoded secret key.
func DecodeSecretKey(s string) ([]byte, error) {
	secret, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: not hex", ErrInvalidKey)
	}
	if _, err := crypto.PublicKeyHex(secret); err != nil {
		crypto.Zero(secret)
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return secret, nil
}

// EncodeSecretKey renders a secret key as hex for storage.
func EncodeSecretKey(secretKey []byte) string {
	return hex.EncodeToString(secretKey)
}

// ValidPublicKey reports whether s is a plausible public key: 64 hex
// characters naming a point on the curve.
func ValidPublicKey(s string) bool {
	return crypto.ValidPublicKeyHex(s)
}

// ZeroKey wipes key material in place.
func ZeroKey(secretKey []byte) {
	crypto.Zero(secretKey)
}
