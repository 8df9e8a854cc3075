package crypto

import (
	"crypto/sha256"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/hkdf"
)

// ConversationKey derives the symmetric key for the ordered pair
// (secretKey, publicKeyHex) via an ECDH exchange followed by an HKDF
// extraction. The derivation is commutative:
//
//	ConversationKey(skA, pkB) == ConversationKey(skB, pkA)
//
// so both sides of a conversation arrive at the same 32-byte key.
func ConversationKey(secretKey []byte, publicKeyHex string) ([]byte, error) {
	priv, err := parseSecretKey(secretKey)
	if err != nil {
		return nil, err
	}
	defer priv.Zero()

	pub, err := parsePublicKey(publicKeyHex)
	if err != nil {
		return nil, err
	}

	// x-coordinate of the shared point only (RFC 5903).
	shared := secp256k1.GenerateSharedSecret(priv, pub)
	defer Zero(shared)

	key := make([]byte, ConversationKeySize)
	prk := hkdf.Extract(sha256.New, shared, conversationKeySalt)
	defer Zero(prk)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, nil), key); err != nil {
		return nil, err
	}
	return key, nil
}
