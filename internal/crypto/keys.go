package crypto

import (
	"crypto/subtle"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// GeneratePrivateKey creates a new random secp256k1 private scalar.
func GeneratePrivateKey() ([]byte, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	defer priv.Zero()
	return priv.Serialize(), nil
}

// PublicKeyHex returns the x-only public key for a private scalar as a
// 64-character hex string.
func PublicKeyHex(secretKey []byte) (string, error) {
	priv, err := parseSecretKey(secretKey)
	if err != nil {
		return "", err
	}
	defer priv.Zero()
	return hex.EncodeToString(schnorr.SerializePubKey(priv.PubKey())), nil
}

// parseSecretKey validates and parses a 32-byte private scalar.
func parseSecretKey(secretKey []byte) (*secp256k1.PrivateKey, error) {
	if len(secretKey) != SecretKeySize {
		return nil, ErrInvalidSecretKeySize
	}
	priv := secp256k1.PrivKeyFromBytes(secretKey)
	if priv.Key.IsZero() {
		priv.Zero()
		return nil, ErrInvalidSecretKey
	}
	return priv, nil
}

// parsePublicKey parses a 64-character hex x-only public key. The y parity
// is not carried by the encoding, so the even-y candidate is tried first and
// the odd-y candidate second.
func parsePublicKey(publicKeyHex string) (*secp256k1.PublicKey, error) {
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(raw) != PublicKeySize {
		return nil, ErrInvalidPublicKey
	}

	compressed := make([]byte, 0, PublicKeySize+1)
	compressed = append(compressed, secp256k1.PubKeyFormatCompressedEven)
	compressed = append(compressed, raw...)
	if pub, err := secp256k1.ParsePubKey(compressed); err == nil {
		return pub, nil
	}

	compressed[0] = secp256k1.PubKeyFormatCompressedOdd
	pub, err := secp256k1.ParsePubKey(compressed)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	return pub, nil
}

// ValidPublicKeyHex reports whether s encodes a valid x-only public key.
func ValidPublicKeyHex(s string) bool {
	_, err := parsePublicKey(s)
	return err == nil
}

// SignDigest produces a 64-byte BIP-340 Schnorr signature over a 32-byte
// digest.
func SignDigest(secretKey []byte, digest [32]byte) ([]byte, error) {
	priv, err := parseSecretKey(secretKey)
	if err != nil {
		return nil, err
	}
	defer priv.Zero()

	sig, err := schnorr.Sign(priv, digest[:])
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

// VerifyDigest checks a BIP-340 Schnorr signature over a 32-byte digest
// against an x-only public key given as hex.
func VerifyDigest(publicKeyHex string, digest [32]byte, signature []byte) bool {
	if len(signature) != SignatureSize {
		return false
	}
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(raw) != PublicKeySize {
		return false
	}
	pub, err := schnorr.ParsePubKey(raw)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(digest[:], pub)
}

// Zero overwrites key material with zeros. Callers use it to bound the
// lifetime of secrets they no longer need.
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	zero := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zero)
}
