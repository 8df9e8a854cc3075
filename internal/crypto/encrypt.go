package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// messageKeys holds the per-message key material expanded from a
// conversation key and a payload nonce.
type messageKeys struct {
	cipherKey   []byte
	cipherNonce []byte
	macKey      []byte
}

// deriveMessageKeys expands a conversation key and nonce into the cipher
// key, cipher nonce, and MAC key for a single payload.
func deriveMessageKeys(conversationKey, nonce []byte) (*messageKeys, []byte, error) {
	material := make([]byte, cipherKeySize+cipherNonceSize+macSize)
	prk := hkdf.Extract(sha256.New, conversationKey, nonce)
	defer Zero(prk)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, conversationKeySalt), material); err != nil {
		return nil, nil, err
	}
	return &messageKeys{
		cipherKey:   material[:cipherKeySize],
		cipherNonce: material[cipherKeySize : cipherKeySize+cipherNonceSize],
		macKey:      material[cipherKeySize+cipherNonceSize:],
	}, material, nil
}

// calcPaddedLen returns the padded length for an unpadded plaintext length
// using the power-of-two scheme. Short messages all pad to the same sizes so
// ciphertext length leaks less about content length.
func calcPaddedLen(unpadded int) int {
	if unpadded <= 32 {
		return 32
	}
	next := 1
	for next < unpadded {
		next <<= 1
	}
	chunk := 32
	if next > 256 {
		chunk = next / 8
	}
	return chunk * ((unpadded + chunk - 1) / chunk)
}

// pad prefixes the plaintext with its big-endian u16 length and zero-fills
// to the padded length.
func pad(plaintext []byte) ([]byte, error) {
	if len(plaintext) < MinPlaintextSize || len(plaintext) > MaxPlaintextSize {
		return nil, ErrInvalidPlaintextLength
	}
	padded := make([]byte, 2+calcPaddedLen(len(plaintext)))
	binary.BigEndian.PutUint16(padded, uint16(len(plaintext)))
	copy(padded[2:], plaintext)
	return padded, nil
}

// unpad recovers the plaintext from a padded buffer and rejects any buffer
// whose trailing pad bytes are not all zero.
func unpad(padded []byte) ([]byte, error) {
	if len(padded) < 2 {
		return nil, ErrInvalidPadding
	}
	n := int(binary.BigEndian.Uint16(padded))
	if n < MinPlaintextSize || 2+n > len(padded) {
		return nil, ErrInvalidPadding
	}
	for _, b := range padded[2+n:] {
		if b != 0 {
			return nil, ErrInvalidPadding
		}
	}
	out := make([]byte, n)
	copy(out, padded[2:2+n])
	return out, nil
}

// Encrypt encrypts plaintext under a conversation key and returns the
// base64 payload: version || nonce || ciphertext || mac.
func Encrypt(conversationKey, plaintext []byte) (string, error) {
	if len(conversationKey) != ConversationKeySize {
		return "", ErrInvalidConversationKeySize
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	keys, material, err := deriveMessageKeys(conversationKey, nonce)
	if err != nil {
		return "", err
	}
	defer Zero(material)

	padded, err := pad(plaintext)
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.New(keys.cipherKey)
	if err != nil {
		return "", err
	}
	ciphertext := aead.Seal(nil, keys.cipherNonce, padded, nil)

	mac := hmac.New(sha256.New, keys.macKey)
	mac.Write(nonce)
	mac.Write(ciphertext)

	payload := make([]byte, 0, 1+nonceSize+len(ciphertext)+macSize)
	payload = append(payload, payloadVersion)
	payload = append(payload, nonce...)
	payload = append(payload, ciphertext...)
	payload = mac.Sum(payload)

	return base64.StdEncoding.EncodeToString(payload), nil
}

// Decrypt reverses Encrypt. The MAC is verified in constant time before the
// AEAD is opened; both failure modes report ErrDecryptionFailed.
func Decrypt(conversationKey []byte, payload string) ([]byte, error) {
	if len(conversationKey) != ConversationKeySize {
		return nil, ErrInvalidConversationKeySize
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidPayload
	}
	if len(raw) < minPayloadSize || raw[0] != payloadVersion {
		return nil, ErrInvalidPayload
	}

	nonce := raw[1 : 1+nonceSize]
	ciphertext := raw[1+nonceSize : len(raw)-macSize]
	receivedMAC := raw[len(raw)-macSize:]

	keys, material, err := deriveMessageKeys(conversationKey, nonce)
	if err != nil {
		return nil, err
	}
	defer Zero(material)

	mac := hmac.New(sha256.New, keys.macKey)
	mac.Write(nonce)
	mac.Write(ciphertext)
	if !hmac.Equal(mac.Sum(nil), receivedMAC) {
		return nil, ErrDecryptionFailed
	}

	aead, err := chacha20poly1305.New(keys.cipherKey)
	if err != nil {
		return nil, err
	}
	padded, err := aead.Open(nil, keys.cipherNonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return unpad(padded)
}
