package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// genKey generates a private key or fails the test.
func genKey(t *testing.T) []byte {
	t.Helper()
	sk, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	return sk
}

func TestGeneratePrivateKey(t *testing.T) {
	sk := genKey(t)
	if len(sk) != SecretKeySize {
		t.Errorf("secret key size = %d, want %d", len(sk), SecretKeySize)
	}

	pub, err := PublicKeyHex(sk)
	if err != nil {
		t.Fatalf("PublicKeyHex: %v", err)
	}
	if len(pub) != 2*PublicKeySize {
		t.Errorf("public key hex length = %d, want %d", len(pub), 2*PublicKeySize)
	}
}

func TestPublicKeyHexRejectsBadKeys(t *testing.T) {
	tests := []struct {
		name string
		key  []byte
	}{
		{"nil", nil},
		{"short", make([]byte, 16)},
		{"long", make([]byte, 33)},
		{"zero scalar", make([]byte, 32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PublicKeyHex(tt.key); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestConversationKeyCommutative(t *testing.T) {
	skA := genKey(t)
	skB := genKey(t)
	pubA, _ := PublicKeyHex(skA)
	pubB, _ := PublicKeyHex(skB)

	keyAB, err := ConversationKey(skA, pubB)
	if err != nil {
		t.Fatalf("ConversationKey(a, B): %v", err)
	}
	keyBA, err := ConversationKey(skB, pubA)
	if err != nil {
		t.Fatalf("ConversationKey(b, A): %v", err)
	}

	if !bytes.Equal(keyAB, keyBA) {
		t.Error("conversation keys differ between the two parties")
	}
	if len(keyAB) != ConversationKeySize {
		t.Errorf("conversation key size = %d, want %d", len(keyAB), ConversationKeySize)
	}
}

func TestConversationKeyDistinctPairs(t *testing.T) {
	skA := genKey(t)
	pubB, _ := PublicKeyHex(genKey(t))
	pubC, _ := PublicKeyHex(genKey(t))

	keyAB, _ := ConversationKey(skA, pubB)
	keyAC, _ := ConversationKey(skA, pubC)
	if bytes.Equal(keyAB, keyAC) {
		t.Error("different pairs derived the same conversation key")
	}
}

func TestConversationKeyInvalidPublicKey(t *testing.T) {
	sk := genKey(t)
	for _, pub := range []string{"", "zz", strings.Repeat("0", 64), strings.Repeat("ab", 16)} {
		if _, err := ConversationKey(sk, pub); err == nil {
			t.Errorf("ConversationKey accepted %q", pub)
		}
	}
}

func TestCalcPaddedLen(t *testing.T) {
	tests := []struct {
		unpadded, padded int
	}{
		{1, 32},
		{32, 32},
		{33, 64},
		{64, 64},
		{100, 128},
		{256, 256},
		{257, 320},
		{1000, 1024},
	}
	for _, tt := range tests {
		if got := calcPaddedLen(tt.unpadded); got != tt.padded {
			t.Errorf("calcPaddedLen(%d) = %d, want %d", tt.unpadded, got, tt.padded)
		}
	}
}

func TestPadUnpadRoundTrip(t *testing.T) {
	for _, msg := range []string{"a", "hello, world", strings.Repeat("x", 500)} {
		padded, err := pad([]byte(msg))
		if err != nil {
			t.Fatalf("pad(%d bytes): %v", len(msg), err)
		}
		got, err := unpad(padded)
		if err != nil {
			t.Fatalf("unpad: %v", err)
		}
		if string(got) != msg {
			t.Errorf("round trip mismatch for %d bytes", len(msg))
		}
	}
}

func TestUnpadRejectsDirtyPadding(t *testing.T) {
	padded, _ := pad([]byte("hi"))
	padded[len(padded)-1] = 1
	if _, err := unpad(padded); !errors.Is(err, ErrInvalidPadding) {
		t.Errorf("err = %v, want ErrInvalidPadding", err)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	skA := genKey(t)
	pubB, _ := PublicKeyHex(genKey(t))
	key, _ := ConversationKey(skA, pubB)

	for _, msg := range []string{"x", "hello", "Hello 世界! 🌍 Привет!", strings.Repeat("long ", 2000)} {
		payload, err := Encrypt(key, []byte(msg))
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		got, err := Decrypt(key, payload)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if string(got) != msg {
			t.Error("round trip mismatch")
		}
	}
}

func TestEncryptNondeterministic(t *testing.T) {
	key := make([]byte, ConversationKeySize)
	key[0] = 7
	a, _ := Encrypt(key, []byte("same message"))
	b, _ := Encrypt(key, []byte("same message"))
	if a == b {
		t.Error("two encryptions produced identical payloads")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	skA := genKey(t)
	skC := genKey(t)
	pubB, _ := PublicKeyHex(genKey(t))

	keyAB, _ := ConversationKey(skA, pubB)
	keyCB, _ := ConversationKey(skC, pubB)

	payload, _ := Encrypt(keyAB, []byte("secret"))
	if _, err := Decrypt(keyCB, payload); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("err = %v, want ErrDecryptionFailed", err)
	}
}

func TestDecryptTamperedPayload(t *testing.T) {
	key := make([]byte, ConversationKeySize)
	key[3] = 9
	payload, _ := Encrypt(key, []byte("integrity matters"))

	raw, _ := base64.StdEncoding.DecodeString(payload)
	for _, idx := range []int{1, len(raw) / 2, len(raw) - 1} {
		tampered := make([]byte, len(raw))
		copy(tampered, raw)
		tampered[idx] ^= 0x01
		_, err := Decrypt(key, base64.StdEncoding.EncodeToString(tampered))
		if err == nil {
			t.Errorf("tampering byte %d went undetected", idx)
		}
	}
}

func TestDecryptMalformedPayload(t *testing.T) {
	key := make([]byte, ConversationKeySize)
	tests := []struct {
		name    string
		payload string
	}{
		{"not base64", "%%%"},
		{"empty", ""},
		{"too short", base64.StdEncoding.EncodeToString(make([]byte, 10))},
		{"wrong version", base64.StdEncoding.EncodeToString(append([]byte{1}, make([]byte, minPayloadSize)...))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decrypt(key, tt.payload); !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("err = %v, want ErrInvalidPayload", err)
			}
		})
	}
}

func TestEncryptPlaintextBounds(t *testing.T) {
	key := make([]byte, ConversationKeySize)
	if _, err := Encrypt(key, nil); !errors.Is(err, ErrInvalidPlaintextLength) {
		t.Errorf("empty plaintext: err = %v", err)
	}
	if _, err := Encrypt(key, make([]byte, MaxPlaintextSize+1)); !errors.Is(err, ErrInvalidPlaintextLength) {
		t.Errorf("oversized plaintext: err = %v", err)
	}
}

func TestSignVerifyDigest(t *testing.T) {
	sk := genKey(t)
	pub, _ := PublicKeyHex(sk)
	digest := sha256.Sum256([]byte("payload"))

	sig, err := SignDigest(sk, digest)
	if err != nil {
		t.Fatalf("SignDigest: %v", err)
	}
	if len(sig) != SignatureSize {
		t.Errorf("signature size = %d, want %d", len(sig), SignatureSize)
	}

	if !VerifyDigest(pub, digest, sig) {
		t.Error("valid signature rejected")
	}

	otherDigest := sha256.Sum256([]byte("other payload"))
	if VerifyDigest(pub, otherDigest, sig) {
		t.Error("signature accepted for a different digest")
	}

	otherPub, _ := PublicKeyHex(genKey(t))
	if VerifyDigest(otherPub, digest, sig) {
		t.Error("signature accepted for a different key")
	}

	if VerifyDigest(pub, digest, sig[:32]) {
		t.Error("truncated signature accepted")
	}
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zero(b)
	for _, v := range b {
		if v != 0 {
			t.Fatal("buffer not wiped")
		}
	}
	Zero(nil) // must not panic
}
