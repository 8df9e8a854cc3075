// Package crypto implements the cryptographic primitives for the private
// messaging envelope protocol: secp256k1 key handling, BIP-340 Schnorr
// signatures, commutative conversation-key derivation, and the versioned
// authenticated payload encryption used by both seal and gift-wrap layers.
//
// The package holds no state. Secret keys are borrowed per call and wiped
// from any intermediate buffers before returning.
package crypto
