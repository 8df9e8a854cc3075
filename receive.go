package messenger

import (
	"fmt"
	"time"

	"github.com/buildit-network/messenger-go/event"
	"github.com/buildit-network/messenger-go/internal/crypto"
)

// Receive unwraps and verifies an incoming gift wrap for the holder of
// recipientSecret. It runs a strict ordered protocol; each step must pass
// before the data it protects is used:
//
//  1. structural decode of the outer envelope
//  2. outer signature check against the envelope's own ephemeral key
//     (tamper evidence only; proves nothing about authorship)
//  3. outer decryption with the (recipient, ephemeral) conversation key
//  4. seal signature check against the sender key embedded in the seal —
//     the only source of sender identity in the protocol
//  5. inner decryption with the (recipient, verified sender) key
//  6. semantic checks on the rumor
//
// A nil message with a nil error means the envelope decrypted fine but is
// not a direct message for the local key; callers skip it silently.
// Decryption failures (step 3 or 5) are the normal outcome for envelopes
// addressed to someone else and are equally unremarkable.
func Receive(giftWrap *event.Event, recipientSecret []byte) (*DirectMessage, error) {
	localPub, err := crypto.PublicKeyHex(recipientSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient secret key", ErrInvalidKey)
	}

	// Step 1: structural check, no crypto.
	raw, err := parseEnvelope(giftWrap)
	if err != nil {
		return nil, &ReceiveError{Stage: StageParse, Err: err}
	}

	// Step 2: the wrap must verify against its own ephemeral key before
	// any of its content is trusted enough to decrypt.
	if !raw.ev.Verify() {
		return nil, &ReceiveError{Stage: StageEnvelopeSig, Err: ErrInvalidEnvelopeSignature}
	}

	// Step 3: outer decryption. Failure here usually just means the
	// envelope is not for us.
	wrapKey, err := crypto.ConversationKey(recipientSecret, raw.ephemeralPub)
	if err != nil {
		return nil, &ReceiveError{Stage: StageOuterDecrypt, Err: ErrDecryptionFailed}
	}
	sealJSON, err := crypto.Decrypt(wrapKey, raw.ciphertext)
	crypto.Zero(wrapKey)
	if err != nil {
		return nil, &ReceiveError{Stage: StageOuterDecrypt, Err: ErrDecryptionFailed}
	}

	// Step 4: the seal's signature against the seal's own pubkey field is
	// the sole proof of who wrote this message.
	seal, err := event.Unmarshal(sealJSON)
	if err != nil || seal.Kind != event.KindSeal {
		return nil, &ReceiveError{Stage: StageSealVerify, Err: ErrUnverifiedSender}
	}
	if !seal.Verify() {
		return nil, &ReceiveError{Stage: StageSealVerify, Err: ErrUnverifiedSender}
	}
	sender := seal.PubKey

	// Step 5: inner decryption with the now-verified sender key.
	sealKey, err := crypto.ConversationKey(recipientSecret, sender)
	if err != nil {
		return nil, &ReceiveError{Stage: StageInnerDecrypt, Err: ErrDecryptionFailed}
	}
	rumorJSON, err := crypto.Decrypt(sealKey, seal.Content)
	crypto.Zero(sealKey)
	if err != nil {
		return nil, &ReceiveError{Stage: StageInnerDecrypt, Err: ErrDecryptionFailed}
	}

	rumor, err := event.Unmarshal(rumorJSON)
	if err != nil {
		return nil, &ReceiveError{Stage: StageInnerDecrypt, Err: ErrDecryptionFailed}
	}

	// A rumor claiming a different author than the seal's verified key is
	// an impersonation attempt, not a benign mismatch.
	if rumor.PubKey != sender {
		return nil, &ReceiveError{Stage: StageSealVerify, Err: ErrUnverifiedSender}
	}

	// Step 6: semantic checks. Other kinds multiplexed on the same
	// transport, or rumors addressed elsewhere, are skipped quietly.
	if rumor.Kind != event.KindChatMessage {
		return nil, nil
	}
	tag, ok := rumor.Tags.First(event.TagRecipient)
	if !ok || tag.Value() != localPub {
		return nil, nil
	}

	return &DirectMessage{
		ID:             raw.id,
		From:           VerifiedKey(sender),
		To:             tag.Value(),
		Content:        rumor.Content,
		Timestamp:      time.Unix(rumor.CreatedAt, 0).UTC(),
		ConversationID: DeriveConversationID(sender, tag.Value()),
		Decrypted:      true,
	}, nil
}
