package messenger

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// DeriveConversationID returns the deterministic identifier for the
// pairwise conversation between two public keys. The keys are sorted
// before hashing, so both participants compute the same identifier no
// matter who sent the last message.
func DeriveConversationID(pubkeyA, pubkeyB string) string {
	a, b := pubkeyA, pubkeyB
	if b < a {
		a, b = b, a
	}
	digest := sha256.Sum256([]byte(a + ":" + b))
	return hex.EncodeToString(digest[:])
}

// FoldConversations groups decrypted messages into conversations. For each
// conversation the last message is the one with the maximum timestamp,
// ties broken by envelope ID for determinism. Conversations are returned
// ordered by their last message's timestamp, newest first; conversations
// with no messages never appear.
func FoldConversations(messages []*DirectMessage) []*Conversation {
	byID := make(map[string]*Conversation)

	for _, msg := range messages {
		if msg == nil {
			continue
		}
		conv, ok := byID[msg.ConversationID]
		if !ok {
			a, b := string(msg.From), msg.To
			if b < a {
				a, b = b, a
			}
			conv = &Conversation{
				ID:           msg.ConversationID,
				Participants: [2]string{a, b},
			}
			byID[msg.ConversationID] = conv
		}
		if !msg.Read {
			conv.UnreadCount++
		}
		if conv.LastMessage == nil || newerThan(msg, conv.LastMessage) {
			conv.LastMessage = msg
		}
	}

	conversations := make([]*Conversation, 0, len(byID))
	for _, conv := range byID {
		conversations = append(conversations, conv)
	}
	sort.Slice(conversations, func(i, j int) bool {
		a, b := conversations[i].LastMessage, conversations[j].LastMessage
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID > b.ID
	})
	return conversations
}

// newerThan reports whether a should replace b as a conversation's last
// message.
func newerThan(a, b *DirectMessage) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}

// sortMessagesAscending orders messages oldest first for history views,
// with envelope ID as the deterministic tie-breaker.
func sortMessagesAscending(messages []*DirectMessage) {
	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].Timestamp.Equal(messages[j].Timestamp) {
			return messages[i].Timestamp.Before(messages[j].Timestamp)
		}
		return messages[i].ID < messages[j].ID
	})
}
