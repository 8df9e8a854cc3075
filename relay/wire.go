package relay

import (
	"encoding/json"
	"fmt"

	"github.com/buildit-network/messenger-go/event"
)

// Wire message labels.
const (
	labelEvent  = "EVENT"
	labelReq    = "REQ"
	labelClose  = "CLOSE"
	labelEOSE   = "EOSE"
	labelOK     = "OK"
	labelNotice = "NOTICE"
	labelClosed = "CLOSED"
)

// encodeEvent builds ["EVENT", <event>].
func encodeEvent(ev *event.Event) ([]byte, error) {
	return json.Marshal([]any{labelEvent, ev})
}

// encodeReq builds ["REQ", <subID>, <filter>...].
func encodeReq(subID string, filters []event.Filter) ([]byte, error) {
	parts := make([]any, 0, 2+len(filters))
	parts = append(parts, labelReq, subID)
	for _, f := range filters {
		parts = append(parts, f)
	}
	return json.Marshal(parts)
}

// encodeClose builds ["CLOSE", <subID>].
func encodeClose(subID string) ([]byte, error) {
	return json.Marshal([]any{labelClose, subID})
}

// serverMessage is a decoded relay-to-client message. Only the fields for
// the message's label are populated.
type serverMessage struct {
	Label string

	// EVENT, EOSE, CLOSED
	SubID string
	Event *event.Event

	// OK
	EventID  string
	Accepted bool

	// OK, NOTICE, CLOSED
	Reason string
}

// decodeMessage parses one relay-to-client wire message.
func decodeMessage(data []byte) (*serverMessage, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, fmt.Errorf("%w: not a JSON array", ErrMalformedMessage)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrMalformedMessage)
	}

	var label string
	if err := json.Unmarshal(parts[0], &label); err != nil {
		return nil, fmt.Errorf("%w: non-string label", ErrMalformedMessage)
	}

	msg := &serverMessage{Label: label}
	switch label {
	case labelEvent:
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: EVENT needs 3 elements", ErrMalformedMessage)
		}
		if err := json.Unmarshal(parts[1], &msg.SubID); err != nil {
			return nil, fmt.Errorf("%w: EVENT subscription id", ErrMalformedMessage)
		}
		var ev event.Event
		if err := json.Unmarshal(parts[2], &ev); err != nil {
			return nil, fmt.Errorf("%w: EVENT payload", ErrMalformedMessage)
		}
		msg.Event = &ev

	case labelEOSE:
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: EOSE needs 2 elements", ErrMalformedMessage)
		}
		if err := json.Unmarshal(parts[1], &msg.SubID); err != nil {
			return nil, fmt.Errorf("%w: EOSE subscription id", ErrMalformedMessage)
		}

	case labelOK:
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: OK needs 3 elements", ErrMalformedMessage)
		}
		if err := json.Unmarshal(parts[1], &msg.EventID); err != nil {
			return nil, fmt.Errorf("%w: OK event id", ErrMalformedMessage)
		}
		if err := json.Unmarshal(parts[2], &msg.Accepted); err != nil {
			return nil, fmt.Errorf("%w: OK flag", ErrMalformedMessage)
		}
		if len(parts) > 3 {
			_ = json.Unmarshal(parts[3], &msg.Reason)
		}

	case labelNotice:
		if len(parts) > 1 {
			_ = json.Unmarshal(parts[1], &msg.Reason)
		}

	case labelClosed:
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: CLOSED needs 2 elements", ErrMalformedMessage)
		}
		if err := json.Unmarshal(parts[1], &msg.SubID); err != nil {
			return nil, fmt.Errorf("%w: CLOSED subscription id", ErrMalformedMessage)
		}
		if len(parts) > 2 {
			_ = json.Unmarshal(parts[2], &msg.Reason)
		}

	default:
		return nil, fmt.Errorf("%w: unknown label %q", ErrMalformedMessage, label)
	}

	return msg, nil
}
