package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/buildit-network/messenger-go/event"
)

// fakeRelay is an in-process websocket relay implementing just enough of
// the wire protocol to exercise the client: it stores published events,
// acknowledges them, and replays stored events for each REQ.
type fakeRelay struct {
	t      *testing.T
	server *httptest.Server

	mu     sync.Mutex
	stored []*event.Event
	reject string // when set, OK responses carry accepted=false and this reason
}

func newFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	fr := &fakeRelay{t: t}
	upgrader := websocket.Upgrader{}
	fr.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fr.serve(conn)
	}))
	t.Cleanup(fr.server.Close)
	return fr
}

func (fr *fakeRelay) url() string {
	return "ws" + strings.TrimPrefix(fr.server.URL, "http")
}

func (fr *fakeRelay) store(ev *event.Event) {
	fr.mu.Lock()
	fr.stored = append(fr.stored, ev)
	fr.mu.Unlock()
}

func (fr *fakeRelay) serve(conn *websocket.Conn) {
	defer conn.Close()
	var writeMu sync.Mutex
	send := func(parts ...any) {
		data, err := json.Marshal(parts)
		if err != nil {
			return
		}
		writeMu.Lock()
		_ = conn.WriteMessage(websocket.TextMessage, data)
		writeMu.Unlock()
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var parts []json.RawMessage
		if err := json.Unmarshal(data, &parts); err != nil || len(parts) == 0 {
			continue
		}
		var label string
		_ = json.Unmarshal(parts[0], &label)

		switch label {
		case "EVENT":
			var ev event.Event
			if err := json.Unmarshal(parts[1], &ev); err != nil {
				continue
			}
			fr.mu.Lock()
			reject := fr.reject
			if reject == "" {
				fr.stored = append(fr.stored, &ev)
			}
			fr.mu.Unlock()
			if reject != "" {
				send("OK", ev.ID, false, reject)
			} else {
				send("OK", ev.ID, true, "")
			}

		case "REQ":
			var subID string
			_ = json.Unmarshal(parts[1], &subID)
			var filters []event.Filter
			for _, raw := range parts[2:] {
				var f event.Filter
				if err := json.Unmarshal(raw, &f); err == nil {
					filters = append(filters, f)
				}
			}
			fr.mu.Lock()
			stored := append([]*event.Event(nil), fr.stored...)
			fr.mu.Unlock()
			for _, ev := range stored {
				for _, f := range filters {
					if f.Matches(ev) {
						send("EVENT", subID, ev)
						break
					}
				}
			}
			send("EOSE", subID)
		}
	}
}

func testEvent(t *testing.T, id string, kind int, recipient string) *event.Event {
	t.Helper()
	return &event.Event{
		ID:        id,
		PubKey:    "ephemeral",
		CreatedAt: time.Now().Unix(),
		Kind:      kind,
		Tags:      event.Tags{{event.TagRecipient, recipient}},
		Content:   "ciphertext",
		Sig:       "sig",
	}
}

func TestDialBadURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := Dial(ctx, "ws://127.0.0.1:1"); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestPublishAccepted(t *testing.T) {
	fr := newFakeRelay(t)
	client, err := Dial(context.Background(), fr.url())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	ev := testEvent(t, "ev1", event.KindGiftWrap, "aa")
	if err := client.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	fr.mu.Lock()
	defer fr.mu.Unlock()
	if len(fr.stored) != 1 || fr.stored[0].ID != "ev1" {
		t.Errorf("relay stored %d events", len(fr.stored))
	}
}

func TestPublishRejected(t *testing.T) {
	fr := newFakeRelay(t)
	fr.mu.Lock()
	fr.reject = "blocked: spam"
	fr.mu.Unlock()

	client, err := Dial(context.Background(), fr.url())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	err = client.Publish(context.Background(), testEvent(t, "ev1", event.KindGiftWrap, "aa"))
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("Publish error = %v, want ErrRejected", err)
	}
	if !strings.Contains(err.Error(), "blocked: spam") {
		t.Errorf("error should carry the relay's reason: %v", err)
	}
}

func TestQueryReturnsStored(t *testing.T) {
	fr := newFakeRelay(t)
	fr.store(testEvent(t, "ev1", event.KindGiftWrap, "aa"))
	fr.store(testEvent(t, "ev2", event.KindGiftWrap, "bb"))
	fr.store(testEvent(t, "ev3", event.KindGiftWrap, "aa"))

	client, err := Dial(context.Background(), fr.url())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events, err := client.Query(ctx, []event.Filter{
		{Kinds: []int{event.KindGiftWrap}, Recipients: []string{"aa"}},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Query returned %d events, want 2", len(events))
	}
	for _, ev := range events {
		if got := ev.Tags.Recipient(); got != "aa" {
			t.Errorf("event %s recipient = %q", ev.ID, got)
		}
	}
}

func TestQueryEmpty(t *testing.T) {
	fr := newFakeRelay(t)
	client, err := Dial(context.Background(), fr.url())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events, err := client.Query(ctx, []event.Filter{{Kinds: []int{event.KindGiftWrap}}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Query returned %d events, want 0", len(events))
	}
}

func TestSubscribeDeliversLiveEvents(t *testing.T) {
	fr := newFakeRelay(t)

	client, err := Dial(context.Background(), fr.url())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	publisher, err := Dial(context.Background(), fr.url())
	if err != nil {
		t.Fatalf("Dial publisher: %v", err)
	}
	defer publisher.Close()
	if err := publisher.Publish(context.Background(), testEvent(t, "ev1", event.KindGiftWrap, "aa")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	received := make(chan *event.Event, 4)
	unsub, err := client.Subscribe(context.Background(), []event.Filter{
		{Kinds: []int{event.KindGiftWrap}, Recipients: []string{"aa"}},
	}, func(ev *event.Event) {
		received <- ev
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsub()

	select {
	case ev := <-received:
		if ev.ID != "ev1" {
			t.Errorf("received event %s", ev.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	fr := newFakeRelay(t)
	fr.store(testEvent(t, "ev1", event.KindGiftWrap, "aa"))

	client, err := Dial(context.Background(), fr.url())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	received := make(chan *event.Event, 4)
	unsub, err := client.Subscribe(context.Background(), []event.Filter{
		{Kinds: []int{event.KindGiftWrap}},
	}, func(ev *event.Event) {
		received <- ev
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("stored event not replayed")
	}

	unsub()

	// The subscription is gone from the registry; further stored events
	// replayed under its id are dropped.
	client.subMu.Lock()
	n := len(client.subs)
	client.subMu.Unlock()
	if n != 0 {
		t.Errorf("%d subscriptions still registered after unsubscribe", n)
	}
}

func TestOperationsAfterClose(t *testing.T) {
	fr := newFakeRelay(t)
	client, err := Dial(context.Background(), fr.url())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close is idempotent.
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if err := client.Publish(context.Background(), testEvent(t, "ev1", event.KindGiftWrap, "aa")); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish after close = %v, want ErrClosed", err)
	}
	if _, err := client.Query(context.Background(), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Query after close = %v, want ErrClosed", err)
	}
}
