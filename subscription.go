package messenger

import (
	"sync"
	"sync/atomic"

	"github.com/buildit-network/messenger-go/internal/crypto"
)

// Subscription is a handle to an active direct-message subscription.
type Subscription struct {
	id        uint64
	mgr       *subscriptionManager
	transport func() // transport-level unsubscribe
	secret    []byte // client-owned copy of the recipient secret
	active    atomic.Bool
	once      sync.Once
}

// Unsubscribe stops delivery and wipes the subscription's copy of the
// recipient secret key. Safe to call multiple times.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.active.Store(false)
		if s.transport != nil {
			s.transport()
		}
		crypto.Zero(s.secret)
		if s.mgr != nil {
			s.mgr.remove(s.id)
		}
	})
}

// subscriptionManager tracks active subscriptions so the client can tear
// them down on Close. Callbacks check the active flag before delivering,
// so no message is handed out after unsubscription completes.
type subscriptionManager struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID atomic.Uint64
}

func newSubscriptionManager() *subscriptionManager {
	return &subscriptionManager{
		subs: make(map[uint64]*Subscription),
	}
}

// add registers a new active subscription owning a copy of secret.
func (m *subscriptionManager) add(transportUnsub func(), secret []byte) *Subscription {
	sub := &Subscription{
		id:        m.nextID.Add(1),
		mgr:       m,
		transport: transportUnsub,
		secret:    secret,
	}
	sub.active.Store(true)

	m.mu.Lock()
	m.subs[sub.id] = sub
	m.mu.Unlock()
	return sub
}

// remove forgets a subscription. Called from Unsubscribe.
func (m *subscriptionManager) remove(id uint64) {
	m.mu.Lock()
	delete(m.subs, id)
	m.mu.Unlock()
}

// clear unsubscribes everything. Called during Client.Close().
func (m *subscriptionManager) clear() {
	m.mu.Lock()
	subs := make([]*Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.subs = make(map[uint64]*Subscription)
	m.mu.Unlock()

	// Unsubscribe outside the lock; Subscription.Unsubscribe calls back
	// into remove.
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
