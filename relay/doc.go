// Package relay implements the websocket transport to a relay: publishing
// signed events, live subscriptions, and stored-event queries. It speaks
// the JSON-array wire protocol (EVENT/REQ/CLOSE client-side, EVENT/EOSE/
// OK/NOTICE/CLOSED relay-side) and satisfies the messenger.Transport
// interface.
//
// The relay sees only gift wraps; everything this package touches is
// ciphertext and routing tags.
package relay
