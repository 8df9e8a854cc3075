// Package messenger provides private, metadata-protected direct messaging
// over a public signed-event relay network.
//
// Every message travels as a three-layer envelope: an unsigned rumor
// (the plaintext message), encrypted and signed by the true sender into a
// seal, which is in turn encrypted and signed by a single-use ephemeral key
// into a gift wrap. Relays and observers see only the gift wrap: an
// encrypted blob addressed to a recipient, signed by a key that is used
// once and reveals nothing about the author.
//
// Basic usage:
//
//	transport, err := relay.Dial(ctx, "wss://relay.example.org")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer transport.Close()
//
//	client, err := messenger.New(transport)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Send a message
//	_, err = client.SendDirectMessage(ctx, bobPub, "hello", aliceSecret)
//
//	// Receive messages
//	sub, err := client.SubscribeToDirectMessages(ctx, bobPub, bobSecret,
//	    func(msg *messenger.DirectMessage) {
//	        fmt.Printf("%s: %s\n", msg.From, msg.Content)
//	    })
//
// The sender identity reported in DirectMessage.From is authenticated by
// the seal signature and never by the outer envelope; see Receive for the
// exact verification order.
package messenger
