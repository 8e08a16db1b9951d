package client

import "context"

// Message is one inbound payload: Binary for state/NPC packets, otherwise a
// reliable-channel JSON document.
type Message struct {
	Binary bool
	Data   []byte
}

// Transport is one established connection. SendPacket is the position path:
// on WebTransport it is a datagram and may silently drop; on the WebSocket
// fallback it rides the socket itself.
type Transport interface {
	Receive(ctx context.Context) (Message, error)
	SendMessage(b []byte) error // reliable ordered JSON
	SendPacket(b []byte) error  // binary packets, best-effort
	Unreliable() bool           // true when SendPacket has datagram semantics
	Close() error
}

// DialFunc establishes a transport. The manager holds one per transport kind
// so tests can swap in fakes.
type DialFunc func(ctx context.Context, url string) (Transport, error)
