package client

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

// wsTransport is the reliable-socket fallback: one websocket carrying both
// channels, text frames for JSON and binary frames for packets.
type wsTransport struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

// DialWebSocket connects the fallback transport.
func DialWebSocket(ctx context.Context, url string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) Receive(ctx context.Context) (Message, error) {
	for {
		mt, data, err := t.conn.ReadMessage()
		if err != nil {
			return Message{}, err
		}
		switch mt {
		case websocket.BinaryMessage:
			return Message{Binary: true, Data: data}, nil
		case websocket.TextMessage:
			return Message{Data: data}, nil
		default:
			// Control frames are handled by the library; skip anything else.
		}
	}
}

func (t *wsTransport) SendMessage(b []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, b)
}

func (t *wsTransport) SendPacket(b []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.BinaryMessage, b)
}

func (t *wsTransport) Unreliable() bool { return false }

func (t *wsTransport) Close() error { return t.conn.Close() }
