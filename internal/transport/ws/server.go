package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"kankeri.gg/internal/world"
)

// Server is the reliable-socket endpoint. Text frames carry the JSON side
// channel, binary frames carry position packets inbound and state/NPC
// broadcasts outbound. For clients without WebTransport this socket is the
// whole connection.
type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  8 * 1024,
			WriteBufferSize: 8 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		client := world.Client{
			Reliable:   make(chan []byte, 64),
			Unreliable: make(chan []byte, 32),
		}
		respCh := make(chan world.JoinResponse, 1)
		s.world.Join() <- world.JoinRequest{Client: client, Resp: respCh}
		playerID := (<-respCh).PlayerID

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine; a failed write ends the connection.
		go func() {
			for {
				var b []byte
				var kind int
				select {
				case <-ctx.Done():
					return
				case b = <-client.Reliable:
					kind = websocket.TextMessage
				case b = <-client.Unreliable:
					kind = websocket.BinaryMessage
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(kind, b); err != nil {
					cancel()
					return
				}
			}
		}()

		conn.SetReadLimit(64 * 1024)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			switch mt {
			case websocket.BinaryMessage:
				s.world.SubmitPosition(playerID, msg)
			case websocket.TextMessage:
				s.world.SubmitMessage(playerID, msg)
			}
		}

		s.world.Leave() <- playerID
	}
}
