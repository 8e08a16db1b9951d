package wt

import (
	"bufio"
	"context"
	"log"
	"net/http"
	"time"

	"github.com/quic-go/quic-go/http3"
	"github.com/quic-go/webtransport-go"

	"kankeri.gg/internal/world"
)

// Server is the low-latency endpoint. QUIC datagrams carry position packets
// and broadcasts; the first client-opened bidirectional stream carries the
// reliable JSON side channel as newline-delimited messages.
type Server struct {
	world *world.World
	log   *log.Logger

	wt *webtransport.Server
}

func NewServer(w *world.World, logger *log.Logger, addr string) *Server {
	s := &Server{world: w, log: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sync", s.handleUpgrade)
	s.wt = &webtransport.Server{
		H3:          http3.Server{Addr: addr, Handler: mux},
		CheckOrigin: func(r *http.Request) bool { return true }, // dev default
	}
	return s
}

// ListenAndServeTLS blocks. WebTransport requires TLS; self-signed certs are
// fine for local runs as long as the browser is told the fingerprint.
func (s *Server) ListenAndServeTLS(certFile, keyFile string) error {
	return s.wt.ListenAndServeTLS(certFile, keyFile)
}

func (s *Server) Close() error { return s.wt.Close() }

func (s *Server) handleUpgrade(rw http.ResponseWriter, r *http.Request) {
	sess, err := s.wt.Upgrade(rw, r)
	if err != nil {
		s.log.Printf("webtransport upgrade: %v", err)
		return
	}
	go s.handleSession(sess)
}

func (s *Server) handleSession(sess *webtransport.Session) {
	defer sess.CloseWithError(0, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The client opens the reliable stream right after the session is up.
	acceptCtx, acceptCancel := context.WithTimeout(ctx, 10*time.Second)
	stream, err := sess.AcceptStream(acceptCtx)
	acceptCancel()
	if err != nil {
		return
	}

	client := world.Client{
		Reliable:   make(chan []byte, 64),
		Unreliable: make(chan []byte, 32),
	}
	respCh := make(chan world.JoinResponse, 1)
	s.world.Join() <- world.JoinRequest{Client: client, Resp: respCh}
	playerID := (<-respCh).PlayerID
	defer func() { s.world.Leave() <- playerID }()

	// Reliable writer: JSON lines on the stream.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case b := <-client.Reliable:
				if _, err := stream.Write(append(b, '\n')); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// Unreliable writer: datagrams, drops are expected and ignored.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case b := <-client.Unreliable:
				_ = sess.SendDatagram(b)
			}
		}
	}()

	// Datagram reader: inbound position packets.
	go func() {
		for {
			b, err := sess.ReceiveDatagram(ctx)
			if err != nil {
				cancel()
				return
			}
			s.world.SubmitPosition(playerID, b)
		}
	}()

	// Stream reader: inbound reliable messages, one JSON document per line.
	sc := bufio.NewScanner(stream)
	sc.Buffer(make([]byte, 0, 4*1024), 64*1024)
	for sc.Scan() {
		line := make([]byte, len(sc.Bytes()))
		copy(line, sc.Bytes())
		s.world.SubmitMessage(playerID, line)
	}
	cancel()
}
