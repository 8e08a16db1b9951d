package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"kankeri.gg/internal/protocol"
)

// State of the connection manager.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// ErrNotConfigured means no transport can be attempted with the given URLs.
var ErrNotConfigured = errors.New("client: no usable transport URL configured")

const (
	defaultReconnectAttempts = 5
	defaultReconnectDelay    = 2 * time.Second
	welcomeTimeout           = 10 * time.Second
)

type Options struct {
	URL         string // WebTransport endpoint (https://...), optional
	FallbackURL string // WebSocket endpoint (ws://... or wss://...), optional

	ReconnectAttempts int           // retries after a drop; default 5
	ReconnectDelay    time.Duration // wait between retries; default 2s

	Logger *log.Logger
}

// Events is the callback surface. Nil callbacks are skipped. All callbacks
// fire from the manager's own goroutine; handlers must not block.
type Events struct {
	Connected    func(playerID string)
	Disconnected func(reason string)

	PlayerJoined func(playerID, name string)
	PlayerLeft   func(playerID string)
	PlayerName   func(playerID, name string)
	Chat         func(msg protocol.ChatMsg)
	Action       func(msg protocol.ActionMsg)

	StateUpdate func(state protocol.StateBroadcast)
	NPCUpdate   func(npcs []protocol.NPCUpdate)
}

// Manager owns the connection lifecycle: transport selection with sticky
// WebSocket fallback, the reconnect state machine, and demultiplexing of the
// two channels into the event surface.
type Manager struct {
	opts   Options
	events Events
	log    *log.Logger

	dialPrimary  DialFunc
	dialFallback DialFunc

	mu           sync.Mutex
	state        State
	transport    Transport
	playerID     string
	attempts     int
	fallbackOnly bool // set after the first failed WebTransport dial, never cleared
	closed       bool
	cancel       context.CancelFunc
	done         chan struct{}
}

func NewManager(opts Options, events Events) *Manager {
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = defaultReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Manager{
		opts:         opts,
		events:       events,
		log:          opts.Logger,
		dialPrimary:  DialWebTransport,
		dialFallback: DialWebSocket,
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) PlayerID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playerID
}

// Connect starts the connection loop. Idempotent while a connection is live
// or being established.
func (m *Manager) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateConnecting || m.state == StateConnected || m.state == StateReconnecting {
		return nil
	}
	if m.opts.URL == "" && m.opts.FallbackURL == "" {
		return ErrNotConfigured
	}
	if m.fallbackOnly && m.opts.FallbackURL == "" {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.closed = false
	m.attempts = 0
	m.state = StateConnecting

	go m.run(ctx)
	return nil
}

// Disconnect tears the connection down for good; no reconnect follows until
// the caller invokes Connect again.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state == StateDisconnected && m.cancel == nil {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.cancel != nil {
		m.cancel()
	}
	if m.transport != nil {
		_ = m.transport.Close()
	}
	done := m.done
	m.mu.Unlock()

	if done != nil {
		<-done
	}
}

// SendPosition is fire-and-forget: it prefers the unreliable channel and
// silently no-ops when not connected. Send failures are expected datagram
// losses and are swallowed.
func (m *Manager) SendPosition(x, y, z, yaw float32) {
	t := m.connectedTransport()
	if t == nil {
		return
	}
	pkt := protocol.EncodePositionUpdate(protocol.PositionUpdate{
		Pos: protocol.Vec3{X: x, Y: y, Z: z},
		Rot: protocol.Vec3{Y: yaw},
	})
	_ = t.SendPacket(pkt)
}

func (m *Manager) SendChat(message string) {
	m.sendJSON(protocol.ChatMsg{Type: protocol.TypeChat, Message: message})
}

func (m *Manager) SetName(name string) {
	m.sendJSON(protocol.SetNameMsg{Type: protocol.TypeSetName, Name: name})
}

func (m *Manager) SendAction(action string, params json.RawMessage) {
	m.sendJSON(protocol.ActionMsg{Type: protocol.TypeAction, Action: action, Params: params})
}

func (m *Manager) sendJSON(v any) {
	t := m.connectedTransport()
	if t == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := t.SendMessage(b); err != nil {
		m.log.Printf("reliable send: %v", err)
	}
}

func (m *Manager) connectedTransport() Transport {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected {
		return nil
	}
	return m.transport
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// run is the connect/reconnect loop. One iteration per connection attempt.
func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	for {
		reason := m.runOnce(ctx)

		m.mu.Lock()
		if m.transport != nil {
			_ = m.transport.Close()
			m.transport = nil
		}
		closed := m.closed || ctx.Err() != nil
		m.mu.Unlock()

		if m.events.Disconnected != nil {
			m.events.Disconnected(reason)
		}
		if closed {
			m.setState(StateDisconnected)
			return
		}

		m.mu.Lock()
		if m.attempts >= m.opts.ReconnectAttempts {
			m.state = StateDisconnected
			m.mu.Unlock()
			m.log.Printf("reconnect budget exhausted after %d attempts", m.attempts)
			return
		}
		m.attempts++
		attempt := m.attempts
		m.state = StateReconnecting
		m.mu.Unlock()

		m.log.Printf("reconnecting (attempt %d/%d) in %v", attempt, m.opts.ReconnectAttempts, m.opts.ReconnectDelay)
		select {
		case <-ctx.Done():
			m.setState(StateDisconnected)
			return
		case <-time.After(m.opts.ReconnectDelay):
		}
		m.setState(StateConnecting)
	}
}

// runOnce establishes one connection and pumps it until it dies. The return
// value is the disconnect reason for the event surface.
func (m *Manager) runOnce(ctx context.Context) string {
	t, err := m.establish(ctx)
	if err != nil {
		return fmt.Sprintf("connect failed: %v", err)
	}

	m.mu.Lock()
	m.transport = t
	m.mu.Unlock()

	id, err := m.awaitWelcome(ctx, t)
	if err != nil {
		return fmt.Sprintf("no welcome: %v", err)
	}

	// Only a fully completed handshake resets the retry budget.
	m.mu.Lock()
	m.playerID = id
	m.attempts = 0
	m.state = StateConnected
	m.mu.Unlock()

	if m.events.Connected != nil {
		m.events.Connected(id)
	}

	for {
		msg, err := t.Receive(ctx)
		if err != nil {
			return fmt.Sprintf("read: %v", err)
		}
		m.dispatch(msg)
	}
}

// establish picks the transport. A WebTransport dial failure is remembered:
// every later attempt within this manager goes straight to WebSocket.
func (m *Manager) establish(ctx context.Context) (Transport, error) {
	m.mu.Lock()
	fallbackOnly := m.fallbackOnly
	m.mu.Unlock()

	if m.opts.URL != "" && !fallbackOnly {
		t, err := m.dialPrimary(ctx, m.opts.URL)
		if err == nil {
			return t, nil
		}
		m.mu.Lock()
		m.fallbackOnly = true
		m.mu.Unlock()
		m.log.Printf("webtransport unavailable (%v), falling back to websocket", err)
		if m.opts.FallbackURL == "" {
			return nil, ErrNotConfigured
		}
	}

	if m.opts.FallbackURL == "" {
		return nil, ErrNotConfigured
	}
	return m.dialFallback(ctx, m.opts.FallbackURL)
}

// awaitWelcome reads until the server's welcome arrives, dispatching anything
// that slips in ahead of it on the unordered channel.
func (m *Manager) awaitWelcome(ctx context.Context, t Transport) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, welcomeTimeout)
	defer cancel()
	for {
		msg, err := t.Receive(ctx)
		if err != nil {
			return "", err
		}
		if !msg.Binary {
			base, err := protocol.DecodeBase(msg.Data)
			if err == nil && base.Type == protocol.TypeWelcome {
				var w protocol.WelcomeMsg
				if err := json.Unmarshal(msg.Data, &w); err == nil && w.PlayerID != "" {
					return w.PlayerID, nil
				}
				continue
			}
		}
		m.dispatch(msg)
	}
}

// dispatch decodes one inbound payload and fires the matching callback.
// Decode failures drop the message; nothing here may take the loop down.
func (m *Manager) dispatch(msg Message) {
	if msg.Binary {
		m.dispatchPacket(msg.Data)
		return
	}

	base, err := protocol.DecodeBase(msg.Data)
	if err != nil {
		return
	}
	switch base.Type {
	case protocol.TypePlayerJoined:
		var v protocol.PlayerJoinedMsg
		if json.Unmarshal(msg.Data, &v) == nil && m.events.PlayerJoined != nil {
			m.events.PlayerJoined(v.PlayerID, v.Name)
		}
	case protocol.TypePlayerLeft:
		var v protocol.PlayerLeftMsg
		if json.Unmarshal(msg.Data, &v) == nil && m.events.PlayerLeft != nil {
			m.events.PlayerLeft(v.PlayerID)
		}
	case protocol.TypePlayerName:
		var v protocol.PlayerNameMsg
		if json.Unmarshal(msg.Data, &v) == nil && m.events.PlayerName != nil {
			m.events.PlayerName(v.PlayerID, v.Name)
		}
	case protocol.TypeChat:
		var v protocol.ChatMsg
		if json.Unmarshal(msg.Data, &v) == nil && m.events.Chat != nil {
			m.events.Chat(v)
		}
	case protocol.TypeAction:
		var v protocol.ActionMsg
		if json.Unmarshal(msg.Data, &v) == nil && m.events.Action != nil {
			m.events.Action(v)
		}
	default:
		// Unknown type: ignore.
	}
}

func (m *Manager) dispatchPacket(b []byte) {
	if len(b) == 0 {
		return
	}
	switch b[0] {
	case protocol.TagStateBroadcast:
		state, err := protocol.DecodeStateBroadcast(b)
		if err == nil && m.events.StateUpdate != nil {
			m.events.StateUpdate(state)
		}
	case protocol.TagNPCBroadcast:
		npcs, err := protocol.DecodeNPCBroadcast(b)
		if err == nil && m.events.NPCUpdate != nil {
			m.events.NPCUpdate(npcs)
		}
	}
}
