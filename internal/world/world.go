package world

import (
	"context"
	"log"
	"math/rand"
	"time"

	"kankeri.gg/internal/protocol"
	"kankeri.gg/internal/sim/npc"
)

type Config struct {
	StateHz int // full state broadcast rate
	NPCHz   int // NPC broadcast rate
	SimHz   int // NPC simulation rate
}

func (c Config) withDefaults() Config {
	if c.StateHz <= 0 {
		c.StateHz = 20
	}
	if c.NPCHz <= 0 {
		c.NPCHz = 10
	}
	if c.SimHz <= 0 {
		c.SimHz = 30
	}
	return c
}

// Client is the send side of one connection. The world only ever enqueues:
// a slow or dead peer loses messages instead of stalling the loop.
type Client struct {
	Reliable   chan []byte // ordered JSON messages
	Unreliable chan []byte // binary broadcast packets, droppable
}

type JoinRequest struct {
	Name   string
	Client Client
	Resp   chan JoinResponse
}

type JoinResponse struct {
	PlayerID string
}

type envelope struct {
	id  string
	raw []byte
}

// Recorder observes session lifecycle and chat for persistence. All calls
// happen on the world goroutine and must not block.
type Recorder interface {
	RecordJoin(id, name string, ts int64)
	RecordLeave(id string, ts int64)
	RecordName(id, name string, ts int64)
	RecordChat(id, message string, ts int64)
}

// World is the single-threaded authoritative state: the session registry and
// the NPC flock. All state is touched only from the Run goroutine; transports
// talk to it through channels.
type World struct {
	cfg Config
	log *log.Logger

	sessions map[string]*Session
	flock    *npc.Flock

	join     chan JoinRequest
	leave    chan string
	position chan envelope
	message  chan envelope
	stop     chan struct{}

	recorder Recorder

	now func() time.Time
}

func New(cfg Config, rng *rand.Rand, logger *log.Logger) *World {
	return &World{
		cfg:      cfg.withDefaults(),
		log:      logger,
		sessions: map[string]*Session{},
		flock:    npc.NewFlock(rng),
		join:     make(chan JoinRequest, 64),
		leave:    make(chan string, 64),
		position: make(chan envelope, 1024),
		message:  make(chan envelope, 256),
		stop:     make(chan struct{}),
		now:      time.Now,
	}
}

func (w *World) SetRecorder(r Recorder) { w.recorder = r }

func (w *World) Join() chan<- JoinRequest { return w.join }
func (w *World) Leave() chan<- string     { return w.leave }

// SubmitPosition feeds an inbound position packet. Non-blocking: datagram
// semantics allow dropping under pressure.
func (w *World) SubmitPosition(id string, raw []byte) {
	select {
	case w.position <- envelope{id: id, raw: raw}:
	default:
	}
}

// SubmitMessage feeds an inbound reliable-channel JSON payload.
func (w *World) SubmitMessage(id string, raw []byte) {
	select {
	case w.message <- envelope{id: id, raw: raw}:
	default:
		w.log.Printf("message queue full, dropping from %s", id)
	}
}

// Run drives the world until the context ends. The three tickers are
// deliberately uncoordinated; state and NPC snapshots may reflect slightly
// different simulation instants, bounded by the fastest period.
func (w *World) Run(ctx context.Context) error {
	stateTicker := time.NewTicker(time.Second / time.Duration(w.cfg.StateHz))
	defer stateTicker.Stop()
	npcTicker := time.NewTicker(time.Second / time.Duration(w.cfg.NPCHz))
	defer npcTicker.Stop()
	simTicker := time.NewTicker(time.Second / time.Duration(w.cfg.SimHz))
	defer simTicker.Stop()

	lastSim := w.now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			w.handleJoin(req)
		case id := <-w.leave:
			w.handleLeave(id)
		case env := <-w.position:
			w.handlePosition(env.id, env.raw)
		case env := <-w.message:
			w.handleMessage(env.id, env.raw)
		case <-simTicker.C:
			now := w.now()
			w.flock.Advance(now.Sub(lastSim).Seconds())
			lastSim = now
		case <-stateTicker.C:
			w.broadcastState()
		case <-npcTicker.C:
			w.broadcastNPCs()
		}
	}
}

func (w *World) Stop() { close(w.stop) }

func (w *World) broadcastState() {
	if len(w.sessions) == 0 {
		return
	}
	players := make([]protocol.PlayerState, 0, len(w.sessions))
	for _, s := range w.sessions {
		players = append(players, protocol.PlayerState{
			ID:  s.ID,
			Pos: s.Pos,
			Rot: s.Rot,
			Vel: s.Vel,
		})
	}
	pkt := protocol.EncodeStateBroadcast(uint64(w.now().UnixMilli()), players)
	for _, s := range w.sessions {
		trySend(s.client.Unreliable, pkt)
	}
}

func (w *World) broadcastNPCs() {
	if len(w.sessions) == 0 {
		return
	}
	pkt := protocol.EncodeNPCBroadcast(w.flock.Snapshot())
	for _, s := range w.sessions {
		trySend(s.client.Unreliable, pkt)
	}
}

// trySend enqueues without blocking; a full queue drops the packet.
func trySend(ch chan []byte, b []byte) {
	if ch == nil {
		return
	}
	select {
	case ch <- b:
	default:
	}
}
