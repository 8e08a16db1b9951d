package world

import (
	"encoding/json"

	"github.com/google/uuid"

	"kankeri.gg/internal/protocol"
)

// Session is the server-side record for one connected player. The id is
// always server-generated; a client-supplied id is never trusted.
type Session struct {
	ID   string
	Name string

	Pos protocol.Vec3
	Rot protocol.Vec3 // only Y (yaw) is ever written
	Vel protocol.Vec3

	LastUpdate int64 // unix ms of the last position packet

	client Client
}

func (w *World) handleJoin(req JoinRequest) {
	id := uuid.NewString()
	now := w.now().UnixMilli()

	s := &Session{
		ID:         id,
		Name:       req.Name,
		LastUpdate: now,
		client:     req.Client,
	}

	// Welcome is the first message on the newcomer's reliable channel.
	w.sendTo(s, protocol.WelcomeMsg{
		Type:       protocol.TypeWelcome,
		PlayerID:   id,
		ServerTime: now,
	})

	// Tell everyone else, then backfill the newcomer with the current roster.
	w.broadcastReliable(protocol.PlayerJoinedMsg{
		Type:     protocol.TypePlayerJoined,
		PlayerID: id,
		Name:     req.Name,
	}, id)
	for _, other := range w.sessions {
		w.sendTo(s, protocol.PlayerJoinedMsg{
			Type:     protocol.TypePlayerJoined,
			PlayerID: other.ID,
			Name:     other.Name,
		})
	}

	w.sessions[id] = s
	if w.recorder != nil {
		w.recorder.RecordJoin(id, req.Name, now)
	}
	w.log.Printf("join %s (%d online)", id, len(w.sessions))

	if req.Resp != nil {
		req.Resp <- JoinResponse{PlayerID: id}
	}
}

// handleLeave is idempotent: disconnect and error paths may both land here.
func (w *World) handleLeave(id string) {
	if _, ok := w.sessions[id]; !ok {
		return
	}
	delete(w.sessions, id)
	w.broadcastReliable(protocol.PlayerLeftMsg{
		Type:     protocol.TypePlayerLeft,
		PlayerID: id,
	}, "")
	if w.recorder != nil {
		w.recorder.RecordLeave(id, w.now().UnixMilli())
	}
	w.log.Printf("leave %s (%d online)", id, len(w.sessions))
}

// handlePosition applies an inbound 0x01 packet. Only position and yaw are
// taken from the wire; malformed packets are dropped without a trace.
func (w *World) handlePosition(id string, raw []byte) {
	s, ok := w.sessions[id]
	if !ok {
		return
	}
	p, err := protocol.DecodePositionUpdate(raw)
	if err != nil {
		return
	}
	s.Pos = p.Pos
	s.Rot.Y = p.Rot.Y
	s.LastUpdate = w.now().UnixMilli()
}

// sendTo marshals onto one session's reliable channel.
func (w *World) sendTo(s *Session, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	trySend(s.client.Reliable, b)
}

// broadcastReliable fans out to every session except the one named by skip.
func (w *World) broadcastReliable(v any, skip string) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	for id, s := range w.sessions {
		if id == skip {
			continue
		}
		trySend(s.client.Reliable, b)
	}
}
