package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Binary packet tags. All multi-byte fields are little-endian.
const (
	TagPositionUpdate = 0x01 // client -> server, 25 bytes
	TagNPCBroadcast   = 0xFE // server -> clients, 3-byte header + 13 bytes/entry
	TagStateBroadcast = 0xFF // server -> clients, 11-byte header + 72 bytes/entry
)

const (
	PositionUpdateSize = 25

	stateHeaderSize = 11
	stateEntrySize  = 72
	sessionIDSize   = 36

	npcHeaderSize = 3
	npcEntrySize  = 13
)

type Vec3 struct {
	X, Y, Z float32
}

// PositionUpdate is the client's own transform. Rot.X and Rot.Z exist in the
// wire layout for forward compatibility; only Rot.Y (yaw) carries meaning.
type PositionUpdate struct {
	Pos Vec3
	Rot Vec3
}

// PlayerState is one entry of a full state broadcast.
type PlayerState struct {
	ID  string
	Pos Vec3
	Rot Vec3
	Vel Vec3
}

// StateBroadcast is the decoded form of a TagStateBroadcast packet.
type StateBroadcast struct {
	ServerTime uint64
	Players    []PlayerState
}

// NPCUpdate is one entry of an NPC broadcast. Index refers to the shared
// spawn table; ordering of that table is part of the wire contract.
type NPCUpdate struct {
	Index uint8
	X     float32
	Z     float32
	Yaw   float32
}

func putFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func getFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func putVec3(b []byte, v Vec3) {
	putFloat32(b[0:], v.X)
	putFloat32(b[4:], v.Y)
	putFloat32(b[8:], v.Z)
}

func getVec3(b []byte) Vec3 {
	return Vec3{X: getFloat32(b[0:]), Y: getFloat32(b[4:]), Z: getFloat32(b[8:])}
}

// EncodePositionUpdate builds a 25-byte TagPositionUpdate packet.
func EncodePositionUpdate(p PositionUpdate) []byte {
	b := make([]byte, PositionUpdateSize)
	b[0] = TagPositionUpdate
	putVec3(b[1:], p.Pos)
	putVec3(b[13:], p.Rot)
	return b
}

// DecodePositionUpdate rejects short buffers and wrong tags; callers are
// expected to drop the packet silently on error.
func DecodePositionUpdate(b []byte) (PositionUpdate, error) {
	if len(b) < PositionUpdateSize {
		return PositionUpdate{}, fmt.Errorf("position update: %d bytes, want %d", len(b), PositionUpdateSize)
	}
	if b[0] != TagPositionUpdate {
		return PositionUpdate{}, fmt.Errorf("position update: bad tag 0x%02X", b[0])
	}
	return PositionUpdate{
		Pos: getVec3(b[1:]),
		Rot: getVec3(b[13:]),
	}, nil
}

// EncodeStateBroadcast builds a TagStateBroadcast packet. Session ids are
// written into a fixed 36-byte field: longer ids are truncated, shorter ids
// are NUL-padded.
func EncodeStateBroadcast(serverTime uint64, players []PlayerState) []byte {
	b := make([]byte, stateHeaderSize+len(players)*stateEntrySize)
	b[0] = TagStateBroadcast
	binary.LittleEndian.PutUint64(b[1:], serverTime)
	binary.LittleEndian.PutUint16(b[9:], uint16(len(players)))
	off := stateHeaderSize
	for _, p := range players {
		copy(b[off:off+sessionIDSize], p.ID)
		putVec3(b[off+36:], p.Pos)
		putVec3(b[off+48:], p.Rot)
		putVec3(b[off+60:], p.Vel)
		off += stateEntrySize
	}
	return b
}

// DecodeStateBroadcast decodes as many complete entries as the buffer holds.
// A declared count that overruns the buffer truncates iteration rather than
// failing; a buffer shorter than the header is rejected.
func DecodeStateBroadcast(b []byte) (StateBroadcast, error) {
	if len(b) < stateHeaderSize {
		return StateBroadcast{}, fmt.Errorf("state broadcast: %d bytes, want >= %d", len(b), stateHeaderSize)
	}
	if b[0] != TagStateBroadcast {
		return StateBroadcast{}, fmt.Errorf("state broadcast: bad tag 0x%02X", b[0])
	}
	out := StateBroadcast{
		ServerTime: binary.LittleEndian.Uint64(b[1:]),
	}
	n := int(binary.LittleEndian.Uint16(b[9:]))
	if avail := (len(b) - stateHeaderSize) / stateEntrySize; n > avail {
		n = avail
	}
	out.Players = make([]PlayerState, 0, n)
	off := stateHeaderSize
	for i := 0; i < n; i++ {
		out.Players = append(out.Players, PlayerState{
			ID:  trimSessionID(b[off : off+sessionIDSize]),
			Pos: getVec3(b[off+36:]),
			Rot: getVec3(b[off+48:]),
			Vel: getVec3(b[off+60:]),
		})
		off += stateEntrySize
	}
	return out, nil
}

// EncodeNPCBroadcast builds a TagNPCBroadcast packet.
func EncodeNPCBroadcast(npcs []NPCUpdate) []byte {
	b := make([]byte, npcHeaderSize+len(npcs)*npcEntrySize)
	b[0] = TagNPCBroadcast
	binary.LittleEndian.PutUint16(b[1:], uint16(len(npcs)))
	off := npcHeaderSize
	for _, n := range npcs {
		b[off] = n.Index
		putFloat32(b[off+1:], n.X)
		putFloat32(b[off+5:], n.Z)
		putFloat32(b[off+9:], n.Yaw)
		off += npcEntrySize
	}
	return b
}

// DecodeNPCBroadcast mirrors DecodeStateBroadcast's truncation behavior.
func DecodeNPCBroadcast(b []byte) ([]NPCUpdate, error) {
	if len(b) < npcHeaderSize {
		return nil, fmt.Errorf("npc broadcast: %d bytes, want >= %d", len(b), npcHeaderSize)
	}
	if b[0] != TagNPCBroadcast {
		return nil, fmt.Errorf("npc broadcast: bad tag 0x%02X", b[0])
	}
	n := int(binary.LittleEndian.Uint16(b[1:]))
	if avail := (len(b) - npcHeaderSize) / npcEntrySize; n > avail {
		n = avail
	}
	out := make([]NPCUpdate, 0, n)
	off := npcHeaderSize
	for i := 0; i < n; i++ {
		out = append(out, NPCUpdate{
			Index: b[off],
			X:     getFloat32(b[off+1:]),
			Z:     getFloat32(b[off+5:]),
			Yaw:   getFloat32(b[off+9:]),
		})
		off += npcEntrySize
	}
	return out, nil
}

// trimSessionID strips the NUL padding of the fixed 36-byte id field plus any
// surrounding whitespace.
func trimSessionID(raw []byte) string {
	return strings.TrimSpace(strings.Trim(string(raw), "\x00"))
}
