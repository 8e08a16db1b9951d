package world

import (
	"encoding/json"

	"kankeri.gg/internal/protocol"
)

// handleMessage routes one reliable-channel payload. Malformed JSON and
// unknown types are dropped; the core guarantees fan-out, not meaning.
func (w *World) handleMessage(id string, raw []byte) {
	s, ok := w.sessions[id]
	if !ok {
		return
	}
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		return
	}

	switch base.Type {
	case protocol.TypeChat:
		var m protocol.ChatMsg
		if err := json.Unmarshal(raw, &m); err != nil || m.Message == "" {
			return
		}
		ts := w.now().UnixMilli()
		w.broadcastReliable(protocol.ChatMsg{
			Type:      protocol.TypeChat,
			PlayerID:  id,
			Message:   m.Message,
			Timestamp: ts,
		}, "")
		if w.recorder != nil {
			w.recorder.RecordChat(id, m.Message, ts)
		}

	case protocol.TypeSetName:
		var m protocol.SetNameMsg
		if err := json.Unmarshal(raw, &m); err != nil || m.Name == "" {
			return
		}
		s.Name = m.Name
		w.broadcastReliable(protocol.PlayerNameMsg{
			Type:     protocol.TypePlayerName,
			PlayerID: id,
			Name:     m.Name,
		}, "")
		if w.recorder != nil {
			w.recorder.RecordName(id, m.Name, w.now().UnixMilli())
		}

	case protocol.TypeAction:
		var m protocol.ActionMsg
		if err := json.Unmarshal(raw, &m); err != nil || m.Action == "" {
			return
		}
		// Opaque envelope: params pass through untouched, sender and server
		// time attached, sender excluded from the fan-out.
		w.broadcastReliable(protocol.ActionMsg{
			Type:      protocol.TypeAction,
			PlayerID:  id,
			Action:    m.Action,
			Params:    m.Params,
			Timestamp: w.now().UnixMilli(),
		}, id)

	default:
		// Unrecognized type: ignore.
	}
}
