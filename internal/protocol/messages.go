package protocol

import "encoding/json"

// WELCOME (server -> client, exactly once, first message on the reliable channel)
type WelcomeMsg struct {
	Type       string `json:"type"`
	PlayerID   string `json:"playerId"`
	ServerTime int64  `json:"serverTime"`
}

// PLAYER_JOINED (server -> all clients; also used for the join backfill)
type PlayerJoinedMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name,omitempty"`
}

// PLAYER_LEFT (server -> all clients)
type PlayerLeftMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
}

// PLAYER_NAME (server -> all clients)
type PlayerNameMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// CHAT. The client sends {type, message}; the server rebroadcasts with the
// sender id and server timestamp attached.
type ChatMsg struct {
	Type      string `json:"type"`
	PlayerID  string `json:"playerId,omitempty"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// ACTION is an opaque application envelope: the core forwards it verbatim,
// attaching sender id and server timestamp. Params carry whatever the game
// layer above put there.
type ActionMsg struct {
	Type      string          `json:"type"`
	PlayerID  string          `json:"playerId,omitempty"`
	Action    string          `json:"action"`
	Params    json.RawMessage `json:"params,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// SET_NAME (client -> server)
type SetNameMsg struct {
	Type string `json:"type"`
	Name string `json:"name"`
}
