package protocol

import "encoding/json"

// Reliable-channel message types.
const (
	TypeWelcome      = "welcome"
	TypePlayerJoined = "player_joined"
	TypePlayerLeft   = "player_left"
	TypePlayerName   = "player_name"
	TypeChat         = "chat"
	TypeAction       = "action"
	TypeSetName      = "set_name"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
