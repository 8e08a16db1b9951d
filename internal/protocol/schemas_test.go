package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"kankeri.gg/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, raw []byte) {
		t.Helper()
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			t.Fatalf("unmarshal sample: %v", err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	validate(compile("welcome.schema.json"), []byte(`{
	  "type":"welcome",
	  "playerId":"11111111-1111-1111-1111-111111111111",
	  "serverTime":1720000000000
	}`))

	validate(compile("player_joined.schema.json"), []byte(`{
	  "type":"player_joined",
	  "playerId":"11111111-1111-1111-1111-111111111111",
	  "name":"pate"
	}`))

	validate(compile("player_left.schema.json"), []byte(`{
	  "type":"player_left",
	  "playerId":"11111111-1111-1111-1111-111111111111"
	}`))

	validate(compile("player_name.schema.json"), []byte(`{
	  "type":"player_name",
	  "playerId":"11111111-1111-1111-1111-111111111111",
	  "name":"pate"
	}`))

	validate(compile("chat.schema.json"), []byte(`{
	  "type":"chat",
	  "playerId":"11111111-1111-1111-1111-111111111111",
	  "message":"moro",
	  "timestamp":1720000000000
	}`))

	validate(compile("action.schema.json"), []byte(`{
	  "type":"action",
	  "playerId":"11111111-1111-1111-1111-111111111111",
	  "action":"kick_can",
	  "params":{"canId":3},
	  "timestamp":1720000000000
	}`))

	validate(compile("set_name.schema.json"), []byte(`{
	  "type":"set_name",
	  "name":"pate"
	}`))
}

// The server-side structs must marshal into shapes the schemas accept.
func TestSchemas_StructsMatch(t *testing.T) {
	s, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", "welcome.schema.json"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	raw, err := json.Marshal(protocol.WelcomeMsg{
		Type:       protocol.TypeWelcome,
		PlayerID:   "11111111-1111-1111-1111-111111111111",
		ServerTime: 1720000000000,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(v); err != nil {
		t.Fatalf("validate marshaled WelcomeMsg: %v", err)
	}
}
