package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_OverridesDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(p, []byte(`
server:
  http_addr: ":9090"
world:
  state_hz: 10
client:
  reconnect_attempts: 3
  reconnect_delay_ms: 500
`), 0o644)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.HTTPAddr != ":9090" {
		t.Fatalf("http_addr: %q", c.Server.HTTPAddr)
	}
	if c.World.StateHz != 10 {
		t.Fatalf("state_hz: %d", c.World.StateHz)
	}
	if c.Client.ReconnectAttempts != 3 || c.Client.ReconnectDelay().Milliseconds() != 500 {
		t.Fatalf("client: %+v", c.Client)
	}
	// Untouched keys keep their defaults.
	if c.World.NPCHz != 10 || c.Server.WTAddr != ":4433" {
		t.Fatalf("defaults lost: %+v", c)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if c.Server.HTTPAddr != ":8080" {
		t.Fatalf("defaults not returned: %+v", c.Server)
	}
}
