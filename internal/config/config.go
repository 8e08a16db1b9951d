package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server Server `yaml:"server"`
	World  World  `yaml:"world"`
	Client Client `yaml:"client"`
	Data   Data   `yaml:"data"`
}

type Server struct {
	HTTPAddr string `yaml:"http_addr"` // websocket + healthz
	WTAddr   string `yaml:"wt_addr"`   // webtransport (UDP/QUIC)
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type World struct {
	StateHz int `yaml:"state_hz"`
	NPCHz   int `yaml:"npc_hz"`
	SimHz   int `yaml:"sim_hz"`
}

// Client holds the defaults handed to connection managers (the bot uses
// them directly; browser builds read the same file at bundle time).
type Client struct {
	URL               string `yaml:"url"`
	FallbackURL       string `yaml:"fallback_url"`
	ReconnectAttempts int    `yaml:"reconnect_attempts"`
	ReconnectDelayMs  int    `yaml:"reconnect_delay_ms"`
	StaleAfterMs      int    `yaml:"stale_after_ms"`
}

func (c Client) ReconnectDelay() time.Duration { return time.Duration(c.ReconnectDelayMs) * time.Millisecond }
func (c Client) StaleAfter() time.Duration     { return time.Duration(c.StaleAfterMs) * time.Millisecond }

type Data struct {
	Dir      string `yaml:"dir"`
	EventLog bool   `yaml:"event_log"`
	IndexDB  bool   `yaml:"index_db"`
}

func Defaults() Config {
	return Config{
		Server: Server{
			HTTPAddr: ":8080",
			WTAddr:   ":4433",
		},
		World: World{
			StateHz: 20,
			NPCHz:   10,
			SimHz:   30,
		},
		Client: Client{
			FallbackURL:       "ws://localhost:8080/v1/sync",
			ReconnectAttempts: 5,
			ReconnectDelayMs:  2000,
			StaleAfterMs:      5000,
		},
		Data: Data{
			Dir:      "./data",
			EventLog: true,
			IndexDB:  true,
		},
	}
}

// Load reads the YAML config at path on top of the defaults.
func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("config.yaml: %w", err)
	}
	return c, nil
}
