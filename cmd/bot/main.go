package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"kankeri.gg/internal/client"
	"kankeri.gg/internal/client/reconcile"
	"kankeri.gg/internal/protocol"
)

// A headless player: wanders the map, chats occasionally, and runs a
// reconciler over everyone else so the full client path gets exercised
// without a browser.
func main() {
	var (
		url      = flag.String("url", "", "webtransport url (https://...), optional")
		fallback = flag.String("fallback", "ws://localhost:8080/v1/sync", "websocket url")
		name     = flag.String("name", "bot", "display name")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	rec := reconcile.New(reconcile.Defaults())
	var selfID string

	var m *client.Manager
	m = client.NewManager(client.Options{
		URL:         *url,
		FallbackURL: *fallback,
		Logger:      logger,
	}, client.Events{
		Connected: func(id string) {
			selfID = id
			m.SetName(*name)
			logger.Printf("connected as %s", id)
		},
		Disconnected: func(reason string) {
			logger.Printf("disconnected: %s", reason)
		},
		PlayerJoined: func(id, name string) {
			logger.Printf("joined: %s (%s)", id, name)
		},
		PlayerLeft: func(id string) {
			rec.Remove(id)
			logger.Printf("left: %s", id)
		},
		Chat: func(c protocol.ChatMsg) {
			logger.Printf("<%s> %s", c.PlayerID, c.Message)
		},
		StateUpdate: func(s protocol.StateBroadcast) {
			for _, p := range s.Players {
				if p.ID == selfID {
					continue
				}
				rec.Observe(p.ID, [3]float64{float64(p.Pos.X), float64(p.Pos.Y), float64(p.Pos.Z)}, float64(p.Rot.Y))
			}
		},
	})

	if err := m.Connect(); err != nil {
		logger.Fatalf("connect: %v", err)
	}
	defer m.Disconnect()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	// Wander between random points at a walking pace, ticking the
	// reconciler the way a render loop would.
	x, z := rng.Float64()*20-10, rng.Float64()*20-10
	tx, tz := x, z
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	chatTicker := time.NewTicker(45 * time.Second)
	defer chatTicker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-chatTicker.C:
			m.SendChat(fmt.Sprintf("wandering at (%.0f, %.0f)", x, z))
		case <-ticker.C:
			dx, dz := tx-x, tz-z
			dist := math.Hypot(dx, dz)
			if dist < 0.5 {
				tx = rng.Float64()*120 - 60
				tz = rng.Float64()*120 - 60
				continue
			}
			x += dx / dist * 3 * 0.05
			z += dz / dist * 3 * 0.05
			m.SendPosition(float32(x), 0, float32(z), float32(math.Atan2(dx, dz)))
			rec.Tick()
		}
	}
}
