package npc

import (
	"math"
	"math/rand"

	"kankeri.gg/internal/protocol"
)

// Flock simulates every NPC of the spawn table. It owns its RNG so tests can
// seed it; the server passes a time-seeded source.
type Flock struct {
	rng  *rand.Rand
	NPCs []*NPC
}

func NewFlock(rng *rand.Rand) *Flock {
	f := &Flock{rng: rng, NPCs: make([]*NPC, 0, len(SpawnTable))}
	for i := range SpawnTable {
		f.NPCs = append(f.NPCs, NewFromSpawn(i))
	}
	return f
}

// Advance steps every NPC by dt seconds of wall-clock time. dt is measured
// between scheduler ticks, not assumed, so jitter shifts timing but never
// teleports anyone.
func (f *Flock) Advance(dt float64) {
	for _, n := range f.NPCs {
		f.step(n, dt)
	}
}

func (f *Flock) step(n *NPC, dt float64) {
	switch n.State {
	case StatePaused:
		n.Timer -= dt
		if n.Timer <= 0 {
			f.pickTarget(n)
			n.State = StateWalking
		}

	case StateWalking:
		dx := n.TargetX - n.X
		dz := n.TargetZ - n.Z
		dist := math.Hypot(dx, dz)
		if dist < n.Params.ArriveRadius {
			n.State = StatePaused
			n.Timer = n.Params.PauseMin + f.rng.Float64()*(n.Params.PauseMax-n.Params.PauseMin)
			return
		}
		n.X += dx / dist * n.Params.Speed * dt
		n.Z += dz / dist * n.Params.Speed * dt

		heading := math.Atan2(dx, dz)
		if n.Params.Giant {
			// Giants turn gradually, always along the shorter arc.
			n.Yaw += wrapAngle(heading-n.Yaw) * n.Params.TurnRate * dt
		} else {
			n.Yaw = heading
		}
	}
}

// pickTarget draws a uniformly random point within WanderRadius of home and
// clamps it to the map bounds.
func (f *Flock) pickTarget(n *NPC) {
	ang := f.rng.Float64() * 2 * math.Pi
	dist := f.rng.Float64() * n.Params.WanderRadius
	n.TargetX = clamp(n.HomeX+math.Cos(ang)*dist, n.Params.MapHalf)
	n.TargetZ = clamp(n.HomeZ+math.Sin(ang)*dist, n.Params.MapHalf)
}

// Snapshot converts current positions into wire entries, in spawn order.
func (f *Flock) Snapshot() []protocol.NPCUpdate {
	out := make([]protocol.NPCUpdate, len(f.NPCs))
	for i, n := range f.NPCs {
		out[i] = protocol.NPCUpdate{
			Index: n.Index,
			X:     float32(n.X),
			Z:     float32(n.Z),
			Yaw:   float32(n.Yaw),
		}
	}
	return out
}

func clamp(v, half float64) float64 {
	if v < -half {
		return -half
	}
	if v > half {
		return half
	}
	return v
}

// wrapAngle maps an angle difference into [-pi, pi].
func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
