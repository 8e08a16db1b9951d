// Package reconcile smooths authoritative remote-player updates into
// per-frame transforms: exponential position blending, shortest-arc yaw
// interpolation and a measured-speed gait signal for animation.
package reconcile

import (
	"math"
	"time"
)

type Config struct {
	PosBlend      float64       // fraction of remaining distance covered per tick
	YawBlend      float64       // fraction of remaining yaw covered per tick
	GaitBlend     float64       // easing of the measured-speed signal
	RestThreshold float64       // measured speed under which gait eases to rest
	StaleAfter    time.Duration // no update for this long marks the entity stale
}

func Defaults() Config {
	return Config{
		// Per-tick blend, tuned against the usual 60 Hz render loop. Not
		// normalized by frame time; retune for other tick rates.
		PosBlend:      0.15,
		YawBlend:      0.2,
		GaitBlend:     0.25,
		RestThreshold: 0.005,
		StaleAfter:    5 * time.Second,
	}
}

// Entity is one remote player's smoothed transform. Pos/Yaw are what the
// renderer reads; Gait is the eased movement speed for animation blending.
type Entity struct {
	ID string

	Pos  [3]float64
	Yaw  float64
	Gait float64

	targetPos  [3]float64
	targetYaw  float64
	lastUpdate time.Time
	fresh      bool
}

// Reconciler tracks every remote entity. Not safe for concurrent use; drive
// it from the render loop.
type Reconciler struct {
	cfg      Config
	entities map[string]*Entity
	now      func() time.Time
}

func New(cfg Config) *Reconciler {
	return &Reconciler{
		cfg:      cfg,
		entities: map[string]*Entity{},
		now:      time.Now,
	}
}

// Observe records an authoritative transform. The latest received update is
// always the target: an out-of-order packet simply overwrites, never queues.
func (r *Reconciler) Observe(id string, pos [3]float64, yaw float64) {
	e, ok := r.entities[id]
	if !ok {
		// First sighting spawns at the authoritative position, no easing in
		// from the origin.
		e = &Entity{ID: id, Pos: pos, Yaw: yaw, fresh: true}
		r.entities[id] = e
	}
	e.targetPos = pos
	e.targetYaw = yaw
	e.lastUpdate = r.now()
}

// Remove drops an entity on an explicit leave notification.
func (r *Reconciler) Remove(id string) {
	delete(r.entities, id)
}

// Get returns the smoothed entity, or nil.
func (r *Reconciler) Get(id string) *Entity {
	return r.entities[id]
}

// Tick advances every entity one render frame and evicts stale ones,
// returning the ids it removed. Staleness is re-checked on every tick, so an
// entity whose updates stop mid-session still ages out.
func (r *Reconciler) Tick() []string {
	var removed []string
	now := r.now()
	for id, e := range r.entities {
		if now.Sub(e.lastUpdate) > r.cfg.StaleAfter {
			delete(r.entities, id)
			removed = append(removed, id)
			continue
		}
		r.step(e)
	}
	return removed
}

func (r *Reconciler) step(e *Entity) {
	if e.fresh {
		e.fresh = false
		return
	}

	var moved float64
	for i := 0; i < 3; i++ {
		d := (e.targetPos[i] - e.Pos[i]) * r.cfg.PosBlend
		e.Pos[i] += d
		moved += d * d
	}
	moved = math.Sqrt(moved)

	// Gait follows the measured per-tick movement, not the authoritative
	// velocity field, and eases back to rest once movement stops.
	target := moved
	if target < r.cfg.RestThreshold {
		target = 0
	}
	e.Gait += (target - e.Gait) * r.cfg.GaitBlend

	e.Yaw += wrapAngle(e.targetYaw-e.Yaw) * r.cfg.YawBlend
}

// wrapAngle maps an angle difference into [-pi, pi] so yaw always takes the
// shorter arc.
func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
