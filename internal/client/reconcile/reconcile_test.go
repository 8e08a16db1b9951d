package reconcile

import (
	"math"
	"testing"
	"time"
)

func fixedClock(r *Reconciler) *time.Time {
	now := time.UnixMilli(0)
	r.now = func() time.Time { return now }
	return &now
}

func dist(a, b [3]float64) float64 {
	var s float64
	for i := 0; i < 3; i++ {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

func TestApproach_MonotonicAndShortestYaw(t *testing.T) {
	r := New(Defaults())
	fixedClock(r)

	r.Observe("p", [3]float64{0, 0, 0}, math.Pi)
	r.Tick() // consume the spawn tick
	r.Observe("p", [3]float64{10, 0, 0}, 0)

	e := r.Get("p")
	target := [3]float64{10, 0, 0}
	prev := dist(e.Pos, target)
	var totalTurn float64
	prevYaw := e.Yaw

	for i := 0; i < 120; i++ {
		r.Tick()
		d := dist(e.Pos, target)
		if d >= prev && prev > 1e-9 {
			t.Fatalf("tick %d: distance grew %v -> %v", i, prev, d)
		}
		prev = d
		totalTurn += math.Abs(e.Yaw - prevYaw)
		prevYaw = e.Yaw
	}

	if prev > 0.01 {
		t.Fatalf("did not converge: still %v away", prev)
	}
	// The long way around would accumulate close to 2*pi.
	if totalTurn > math.Pi+0.1 {
		t.Fatalf("yaw took the long path: turned %v total", totalTurn)
	}
	if math.Abs(wrapAngle(e.Yaw)) > 0.05 {
		t.Fatalf("yaw did not converge: %v", e.Yaw)
	}
}

func TestObserve_LatestWins(t *testing.T) {
	r := New(Defaults())
	fixedClock(r)

	r.Observe("p", [3]float64{0, 0, 0}, 0)
	r.Observe("p", [3]float64{5, 0, 0}, 0) // newer
	r.Observe("p", [3]float64{2, 0, 0}, 0) // out-of-order arrival, still latest received

	e := r.Get("p")
	if e.targetPos != [3]float64{2, 0, 0} {
		t.Fatalf("target: %v, latest received must win", e.targetPos)
	}
}

func TestFirstSighting_SpawnsAtAuthoritativePosition(t *testing.T) {
	r := New(Defaults())
	fixedClock(r)

	r.Observe("p", [3]float64{40, 2, -7}, 1.5)
	e := r.Get("p")
	if e.Pos != [3]float64{40, 2, -7} || e.Yaw != 1.5 {
		t.Fatalf("spawned at %v yaw %v, want the authoritative transform", e.Pos, e.Yaw)
	}
}

func TestGait_FollowsMeasuredSpeedAndEasesToRest(t *testing.T) {
	r := New(Defaults())
	fixedClock(r)

	r.Observe("p", [3]float64{0, 0, 0}, 0)
	r.Tick()
	r.Observe("p", [3]float64{10, 0, 0}, 0)
	e := r.Get("p")

	r.Tick()
	moving := e.Gait
	if moving <= 0 {
		t.Fatalf("gait did not pick up while moving: %v", moving)
	}

	// Converge, then verify the gait eases back under the moving value.
	for i := 0; i < 400; i++ {
		r.Tick()
	}
	if e.Gait >= moving/10 {
		t.Fatalf("gait did not ease to rest: %v", e.Gait)
	}
}

func TestStaleness_EvictedOnLaterTick(t *testing.T) {
	r := New(Defaults())
	now := fixedClock(r)

	r.Observe("p", [3]float64{1, 0, 0}, 0)
	if removed := r.Tick(); len(removed) != 0 {
		t.Fatalf("fresh entity evicted: %v", removed)
	}

	*now = now.Add(6 * time.Second)
	removed := r.Tick()
	if len(removed) != 1 || removed[0] != "p" {
		t.Fatalf("stale entity not evicted: %v", removed)
	}
	if r.Get("p") != nil {
		t.Fatal("entity still present after eviction")
	}
}

func TestRemove_ExplicitLeave(t *testing.T) {
	r := New(Defaults())
	fixedClock(r)

	r.Observe("p", [3]float64{}, 0)
	r.Remove("p")
	if r.Get("p") != nil {
		t.Fatal("entity present after Remove")
	}
}
