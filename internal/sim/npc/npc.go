package npc

// Kind selects the movement parameters of an NPC.
type Kind string

const (
	KindChicken  Kind = "chicken"
	KindCat      Kind = "cat"
	KindDog      Kind = "dog"
	KindRabbit   Kind = "rabbit"
	KindDeer     Kind = "deer"
	KindGiant    Kind = "giant"
	KindColossus Kind = "colossus"
)

// State of the per-NPC wander machine.
type State uint8

const (
	StatePaused State = iota
	StateWalking
)

func (s State) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StateWalking:
		return "walking"
	}
	return "unknown"
}

// Params are the movement constants of a kind. TurnRate is only used by
// giants; ordinary creatures snap their facing to the movement direction.
type Params struct {
	Speed        float64 // units/s
	WanderRadius float64 // max distance of a wander target from home
	MapHalf      float64 // position clamp on both axes
	PauseMin     float64 // seconds
	PauseMax     float64 // seconds
	ArriveRadius float64 // distance under which the target counts as reached
	TurnRate     float64 // rad/s toward the movement direction
	Giant        bool
}

func defaultParams(k Kind) Params {
	switch k {
	case KindChicken:
		return Params{Speed: 1.2, WanderRadius: 15, MapHalf: 80, PauseMin: 1, PauseMax: 4, ArriveRadius: 0.5}
	case KindCat:
		return Params{Speed: 2, WanderRadius: 25, MapHalf: 80, PauseMin: 2, PauseMax: 6, ArriveRadius: 0.5}
	case KindDog:
		return Params{Speed: 3, WanderRadius: 30, MapHalf: 80, PauseMin: 1, PauseMax: 5, ArriveRadius: 0.5}
	case KindRabbit:
		return Params{Speed: 4, WanderRadius: 20, MapHalf: 80, PauseMin: 0.5, PauseMax: 3, ArriveRadius: 0.5}
	case KindDeer:
		return Params{Speed: 3.5, WanderRadius: 40, MapHalf: 80, PauseMin: 2, PauseMax: 8, ArriveRadius: 0.5}
	case KindGiant:
		return Params{Speed: 1.5, WanderRadius: 60, MapHalf: 80, PauseMin: 4, PauseMax: 12, ArriveRadius: 4, TurnRate: 1.2, Giant: true}
	case KindColossus:
		return Params{Speed: 1, WanderRadius: 90, MapHalf: 200, PauseMin: 6, PauseMax: 18, ArriveRadius: 8, TurnRate: 0.6, Giant: true}
	}
	return Params{Speed: 1, WanderRadius: 10, MapHalf: 80, PauseMin: 1, PauseMax: 4, ArriveRadius: 0.5}
}

// NPC is one simulated creature. Index is its position in the spawn table;
// that ordering is shared with clients and must never change.
type NPC struct {
	Index  uint8
	Kind   Kind
	Params Params

	HomeX, HomeZ     float64
	X, Z             float64
	TargetX, TargetZ float64
	Yaw              float64

	State State
	Timer float64 // remaining pause seconds while paused
}
