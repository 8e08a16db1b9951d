package npc

// SpawnEntry fixes the kind and home position of one NPC.
type SpawnEntry struct {
	Kind Kind
	X, Z float64
}

// SpawnTable is the single source of truth for NPC identity. The wire
// protocol sends only the index into this table, so clients that
// pre-allocate visuals must mirror this list in exactly this order.
// Append-only; never reorder or remove entries.
var SpawnTable = []SpawnEntry{
	{KindCat, 12, 8},
	{KindCat, -18, 22},
	{KindDog, 5, -14},
	{KindDog, 30, 31},
	{KindChicken, -8, -6},
	{KindChicken, -10, -4},
	{KindChicken, -12, -8},
	{KindChicken, -6, -9},
	{KindRabbit, 45, -20},
	{KindRabbit, 48, -24},
	{KindRabbit, 41, -18},
	{KindDeer, -50, 40},
	{KindDeer, -55, 48},
	{KindDeer, -60, 35},
	{KindCat, 70, -70},
	{KindDog, -72, -65},
	{KindGiant, 0, 60},
	{KindGiant, -65, -10},
	{KindDeer, 140, 120},
	{KindDeer, 155, 110},
	{KindRabbit, 130, 150},
	{KindColossus, 150, -150},
}

// spawnOverride widens the roaming parameters for entries that live in the
// expanded map regions beyond the base island.
type spawnOverride struct {
	WanderRadius float64
	MapHalf      float64
}

var spawnOverrides = map[int]spawnOverride{
	18: {WanderRadius: 60, MapHalf: 200},
	19: {WanderRadius: 60, MapHalf: 200},
	20: {WanderRadius: 40, MapHalf: 200},
}

// NewFromSpawn builds the NPC at the given spawn-table index.
func NewFromSpawn(index int) *NPC {
	e := SpawnTable[index]
	p := defaultParams(e.Kind)
	if o, ok := spawnOverrides[index]; ok {
		p.WanderRadius = o.WanderRadius
		p.MapHalf = o.MapHalf
	}
	return &NPC{
		Index:   uint8(index),
		Kind:    e.Kind,
		Params:  p,
		HomeX:   e.X,
		HomeZ:   e.Z,
		X:       e.X,
		Z:       e.Z,
		TargetX: e.X,
		TargetZ: e.Z,
		State:   StatePaused,
	}
}
