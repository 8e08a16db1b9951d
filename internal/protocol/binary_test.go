package protocol

import (
	"math"
	"testing"
)

func almostEqual(a, b float32) bool {
	return math.Abs(float64(a)-float64(b)) <= 1e-5
}

func TestStateBroadcast_RoundTrip(t *testing.T) {
	in := []PlayerState{
		{
			ID:  "11111111-1111-1111-1111-111111111111",
			Pos: Vec3{X: 1, Y: 2, Z: 3},
			Rot: Vec3{Y: 0.5},
			Vel: Vec3{X: 0.1, Z: -0.2},
		},
		{
			ID:  "22222222-2222-2222-2222-222222222222",
			Pos: Vec3{X: -1, Y: 0, Z: 4},
			Rot: Vec3{Y: -1.2},
		},
	}
	b := EncodeStateBroadcast(123456789, in)
	wantLen := 11 + 2*72
	if len(b) != wantLen {
		t.Fatalf("encoded length: got %d want %d", len(b), wantLen)
	}

	out, err := DecodeStateBroadcast(b)
	if err != nil {
		t.Fatalf("DecodeStateBroadcast: %v", err)
	}
	if out.ServerTime != 123456789 {
		t.Fatalf("server time: got %d want 123456789", out.ServerTime)
	}
	if len(out.Players) != 2 {
		t.Fatalf("players: got %d want 2", len(out.Players))
	}
	for i := range in {
		got, want := out.Players[i], in[i]
		if got.ID != want.ID {
			t.Fatalf("player %d id: got %q want %q", i, got.ID, want.ID)
		}
		pairs := [][2]float32{
			{got.Pos.X, want.Pos.X}, {got.Pos.Y, want.Pos.Y}, {got.Pos.Z, want.Pos.Z},
			{got.Rot.Y, want.Rot.Y},
			{got.Vel.X, want.Vel.X}, {got.Vel.Y, want.Vel.Y}, {got.Vel.Z, want.Vel.Z},
		}
		for j, p := range pairs {
			if !almostEqual(p[0], p[1]) {
				t.Fatalf("player %d field %d: got %v want %v", i, j, p[0], p[1])
			}
		}
	}
}

func TestStateBroadcast_ShortIDPadding(t *testing.T) {
	b := EncodeStateBroadcast(0, []PlayerState{{ID: "short"}})
	// Remainder of the 36-byte field must be NUL, never garbage.
	for i := 11 + 5; i < 11+36; i++ {
		if b[i] != 0 {
			t.Fatalf("byte %d: got 0x%02X want 0x00", i, b[i])
		}
	}
	out, err := DecodeStateBroadcast(b)
	if err != nil {
		t.Fatalf("DecodeStateBroadcast: %v", err)
	}
	if out.Players[0].ID != "short" {
		t.Fatalf("id: got %q want %q", out.Players[0].ID, "short")
	}
}

func TestStateBroadcast_LongIDTruncated(t *testing.T) {
	long := "11111111-1111-1111-1111-111111111111-extra"
	b := EncodeStateBroadcast(0, []PlayerState{{ID: long}})
	out, err := DecodeStateBroadcast(b)
	if err != nil {
		t.Fatalf("DecodeStateBroadcast: %v", err)
	}
	if got := out.Players[0].ID; got != long[:36] {
		t.Fatalf("id: got %q want %q", got, long[:36])
	}
}

func TestStateBroadcast_TruncationSafety(t *testing.T) {
	b := EncodeStateBroadcast(42, []PlayerState{
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	})

	// Shorter than the header: rejected, no panic.
	if _, err := DecodeStateBroadcast(b[:7]); err == nil {
		t.Fatal("expected error for sub-header buffer")
	}

	// Declared count overruns the buffer: decode what fits.
	out, err := DecodeStateBroadcast(b[:11+72+30])
	if err != nil {
		t.Fatalf("DecodeStateBroadcast: %v", err)
	}
	if len(out.Players) != 1 {
		t.Fatalf("players: got %d want 1", len(out.Players))
	}
	if out.Players[0].ID != "a" {
		t.Fatalf("id: got %q want %q", out.Players[0].ID, "a")
	}
}

func TestStateBroadcast_WrongTag(t *testing.T) {
	b := EncodeStateBroadcast(0, nil)
	b[0] = TagNPCBroadcast
	if _, err := DecodeStateBroadcast(b); err == nil {
		t.Fatal("expected error for wrong tag")
	}
}

func TestPositionUpdate_RoundTrip(t *testing.T) {
	in := PositionUpdate{
		Pos: Vec3{X: 4.5, Y: 1.25, Z: -9},
		Rot: Vec3{Y: 2.75},
	}
	b := EncodePositionUpdate(in)
	if len(b) != PositionUpdateSize {
		t.Fatalf("encoded length: got %d want %d", len(b), PositionUpdateSize)
	}
	out, err := DecodePositionUpdate(b)
	if err != nil {
		t.Fatalf("DecodePositionUpdate: %v", err)
	}
	if out != in {
		t.Fatalf("round trip: got %+v want %+v", out, in)
	}
}

func TestPositionUpdate_TooShort(t *testing.T) {
	if _, err := DecodePositionUpdate(make([]byte, 10)); err == nil {
		t.Fatal("expected error for 10-byte buffer")
	}
}

func TestNPCBroadcast_RoundTrip(t *testing.T) {
	in := []NPCUpdate{
		{Index: 0, X: 12, Z: 8, Yaw: 0.25},
		{Index: 7, X: -40.5, Z: 79.5, Yaw: -3},
	}
	b := EncodeNPCBroadcast(in)
	if len(b) != 3+2*13 {
		t.Fatalf("encoded length: got %d want %d", len(b), 3+2*13)
	}
	out, err := DecodeNPCBroadcast(b)
	if err != nil {
		t.Fatalf("DecodeNPCBroadcast: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("entries: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("entry %d: got %+v want %+v", i, out[i], in[i])
		}
	}
}

func TestNPCBroadcast_TruncationSafety(t *testing.T) {
	b := EncodeNPCBroadcast([]NPCUpdate{{Index: 1}, {Index: 2}})
	out, err := DecodeNPCBroadcast(b[:3+13+5])
	if err != nil {
		t.Fatalf("DecodeNPCBroadcast: %v", err)
	}
	if len(out) != 1 || out[0].Index != 1 {
		t.Fatalf("entries: got %+v want one entry with index 1", out)
	}
}
