package mathx

import "testing"

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
		{5, 10, 0, 5},
		{20, 10, 0, 10},
	}
	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%d, %d, %d): got %d, want %d", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestInRange(t *testing.T) {
	if !InRange(3, 1, 5) {
		t.Error("3 should be in [1,5]")
	}
	if !InRange(3, 5, 1) {
		t.Error("3 should be in [5,1] (order-insensitive)")
	}
	if InRange(6, 1, 5) {
		t.Error("6 should not be in [1,5]")
	}
}

func TestMap(t *testing.T) {
	tests := []struct {
		v, want int
	}{
		{0, 0},
		{1023, 9},
		{512, 5},
		{1024, 10},
	}
	for _, tt := range tests {
		if got := Map(tt.v, 0, 1024, 0, 10); got != tt.want {
			t.Errorf("Map(%d): got %d, want %d", tt.v, got, tt.want)
		}
	}
	if got := Map(7, 3, 3, 1, 9); got != 1 {
		t.Errorf("degenerate range: got %d, want 1", got)
	}
}
