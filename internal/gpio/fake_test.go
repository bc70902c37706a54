package gpio

import (
	"errors"
	"reflect"
	"testing"
)

func TestFakeReaderRead(t *testing.T) {
	f := NewFakeReader(
		Switches(true, false),
		Sample{Switches: []bool{false, true}, Levels: []int{512}},
	)

	s, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(s.Switches, []bool{true, false}) {
		t.Errorf("sample 0: got %v", s.Switches)
	}

	s, err = f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(s.Levels, []int{512}) {
		t.Errorf("sample 1 levels: got %v", s.Levels)
	}

	// Exhausted: repeats the last sample
	s, _ = f.Read()
	if !reflect.DeepEqual(s.Switches, []bool{false, true}) {
		t.Errorf("repeat: got %v", s.Switches)
	}
	if f.Reads != 3 {
		t.Errorf("Reads: got %d, want 3", f.Reads)
	}
}

func TestFakeReaderReturnsCopies(t *testing.T) {
	f := NewFakeReader(Switches(true))

	s, _ := f.Read()
	s.Switches[0] = false

	s, _ = f.Read()
	if !s.Switches[0] {
		t.Error("mutating a returned sample changed the script")
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	f := NewFakeReader()

	if _, err := f.Read(); err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader(Switches(true))
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeReaderCloseAndReset(t *testing.T) {
	f := NewFakeReader(Switches(true), Switches(false))

	f.Read()
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Reset()
	if f.Closed {
		t.Error("Reset should clear Closed")
	}
	s, _ := f.Read()
	if !s.Switches[0] {
		t.Error("after reset: expected first sample again")
	}
}

func TestDefaultConfigMuxFits(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MuxChannels > 1<<len(cfg.MuxSelect) {
		t.Errorf("%d channels cannot be addressed by %d select lines", cfg.MuxChannels, len(cfg.MuxSelect))
	}
}
