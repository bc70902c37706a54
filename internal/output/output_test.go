package output

import (
	"bytes"
	"errors"
	"testing"

	"periph.io/x/conn/v3/spi/spitest"
)

func TestStripOverRecorder(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewStrip(spitest.NewRecordRaw(&buf), 2)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := s.String(), "nrzled{recordraw}"; got != want {
		t.Errorf("String: got %s, want %s", got, want)
	}

	if err := s.Write([]byte{0xFF, 0, 0, 0, 0, 0xFF}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected encoded bits on the SPI bus")
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestStripEmptyWrite(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewStrip(spitest.NewRecordRaw(&buf), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write([]byte{}); err != nil {
		t.Errorf("empty write: %v", err)
	}
}

func TestFakeRecordsCopies(t *testing.T) {
	f := &Fake{}
	px := []byte{1, 2, 3}
	if err := f.Write(px); err != nil {
		t.Fatal(err)
	}
	px[0] = 9

	if !bytes.Equal(f.Last(), []byte{1, 2, 3}) {
		t.Errorf("Last: got %v", f.Last())
	}

	f.WriteError = errors.New("simulated error")
	if err := f.Write(px); err == nil {
		t.Error("expected write error")
	}
	if len(f.Frames) != 1 {
		t.Errorf("failed write should not be recorded, have %d frames", len(f.Frames))
	}

	f.Close()
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestDiscard(t *testing.T) {
	var s Sink = Discard{}
	if err := s.Write([]byte{1, 2, 3}); err != nil {
		t.Error(err)
	}
	if err := s.Close(); err != nil {
		t.Error(err)
	}
}
