package control

import (
	"errors"
	"io"

	"github.com/rs/zerolog"
)

// receiver reassembles frames from a byte stream.
//
// Bytes go into a ring one larger than a frame, written with modulo
// indexing. Every terminator marks a frame ready. If fewer than a frame's
// worth of bytes have arrived since the last evaluated frame the ready
// frame is a length discard, but the bytes stay in the ring, so a
// terminator value inside the mask or checksum does not cost the frame.
// Otherwise the last Size bytes are decoded and the ring starts over.
type receiver struct {
	layout Layout
	ring   []byte
	idx    int
	count  int
	frame  []byte
	stats  *Stats
	log    zerolog.Logger
}

func newReceiver(l Layout, stats *Stats, log zerolog.Logger) *receiver {
	return &receiver{
		layout: l,
		ring:   make([]byte, l.Size()+1),
		frame:  make([]byte, l.Size()),
		stats:  stats,
		log:    log,
	}
}

// push adds one byte and returns the decoded frame when it completes one.
func (r *receiver) push(b byte) (Frame, bool) {
	r.ring[r.idx] = b
	r.idx = (r.idx + 1) % len(r.ring)
	if r.idx == 0 {
		r.stats.Overflows++
	}
	if r.count < len(r.ring) {
		r.count++
	}

	if b != Terminator {
		return Frame{}, false
	}

	size := r.layout.Size()
	if r.count < size {
		r.stats.LengthErrors++
		r.log.Debug().Int("bytes", r.count).Msg("short frame dropped")
		return Frame{}, false
	}

	start := r.idx - size
	if start < 0 {
		start += len(r.ring)
	}
	for i := range r.frame {
		r.frame[i] = r.ring[(start+i)%len(r.ring)]
	}
	r.idx = 0
	r.count = 0

	f, err := Unmarshal(r.frame, r.layout)
	if err != nil {
		r.countError(err)
		r.log.Debug().Err(err).Hex("frame", r.frame).Msg("frame dropped")
		return Frame{}, false
	}
	r.stats.FramesOK++
	return f, true
}

func (r *receiver) countError(err error) {
	switch {
	case errors.Is(err, ErrChecksum):
		r.stats.ChecksumErrors++
	case errors.Is(err, ErrField):
		r.stats.FieldErrors++
	default:
		r.stats.LengthErrors++
	}
}

// drain reads whatever the port has buffered and hands each decoded frame
// to handle. It returns after a short or empty read.
func (r *receiver) drain(port io.Reader, buf []byte, handle func(Frame)) error {
	for {
		n, err := port.Read(buf)
		for _, b := range buf[:n] {
			if f, ok := r.push(b); ok {
				handle(f)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if n < len(buf) {
			return nil
		}
	}
}
