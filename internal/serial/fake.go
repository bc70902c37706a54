package serial

import (
	"bytes"
	"errors"
	"sync"
)

// ErrClosed is returned by a FakePort after Close.
var ErrClosed = errors.New("serial: port closed")

// FakePort is a test double with scripted input and recorded output.
// When connected to a peer, everything written is delivered to the peer's
// input, so several FakePorts can form an in-memory ring.
type FakePort struct {
	mu sync.Mutex

	rx      bytes.Buffer
	written []byte
	peer    *FakePort

	// WriteError, if set, will be returned by Write()
	WriteError error

	closed bool
}

// NewFakePort creates a FakePort with optional pending input.
func NewFakePort(input ...[]byte) *FakePort {
	p := &FakePort{}
	for _, b := range input {
		p.rx.Write(b)
	}
	return p
}

// Feed queues bytes for Read.
func (p *FakePort) Feed(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx.Write(b)
}

// Read returns queued input, or 0, nil when none is pending.
func (p *FakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	if p.rx.Len() == 0 {
		return 0, nil
	}
	return p.rx.Read(b)
}

// Write records b and forwards it to the peer, if any.
func (p *FakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	if p.WriteError != nil {
		err := p.WriteError
		p.mu.Unlock()
		return 0, err
	}
	p.written = append(p.written, b...)
	peer := p.peer
	p.mu.Unlock()

	if peer != nil {
		peer.Feed(b)
	}
	return len(b), nil
}

// Written returns a copy of everything written so far.
func (p *FakePort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written...)
}

// Pending returns the number of unread input bytes.
func (p *FakePort) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rx.Len()
}

// Close marks the port as closed.
func (p *FakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *FakePort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Connect delivers everything written to from into to's input.
func Connect(from, to *FakePort) {
	from.mu.Lock()
	defer from.mu.Unlock()
	from.peer = to
}

// Ring connects ports in a loop: each port's output feeds the next, and the
// last feeds the first.
func Ring(ports ...*FakePort) {
	for i, p := range ports {
		Connect(p, ports[(i+1)%len(ports)])
	}
}
