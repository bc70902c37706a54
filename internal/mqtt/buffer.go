package mqtt

// pending is a serialized message held while the broker is unreachable.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog keeps the most recent messages published while offline, oldest
// first. When full, the oldest message is dropped.
// Not safe for concurrent use; RealPublisher holds its mutex.
type backlog struct {
	msgs    []pending
	start   int // index of the oldest message
	n       int
	dropped int // since the last drain
}

func newBacklog(capacity int) *backlog {
	if capacity < 1 {
		capacity = 1
	}
	return &backlog{msgs: make([]pending, capacity)}
}

// add queues m and reports whether an older message had to be dropped.
func (b *backlog) add(m pending) bool {
	end := (b.start + b.n) % len(b.msgs)
	b.msgs[end] = m
	if b.n < len(b.msgs) {
		b.n++
		return false
	}
	b.start = (b.start + 1) % len(b.msgs)
	b.dropped++
	return true
}

// take removes and returns every queued message, oldest first, and the
// number dropped since the last take.
func (b *backlog) take() ([]pending, int) {
	dropped := b.dropped
	if b.n == 0 {
		b.dropped = 0
		return nil, dropped
	}
	out := make([]pending, b.n)
	for i := range out {
		out[i] = b.msgs[(b.start+i)%len(b.msgs)]
		b.msgs[(b.start+i)%len(b.msgs)] = pending{}
	}
	b.start, b.n, b.dropped = 0, 0, 0
	return out, dropped
}

func (b *backlog) len() int { return b.n }
