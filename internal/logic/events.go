package logic

import "time"

// Diff returns the events describing the change from prev to next, in the
// order STATE, MODE, BOOTUP, PERFORM. Activity is local and never published.
// PERFORM is emitted only when a request is raised, not when it is consumed.
func Diff(prev, next Shared, t time.Time) []Event {
	var events []Event
	add := func(typ EventType) {
		events = append(events, Event{Timestamp: t, Type: typ, Shared: next})
	}
	if prev.State != next.State {
		add(EventState)
	}
	if prev.Mode != next.Mode {
		add(EventMode)
	}
	if prev.Bootup != next.Bootup {
		add(EventBootup)
	}
	if !prev.PerformActivity && next.PerformActivity {
		add(EventPerform)
	}
	return events
}

// Recorder turns successive shared-state snapshots into events and
// heartbeats.
type Recorder struct {
	prev          Shared
	baselined     bool
	startTime     time.Time
	lastHeartbeat time.Time
	eventCounts   EventCounts
}

// NewRecorder creates a recorder. The startTime is used for calculating
// uptime in heartbeat events.
func NewRecorder(startTime time.Time) *Recorder {
	return &Recorder{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Observe compares s with the previous snapshot and returns the changes.
// The first snapshot only sets the baseline.
func (r *Recorder) Observe(s Shared, now time.Time) []Event {
	if !r.baselined {
		r.prev = s
		r.baselined = true
		return nil
	}
	events := Diff(r.prev, s, now)
	r.prev = s

	for _, e := range events {
		switch e.Type {
		case EventState:
			r.eventCounts.State++
		case EventMode:
			r.eventCounts.Mode++
		case EventBootup:
			r.eventCounts.Bootup++
		case EventPerform:
			r.eventCounts.Perform++
		}
	}
	return events
}

// IsBaselined returns whether the recorder has seen its first snapshot.
func (r *Recorder) IsBaselined() bool {
	return r.baselined
}

// Counts returns the events seen since startup.
func (r *Recorder) Counts() EventCounts {
	return r.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (r *Recorder) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 || !r.baselined {
		return nil
	}
	if now.Sub(r.lastHeartbeat) < interval {
		return nil
	}
	r.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(r.startTime),
		Counts:    r.eventCounts,
	}
}
