package logic

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestDiffOrder(t *testing.T) {
	prev := Shared{State: StateStable, Mode: ModeAutomatic, Bootup: 0x01}
	next := Shared{State: StateCritical, Mode: ModeManual, Bootup: 0x03, PerformActivity: true}

	events := Diff(prev, next, epoch)
	want := []EventType{EventState, EventMode, EventBootup, EventPerform}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, e := range events {
		if e.Type != want[i] {
			t.Errorf("event %d: got %s, want %s", i, e.Type, want[i])
		}
		if e.Shared != next {
			t.Errorf("event %d: should carry the new state", i)
		}
		if !e.Timestamp.Equal(epoch) {
			t.Errorf("event %d: wrong timestamp %v", i, e.Timestamp)
		}
	}
}

func TestDiffIgnoresLocalAndConsumedFlags(t *testing.T) {
	prev := Shared{PerformActivity: true}
	next := Shared{Activity: true}
	if events := Diff(prev, next, epoch); len(events) != 0 {
		t.Errorf("expected no events, got %v", events)
	}
}

func TestRecorderBaselineAndCounts(t *testing.T) {
	r := NewRecorder(epoch)

	if events := r.Observe(Shared{State: StateWarning}, epoch); events != nil {
		t.Errorf("first snapshot should not emit, got %v", events)
	}
	if !r.IsBaselined() {
		t.Fatal("should be baselined after first snapshot")
	}

	r.Observe(Shared{State: StateCritical}, epoch.Add(time.Second))
	r.Observe(Shared{State: StateCritical, Mode: ModeManual, PerformActivity: true}, epoch.Add(2*time.Second))
	r.Observe(Shared{State: StateCritical, Mode: ModeManual}, epoch.Add(3*time.Second))

	want := EventCounts{State: 1, Mode: 1, Perform: 1}
	if r.Counts() != want {
		t.Errorf("counts: got %+v, want %+v", r.Counts(), want)
	}
}

func TestRecorderHeartbeat(t *testing.T) {
	r := NewRecorder(epoch)

	if hb := r.CheckHeartbeat(epoch.Add(time.Hour), time.Minute); hb != nil {
		t.Error("no heartbeat before baseline")
	}

	r.Observe(Shared{}, epoch)
	if hb := r.CheckHeartbeat(epoch.Add(30*time.Second), time.Minute); hb != nil {
		t.Error("no heartbeat before interval")
	}

	hb := r.CheckHeartbeat(epoch.Add(time.Minute), time.Minute)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if hb.Uptime != time.Minute {
		t.Errorf("uptime: got %v, want 1m", hb.Uptime)
	}
	if r.CheckHeartbeat(epoch.Add(90*time.Second), time.Minute) != nil {
		t.Error("interval restarts after a heartbeat")
	}
	if r.CheckHeartbeat(epoch.Add(time.Hour), 0) != nil {
		t.Error("zero interval disables heartbeats")
	}
}

func TestPanelBits(t *testing.T) {
	var m BootupMask
	for i, p := range AllPanels {
		if p.Bit() != 1<<i {
			t.Errorf("panel %s: bit %#x", p, p.Bit())
		}
		m = m.With(p)
	}
	if m != BootupAll || m.Count() != 7 {
		t.Errorf("all panels: got %#x (%d)", m, m.Count())
	}
	if !m.Valid() || BootupMask(0x80).Valid() {
		t.Error("mask validity wrong")
	}
	if BootupMask(0x05).Has(PanelB) || !BootupMask(0x05).Has(PanelC) {
		t.Error("Has wrong for 0x05")
	}
	if got := BootupMask(0x05).Names(); len(got) != 2 || got[0] != "A" || got[1] != "C" {
		t.Errorf("Names: got %v", got)
	}
	if got := BootupMask(0).Names(); got == nil || len(got) != 0 {
		t.Errorf("empty Names: got %#v", got)
	}
}

func TestParsePanel(t *testing.T) {
	for _, s := range []string{"A", "g", "D"} {
		if _, err := ParsePanel(s); err != nil {
			t.Errorf("ParsePanel(%q): %v", s, err)
		}
	}
	for _, s := range []string{"", "H", "AB", "1"} {
		if _, err := ParsePanel(s); err == nil {
			t.Errorf("ParsePanel(%q): expected error", s)
		}
	}
	if p, _ := ParsePanel("c"); p != PanelC || p.String() != "C" {
		t.Errorf("ParsePanel(c) = %v", p)
	}
}

func TestStateStrings(t *testing.T) {
	if StateCritical.String() != "CRITICAL" || ModeManual.String() != "MANUAL" {
		t.Error("unexpected names")
	}
	if State(9).Valid() || !StateUnknown.Valid() || Mode(2).Valid() {
		t.Error("unexpected validity")
	}
}
