package mqtt

import (
	"testing"
)

func TestBacklogEmptyTake(t *testing.T) {
	b := newBacklog(4)
	got, dropped := b.take()
	if got != nil || dropped != 0 {
		t.Errorf("expected nothing from empty take, got %d items, %d dropped", len(got), dropped)
	}
}

func TestBacklogKeepsOrder(t *testing.T) {
	b := newBacklog(10)
	for i := 0; i < 5; i++ {
		if b.add(pending{topic: "t", payload: []byte{byte(i)}}) {
			t.Fatalf("add %d: unexpected drop", i)
		}
	}
	if b.len() != 5 {
		t.Fatalf("len: got %d, want 5", b.len())
	}

	got, _ := b.take()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i, m := range got {
		if m.payload[0] != byte(i) {
			t.Errorf("item %d: got payload %d", i, m.payload[0])
		}
	}
	if b.len() != 0 {
		t.Errorf("len after take: got %d", b.len())
	}
}

func TestBacklogDropsOldest(t *testing.T) {
	b := newBacklog(5)
	drops := 0
	for i := 0; i < 8; i++ {
		if b.add(pending{payload: []byte{byte(i)}}) {
			drops++
		}
	}
	if drops != 3 {
		t.Errorf("drops: got %d, want 3", drops)
	}

	got, dropped := b.take()
	if dropped != 3 {
		t.Errorf("take dropped: got %d, want 3", dropped)
	}
	for i, m := range got {
		if want := byte(i + 3); m.payload[0] != want {
			t.Errorf("item %d: got %d, want %d", i, m.payload[0], want)
		}
	}
}

func TestBacklogReusableAfterWrap(t *testing.T) {
	b := newBacklog(3)
	for i := 0; i < 4; i++ {
		b.add(pending{payload: []byte{byte(i)}})
	}
	b.take()

	b.add(pending{payload: []byte{10}})
	b.add(pending{payload: []byte{11}})
	got, dropped := b.take()
	if dropped != 0 || len(got) != 2 || got[0].payload[0] != 10 || got[1].payload[0] != 11 {
		t.Errorf("second cycle: got %v (dropped %d)", got, dropped)
	}
}

func TestBacklogPreservesFields(t *testing.T) {
	b := newBacklog(0)
	b.add(pending{topic: "installation/panels/A/system", payload: []byte(`{"x":1}`), qos: 1, retained: true})

	got, _ := b.take()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	m := got[0]
	if m.topic != "installation/panels/A/system" || string(m.payload) != `{"x":1}` || m.qos != 1 || !m.retained {
		t.Errorf("fields lost: %+v", m)
	}
}
