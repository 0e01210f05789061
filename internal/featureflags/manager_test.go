package featureflags

import "testing"

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	if !m.On("a") || !m.On("c") || !m.On("e") {
		t.Fatal("expected enabled boolean values to evaluate true")
	}
	if m.On("b") || m.On("d") || m.On("f") {
		t.Fatal("expected disabled boolean values to evaluate false")
	}
	if m.On("missing") {
		t.Fatal("unknown flags must be off")
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,broken=x%")

	if !m.On("always") {
		t.Fatal("100% rollout should always be enabled")
	}
	if m.Enabled("never", "10.0.0.1") {
		t.Fatal("0% rollout should always be disabled")
	}
	if m.Enabled("broken", "10.0.0.1") {
		t.Fatal("unparsable percentage should be disabled")
	}

	first := m.Enabled("canary", "42")
	for i := 0; i < 5; i++ {
		if got := m.Enabled("canary", "42"); got != first {
			t.Fatal("rollout evaluation must be deterministic per subject")
		}
	}

	if m.On("canary") {
		t.Fatal("partial rollout requires a subject")
	}
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,Registration=ON, media_previews = 20% ,webhook_autosync=off ")

	raw := m.Raw()
	if len(raw) != 3 {
		t.Fatalf("expected 3 parsed flags, got %d", len(raw))
	}
	if raw[Registration] != "on" || raw[MediaPreviews] != "20%" || raw[WebhookAutoSync] != "off" {
		t.Fatalf("unexpected raw flags: %#v", raw)
	}

	snap := m.Snapshot()
	if !snap[Registration] || snap[MediaPreviews] || snap[WebhookAutoSync] {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
}

func TestNilManager(t *testing.T) {
	var m *Manager
	if m.On(Registration) {
		t.Fatal("nil manager must report every flag off")
	}
}
