package instance

import "testing"

func TestGetIDPrefersExplicitID(t *testing.T) {
	t.Setenv("NOTIFYD_INSTANCE_ID", "worker-7")
	t.Setenv("DYNO", "web.1")
	if got := GetID("worker"); got != "worker-7" {
		t.Fatalf("expected worker-7, got %q", got)
	}

	t.Setenv("NOTIFYD_INSTANCE_ID", "")
	if got := GetID("worker"); got != "web.1" {
		t.Fatalf("expected dyno name, got %q", got)
	}

	t.Setenv("DYNO", "")
	if got := GetID("worker"); got == "" {
		t.Fatal("expected hostname fallback")
	}
}
