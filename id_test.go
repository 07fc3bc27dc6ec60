package oraq

import "testing"

func TestGenerateJobIDLengthAndUniqueness(t *testing.T) {
	a, err := generateJobID()
	if err != nil {
		t.Fatal(err)
	}
	b, err := generateJobID()
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 32 {
		t.Fatalf("expected 32 hex chars (16 bytes), got %d: %q", len(a), a)
	}
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
}

func TestKeyLayoutIsBitExact(t *testing.T) {
	ks := newKeys("oraq", "queue")
	if ks.pending != "oraq:queue:pending" {
		t.Fatalf("unexpected pending key: %q", ks.pending)
	}
	if ks.processing != "oraq:queue:processing" {
		t.Fatalf("unexpected processing key: %q", ks.processing)
	}
	if got := ks.pendingLock("j1"); got != "oraq:queue:pending:j1:lock" {
		t.Fatalf("unexpected pending lock key: %q", got)
	}
	if got := ks.processingLock("j1"); got != "oraq:queue:processing:j1:lock" {
		t.Fatalf("unexpected processing lock key: %q", got)
	}
}

func TestChannelPattern(t *testing.T) {
	got := channelPattern(0, "oraq", "queue")
	want := "__keyspace@0__:oraq:queue:*"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
