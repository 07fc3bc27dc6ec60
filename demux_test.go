package oraq

import "testing"

func TestClassifyLockExpired(t *testing.T) {
	ks := newKeys("oraq", "queue")
	ev := Event{Channel: "__keyspace@0__:oraq:queue:pending:job1:lock", Payload: "expired"}

	c := classify(ev, ks)
	if c.kind != eventLockExpired {
		t.Fatalf("expected eventLockExpired, got %v", c.kind)
	}
	if c.queueKey != ks.pending {
		t.Fatalf("expected queueKey %q, got %q", ks.pending, c.queueKey)
	}
	if c.jobID != "job1" {
		t.Fatalf("expected jobID %q, got %q", "job1", c.jobID)
	}
}

func TestClassifyQueueChanged(t *testing.T) {
	ks := newKeys("oraq", "queue")
	for _, payload := range []string{"lpush", "rpush", "lrem", "rpop", "brpoplpush"} {
		ev := Event{Channel: "__keyspace@0__:oraq:queue:pending", Payload: payload}
		c := classify(ev, ks)
		if c.kind != eventQueueChanged {
			t.Fatalf("payload %q: expected eventQueueChanged, got %v", payload, c.kind)
		}
		if c.queueKey != ks.pending {
			t.Fatalf("payload %q: expected queueKey %q, got %q", payload, ks.pending, c.queueKey)
		}
	}
}

func TestClassifyIgnoresUnrelatedEvents(t *testing.T) {
	ks := newKeys("oraq", "queue")

	cases := []Event{
		{Channel: "__keyspace@0__:oraq:queue:pending", Payload: "set"},
		{Channel: "__keyspace@0__:other:prefix:pending", Payload: "lpush"},
		{Channel: "__keyspace@0__:oraq:queue:pending:job1:lock", Payload: "set"},
	}
	for _, ev := range cases {
		if c := classify(ev, ks); c.kind != eventIgnored {
			t.Fatalf("event %+v: expected eventIgnored, got %v", ev, c.kind)
		}
	}
}
