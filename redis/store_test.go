package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return NewStore(client), mr
}

func TestEnqueueLockedThenAssessAdmission(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	if err := store.EnqueueLocked(ctx, "q:pending", "q:pending:a:lock", 10, "a", true); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("q:pending:a:lock") {
		t.Fatal("expected pending lock to exist")
	}

	n, tail, err := store.AssessAdmission(ctx, "q:pending", "q:processing")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected 0 processing jobs, got %d", n)
	}
	if tail != "a" {
		t.Fatalf("expected tail %q, got %q", "a", tail)
	}
}

func TestAssessAdmissionEmptyPending(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	n, tail, err := store.AssessAdmission(ctx, "q:pending", "q:processing")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || tail != "" {
		t.Fatalf("expected (0, \"\"), got (%d, %q)", n, tail)
	}
}

func TestTryAdmitSucceedsWhenTail(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.EnqueueLocked(ctx, "q:pending", "q:pending:a:lock", 10, "a", true); err != nil {
		t.Fatal(err)
	}

	ok, err := store.TryAdmit(ctx, "q:pending", "q:processing", "q:pending:a:lock", "a")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected admission to succeed")
	}

	n, err := store.LLen(ctx, "q:processing")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 processing job, got %d", n)
	}
	exists, err := store.Exists(ctx, "q:pending:a:lock")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("expected pending lock to be deleted")
	}
}

func TestTryAdmitFailsWhenNotTail(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.EnqueueLocked(ctx, "q:pending", "q:pending:a:lock", 10, "a", true); err != nil {
		t.Fatal(err)
	}
	if err := store.EnqueueLocked(ctx, "q:pending", "q:pending:b:lock", 10, "b", true); err != nil {
		t.Fatal(err)
	}

	// "a" was pushed first and is now the tail (head-insertion, tail
	// admission). "b" must fail.
	ok, err := store.TryAdmit(ctx, "q:pending", "q:processing", "q:pending:b:lock", "b")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected admission to fail for non-tail id")
	}

	ids, err := store.LRange(ctx, "q:pending")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected both ids to remain pending, got %v", ids)
	}
}

func TestSweepStuckRemovesLocklessIDs(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.EnqueueLocked(ctx, "q:pending", "q:pending:a:lock", 10, "a", true); err != nil {
		t.Fatal(err)
	}
	// "b" is present in the list without ever having had a lock set —
	// simulates a crashed enqueuer whose lock already expired.
	if err := store.client.RPush(ctx, "q:pending", "b").Err(); err != nil {
		t.Fatal(err)
	}

	removed, err := store.SweepStuck(ctx, "q:pending")
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 || removed[0] != "b" {
		t.Fatalf("expected [b] to be swept, got %v", removed)
	}

	ids, err := store.LRange(ctx, "q:pending")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "a" {
		t.Fatalf("expected only [a] to remain, got %v", ids)
	}
}

func TestRemovePendingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.EnqueueLocked(ctx, "q:pending", "q:pending:a:lock", 10, "a", true); err != nil {
		t.Fatal(err)
	}

	if err := store.RemovePending(ctx, "q:pending", "q:pending:a:lock", "a"); err != nil {
		t.Fatal(err)
	}
	if err := store.RemovePending(ctx, "q:pending", "q:pending:a:lock", "a"); err != nil {
		t.Fatal(err)
	}

	ids, err := store.LRange(ctx, "q:pending")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty pending list, got %v", ids)
	}
}
