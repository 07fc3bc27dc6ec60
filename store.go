package oraq

import "context"

// Store is the minimal façade this library needs over a Redis-compatible
// backing store: list primitives, atomic multi-operations, key expiration
// and keyspace change notifications. It is a small, type-safe
// contract rather than a generic command bus — the admission protocol
// only ever needs the operations below, each shaped exactly the way the
// protocol requires it to be atomic or not.
//
// A Store implementation owns no protocol state; it is a thin adapter.
// Transient errors propagate to the caller unmodified — the adapter
// performs no retry, matching error policy.
type Store interface {
	// LRange returns all elements of key, head to tail.
	LRange(ctx context.Context, key string) ([]string, error)

	// LLen returns the length of key.
	LLen(ctx context.Context, key string) (int64, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// RefreshLock sets key to an empty value with the given TTL,
	// creating or replacing it. Used for the processing-lock
	// keep-alive refresh; the pending lock is set by EnqueueLocked
	// instead.
	RefreshLock(ctx context.Context, key string, ttlSeconds int64) error

	// AssessAdmission atomically reads (llen(processingKey),
	// lindex(pendingKey, -1)) — the pair the admission assessment
	// requires to be read without an intervening mutation
	// from another client.
	AssessAdmission(ctx context.Context, pendingKey, processingKey string) (n int64, tail string, err error)

	// EnqueueLocked atomically sets lockKey with the given TTL and
	// inserts jobID into pendingKey at the head (fifo) or tail (lifo).
	// Lock-set precedes queue-insert in the same atomic step to
	// minimize the slow-enqueuer race window.
	EnqueueLocked(ctx context.Context, pendingKey, lockKey string, ttlSeconds int64, jobID string, fifo bool) error

	// TryAdmit is a single conditional step that, only if
	// the tail of pendingKey equals jobID, pops it, pushes it to the
	// head of processingKey, and deletes lockKey — returning true. If
	// the tail is not jobID, it mutates nothing and returns false.
	TryAdmit(ctx context.Context, pendingKey, processingKey, lockKey, jobID string) (bool, error)

	// RemoveOccurrence removes one occurrence of value from key
	// (LREM key 1 value). Used for the demux's best-effort eviction of
	// a job whose lock just expired — redundant with, and
	// cheaper than, a full stuck-job sweep.
	RemoveOccurrence(ctx context.Context, key, value string) error

	// RemovePending atomically deletes lockKey and removes one
	// occurrence of jobID from pendingKey. Used by removeById and by
	// submit's cleanup path on a pre-admission exit.
	RemovePending(ctx context.Context, pendingKey, lockKey, jobID string) error

	// RemoveProcessing atomically removes one occurrence of jobID from
	// processingKey and deletes lockKey. Used by submit's cleanup path
	// on every exit after admission.
	RemoveProcessing(ctx context.Context, processingKey, lockKey, jobID string) error

	// SweepStuck removes every id in listKey whose corresponding
	// "{listKey}:{id}:lock" key is absent, and reports which ids were
	// removed, for logging only. The removals are issued in a single
	// atomic step; the lock checks that select them are not atomic
	// with that step.
	SweepStuck(ctx context.Context, listKey string) (removed []string, err error)

	// EnableKeyspaceNotifications issues the store-specific equivalent
	// of CONFIG SET notify-keyspace-events Kgxl. Implementations in
	// environments where this is forbidden return a non-nil error so the
	// caller can fall back to polling.
	EnableKeyspaceNotifications(ctx context.Context) error

	// Subscribe pattern-subscribes to pattern and delivers events until
	// ctx is canceled or the returned Subscription is closed.
	Subscribe(ctx context.Context, pattern string) (Subscription, error)

	// Close releases any connections owned by the store.
	Close() error
}

// Event is a single keyspace notification delivered by a Subscription.
type Event struct {
	// Channel is the keyspace channel the event was published on, e.g.
	// "__keyspace@0__:oraq:queue:pending".
	Channel string
	// Payload is the event name, e.g. "lpush", "expired".
	Payload string
}

// Subscription is a live pattern subscription returned by
// Store.Subscribe.
type Subscription interface {
	// Events returns the channel events are delivered on. It is closed
	// when the subscription ends, whether by context cancellation, a
	// call to Close, or a fatal transport error (reported once via Err).
	Events() <-chan Event
	// Err returns a non-nil error if the subscription ended abnormally.
	Err() error
	// Close ends the subscription.
	Close() error
}
