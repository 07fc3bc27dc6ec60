package oraq

import "sync/atomic"

// latch is a single-shot broadcast primitive: a promise/future with an
// await() that blocks until set() has been called once. Modeled as a
// closed channel guarded by an atomic so set is safe to call
// concurrently and repeatedly; every call after the first is a no-op,
// and every waiter — present or future — observes the same release.
type latch struct {
	fired atomic.Bool
	ch    chan struct{}
}

func newLatch() *latch {
	return &latch{ch: make(chan struct{})}
}

// set idempotently releases the latch. Safe to call from multiple
// goroutines; only the first call closes the channel.
func (l *latch) set() {
	if l.fired.CompareAndSwap(false, true) {
		close(l.ch)
	}
}

// await returns a channel that is closed once set has been called.
func (l *latch) await() <-chan struct{} {
	return l.ch
}

// isSet reports whether the latch has already fired, without blocking.
func (l *latch) isSet() bool {
	return l.fired.Load()
}
