package oraq

import (
	"context"
	"sync"
	"time"

	"github.com/romanqed/oraq/internal"
	"go.uber.org/zap"
)

// coordinator runs the admission protocol for one in-flight job:
// its canRun latch, its keep-alive timer, its periodic reassessment
// timer, and its stuck-job sweeper. A coordinator is exclusively owned
// by a single submit invocation — created at enqueue, destroyed at
// completion.
type coordinator struct {
	jobID string
	cfg   *Config
	store Store
	keys  keys
	log   *zap.Logger

	canRun    *latch
	startOnce sync.Once
	startTime time.Time

	waitMu sync.Mutex
	wait   *internal.TimerTask

	keepAliveMu sync.Mutex
	keepAlive   *internal.TimerTask
}

func newCoordinator(jobID string, cfg *Config, store Store, ks keys) *coordinator {
	return &coordinator{
		jobID:  jobID,
		cfg:    cfg,
		store:  store,
		keys:   ks,
		log:    cfg.Logger.With(zap.String("job_id", jobID)),
		canRun: newLatch(),
	}
}

// CanRun returns the one-shot release signal: closed exactly once, the
// moment the job is admitted (by assessment or by the timeout escape
// hatch).
func (c *coordinator) CanRun() <-chan struct{} {
	return c.canRun.await()
}

// Wait (re)arms periodic reassessment at period and performs one
// assessment immediately (wait(pollInterval)). Any previously
// armed timer is canceled first; a storm of Wait calls merely restarts
// the period, it does not debounce assessment.
func (c *coordinator) Wait(ctx context.Context, period time.Duration) {
	c.waitMu.Lock()
	defer c.waitMu.Unlock()
	if c.wait != nil {
		c.wait.Stop()
	}
	t := &internal.TimerTask{}
	t.Start(ctx, c.assess, period)
	c.wait = t
}

// StopWait cancels the reassessment timer, if armed.
func (c *coordinator) StopWait() {
	c.waitMu.Lock()
	defer c.waitMu.Unlock()
	if c.wait != nil {
		c.wait.Stop()
		c.wait = nil
	}
}

// KeepAlive refreshes the processing-lock now with TTL = 2*ping, then
// re-arms to refresh every ping.
func (c *coordinator) KeepAlive(ctx context.Context, ping time.Duration) {
	c.keepAliveMu.Lock()
	defer c.keepAliveMu.Unlock()
	if c.keepAlive != nil {
		c.keepAlive.Stop()
	}
	ttl := processingLockTTL(ping)
	lockKey := c.keys.processingLock(c.jobID)
	handler := func(ctx context.Context) {
		if err := c.store.RefreshLock(ctx, lockKey, ttl); err != nil {
			// Swallowed: the next tick retries; if refreshes
			// keep failing the lock's TTL lapses and a peer's
			// stuck-job sweep reclaims the id.
			c.log.Debug("keep-alive refresh failed, will retry", zap.Error(err))
		}
	}
	t := &internal.TimerTask{}
	t.Start(ctx, handler, ping)
	c.keepAlive = t
}

// StopKeepAlive cancels the processing-lock refresh timer, if armed.
func (c *coordinator) StopKeepAlive() {
	c.keepAliveMu.Lock()
	defer c.keepAliveMu.Unlock()
	if c.keepAlive != nil {
		c.keepAlive.Stop()
		c.keepAlive = nil
	}
}

// assess is the admission assessment algorithm, invoked by Wait
// and by event wake-ups.
func (c *coordinator) assess(ctx context.Context) {
	if c.canRun.isSet() {
		return
	}

	c.startOnce.Do(func() {
		c.startTime = time.Now()
	})

	if time.Since(c.startTime) > c.cfg.Timeout {
		c.log.Debug("timeout escape: admitting unconditionally")
		c.canRun.set()
		return
	}

	c.sweepStuck(ctx, c.keys.pending)
	c.sweepStuck(ctx, c.keys.processing)

	n, tail, err := c.store.AssessAdmission(ctx, c.keys.pending, c.keys.processing)
	if err != nil {
		c.log.Debug("assessment failed, will retry", zap.Error(err))
		return
	}
	if n < int64(c.cfg.Concurrency) && tail == c.jobID {
		c.canRun.set()
	}
}

// sweepStuck evicts job ids from listKey whose lease has expired.
// Store failures are tolerated silently.
func (c *coordinator) sweepStuck(ctx context.Context, listKey string) {
	removed, err := c.store.SweepStuck(ctx, listKey)
	if err != nil {
		c.log.Debug("stuck-job sweep failed, tolerated", zap.String("list", listKey), zap.Error(err))
		return
	}
	for _, id := range removed {
		c.log.Debug("stuck job reaped", zap.String("list", listKey), zap.String("reaped_job_id", id))
	}
}
