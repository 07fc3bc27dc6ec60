package oraq

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/romanqed/oraq/internal"
	"go.uber.org/zap"
)

// JobFunc is the user-supplied job body (out of scope, invoked
// verbatim once the protocol admits the job).
type JobFunc func(ctx context.Context, jobData any) (any, error)

// SubmitOptions configures one submit call.
type SubmitOptions struct {
	// JobID, if non-empty, is used as-is. Otherwise a random 16-byte id
	// rendered as lowercase hex is generated.
	JobID string
	// JobData is passed to JobFunc unmodified.
	JobData any
	// LIFO selects tail-insertion (rpush) instead of the default
	// head-insertion (lpush) FIFO ordering.
	LIFO bool
}

// Queue is the public façade: it owns the store/subscriber connections,
// constructs a coordinator per submit, and drives the job through its
// lifecycle (enqueue, await admission, transition, execute, cleanup).
type Queue struct {
	lcBase

	cfg   Config
	keys  keys
	store Store
	log   *zap.Logger

	demux *demux

	lifecycleCtx    context.Context
	lifecycleCancel context.CancelFunc
	wg              sync.WaitGroup

	ready    sync.Once
	readyErr error
	sub      Subscription
	poll     *poller
}

// New constructs a Queue from cfg (Queue(cfg)). Config is
// validated synchronously; a bad config returns a *ConfigError before
// any store I/O happens.
func New(cfg Config) (*Queue, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	instanceID := uuid.NewString()
	log := cfg.Logger.With(
		zap.String("queue_instance", instanceID),
		zap.String("prefix", cfg.Prefix),
		zap.String("id", cfg.ID),
	)

	ctx, cancel := context.WithCancel(context.Background())
	ks := newKeys(cfg.Prefix, cfg.ID)
	q := &Queue{
		cfg:             cfg,
		keys:            ks,
		store:           cfg.Store,
		log:             log,
		demux:           newDemux(cfg.Store, ks, log, cfg.Ping),
		lifecycleCtx:    ctx,
		lifecycleCancel: cancel,
	}
	q.lcBase.start()
	return q, nil
}

// ensureReady performs the one-time subscription setup. sync.Once
// already gives the readiness check its one-shot-promise semantics:
// every concurrent caller blocks on the same Do invocation and
// observes the same result.
func (q *Queue) ensureReady(ctx context.Context) error {
	q.ready.Do(func() {
		q.readyErr = q.initSubscription(ctx)
	})
	return q.readyErr
}

func (q *Queue) initSubscription(ctx context.Context) error {
	if err := q.store.EnableKeyspaceNotifications(ctx); err != nil {
		q.log.Warn("keyspace notifications unavailable, falling back to polling", zap.Error(err))
		q.poll = &poller{}
		q.poll.start(q.lifecycleCtx, q.demux, q.cfg.PollInterval)
		return nil
	}

	pattern := channelPattern(q.cfg.KeyspaceDB, q.cfg.Prefix, q.cfg.ID)
	sub, err := q.store.Subscribe(q.lifecycleCtx, pattern)
	if err != nil {
		return &StoreError{Op: "subscribe", Cause: err}
	}
	q.sub = sub

	q.wg.Add(2)
	go func() {
		defer q.wg.Done()
		q.demux.run(q.lifecycleCtx, sub)
	}()
	go func() {
		defer q.wg.Done()
		q.demux.dispatch(q.lifecycleCtx)
	}()
	return nil
}

// Submit executes the job lifecycle: enqueue, await admission,
// atomically transition to processing, invoke fn, clean up on every
// exit path.
func (q *Queue) Submit(ctx context.Context, fn JobFunc, opts SubmitOptions) (any, error) {
	if !q.running() {
		return nil, ErrShutdown
	}
	if err := q.ensureReady(ctx); err != nil {
		return nil, err
	}

	jobID := opts.JobID
	if jobID == "" {
		var err error
		jobID, err = generateJobID()
		if err != nil {
			return nil, &ConfigError{Field: "JobID", Cause: err}
		}
	}

	pendingLock := q.keys.pendingLock(jobID)
	ttl := pendingLockTTL(q.cfg.Timeout)
	if err := q.store.EnqueueLocked(ctx, q.keys.pending, pendingLock, ttl, jobID, !opts.LIFO); err != nil {
		return nil, &StoreError{Op: "enqueue", Cause: err}
	}
	q.log.Debug("job enqueued", zap.String("job_id", jobID), zap.Bool("lifo", opts.LIFO))

	co, err := q.admit(ctx, jobID, pendingLock)
	if err != nil {
		return nil, err
	}

	co.KeepAlive(ctx, q.cfg.Ping)
	defer func() {
		co.StopKeepAlive()
		if err := q.store.RemoveProcessing(context.Background(), q.keys.processing, q.keys.processingLock(jobID), jobID); err != nil {
			q.log.Debug("processing cleanup failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}()

	q.log.Debug("job admitted, invoking", zap.String("job_id", jobID))
	result, jobErr := fn(ctx, opts.JobData)
	if jobErr != nil {
		return nil, &UserJobError{JobID: jobID, Cause: jobErr}
	}
	return result, nil
}

// admit runs the await-admission / transition loop. A coordinator's
// canRun latch is single-shot, so a lost admission race against
// another worker requires a fresh coordinator and a fresh assessment
// pass; the job id itself never leaves the pending list until a
// TryAdmit call actually succeeds.
func (q *Queue) admit(ctx context.Context, jobID, pendingLock string) (*coordinator, error) {
	for {
		co := newCoordinator(jobID, &q.cfg, q.store, q.keys)
		q.demux.register(co)
		co.Wait(ctx, q.cfg.Ping)

		select {
		case <-co.CanRun():
		case <-ctx.Done():
			q.demux.unregister(co)
			co.StopWait()
			if err := q.store.RemovePending(context.Background(), q.keys.pending, pendingLock, jobID); err != nil {
				q.log.Debug("cancellation cleanup failed", zap.String("job_id", jobID), zap.Error(err))
			}
			return nil, ctx.Err()
		}

		q.demux.unregister(co)
		co.StopWait()

		admitted, err := q.store.TryAdmit(ctx, q.keys.pending, q.keys.processing, pendingLock, jobID)
		if err != nil {
			if rerr := q.store.RemovePending(context.Background(), q.keys.pending, pendingLock, jobID); rerr != nil {
				q.log.Debug("admit-failure cleanup failed", zap.String("job_id", jobID), zap.Error(rerr))
			}
			return nil, &StoreError{Op: "admit", Cause: err}
		}
		if admitted {
			return co, nil
		}
		q.log.Debug("lost admission race, reassessing", zap.String("job_id", jobID))
	}
}

// RemoveById deletes the pending-lock and removes one occurrence of id
// from the pending list. It never touches the processing list:
// a job already executing must not be ripped out; its processing-lock
// expiry is the only removal path. Calling it twice is a no-op after
// the first because both underlying store operations are themselves
// no-ops against an already-absent key or list element.
func (q *Queue) RemoveById(ctx context.Context, jobID string) error {
	if !q.running() {
		return ErrShutdown
	}
	if err := q.store.RemovePending(ctx, q.keys.pending, q.keys.pendingLock(jobID), jobID); err != nil {
		return &StoreError{Op: "removeById", Cause: err}
	}
	return nil
}

// Shutdown quits the subscriber, then releases the store. In-flight
// Submit calls are abandoned; their cleanup may fail. Callers should
// await outstanding submits before calling Shutdown.
func (q *Queue) Shutdown() error {
	return q.tryStop(q.cfg.ShutdownTimeout, func() internal.DoneChan {
		q.lifecycleCancel()
		if q.poll != nil {
			q.poll.stop()
		}
		if q.sub != nil {
			_ = q.sub.Close()
		}
		subsDone := internal.WrapWaitGroup(&q.wg)
		storeDone := make(internal.DoneChan)
		go func() {
			defer close(storeDone)
			if err := q.store.Close(); err != nil {
				q.log.Warn("store close failed during shutdown", zap.Error(err))
			}
		}()
		return internal.Combine(subsDone, storeDone)
	})
}
