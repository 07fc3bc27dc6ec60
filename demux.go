package oraq

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type eventKind int

const (
	eventIgnored eventKind = iota
	eventLockExpired
	eventQueueChanged
)

var listMutations = map[string]bool{
	"rpop": true, "lrem": true, "lpush": true, "rpush": true, "brpoplpush": true,
}

type classifiedEvent struct {
	kind     eventKind
	queueKey string
	jobID    string
}

// classify implements event classification against this
// queue's key namespace.
func classify(ev Event, ks keys) classifiedEvent {
	i := strings.Index(ev.Channel, "__:")
	if i < 0 {
		return classifiedEvent{kind: eventIgnored}
	}
	key := ev.Channel[i+3:]

	if ev.Payload == "expired" {
		if jobID, ok := strings.CutPrefix(key, ks.pending+":"); ok {
			if jobID, ok = strings.CutSuffix(jobID, ":lock"); ok {
				return classifiedEvent{kind: eventLockExpired, queueKey: ks.pending, jobID: jobID}
			}
		}
		if jobID, ok := strings.CutPrefix(key, ks.processing+":"); ok {
			if jobID, ok = strings.CutSuffix(jobID, ":lock"); ok {
				return classifiedEvent{kind: eventLockExpired, queueKey: ks.processing, jobID: jobID}
			}
		}
		return classifiedEvent{kind: eventIgnored}
	}

	if listMutations[ev.Payload] {
		switch key {
		case ks.pending:
			return classifiedEvent{kind: eventQueueChanged, queueKey: ks.pending}
		case ks.processing:
			return classifiedEvent{kind: eventQueueChanged, queueKey: ks.processing}
		}
	}

	return classifiedEvent{kind: eventIgnored}
}

// demux is the keyspace event demux: a single goroutine reading from
// the store's event stream, classifying each event, and dispatching
// it, via a bounded channel, to a second goroutine that fans it out to
// every locally live coordinator. Unlike a per-jobId routed dispatch,
// every classified event reaches every registered coordinator — each
// coordinator decides for itself whether to react.
type demux struct {
	store Store
	ks    keys
	log   *zap.Logger
	ping  time.Duration

	mu        sync.Mutex
	listeners map[*coordinator]struct{}

	events chan classifiedEvent
}

func newDemux(store Store, ks keys, log *zap.Logger, ping time.Duration) *demux {
	return &demux{
		store:     store,
		ks:        ks,
		log:       log,
		ping:      ping,
		listeners: make(map[*coordinator]struct{}),
		events:    make(chan classifiedEvent, 64),
	}
}

// run consumes sub until ctx is canceled or the subscription ends. It
// is the first stage of the pipeline: receive, classify, enqueue.
func (d *demux) run(ctx context.Context, sub Subscription) {
	defer close(d.events)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			c := classify(ev, d.ks)
			if c.kind == eventIgnored {
				continue
			}
			select {
			case d.events <- c:
			case <-ctx.Done():
				return
			}
		}
	}
}

// dispatch is the second stage: drain classified events and fan each
// one out to every registered coordinator.
func (d *demux) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-d.events:
			if !ok {
				return
			}
			d.handle(ctx, c)
		}
	}
}

func (d *demux) handle(ctx context.Context, c classifiedEvent) {
	if c.kind == eventLockExpired {
		// Best-effort evict, redundant with the stuck-job sweep but
		// reduces latency. Idempotent: a peer may already have
		// removed it.
		if err := d.store.RemoveOccurrence(ctx, c.queueKey, c.jobID); err != nil {
			d.log.Debug("best-effort lock-expired eviction failed, tolerated",
				zap.String("list", c.queueKey), zap.String("job_id", c.jobID), zap.Error(err))
		}
	}

	d.mu.Lock()
	coords := make([]*coordinator, 0, len(d.listeners))
	for c := range d.listeners {
		coords = append(coords, c)
	}
	d.mu.Unlock()

	for _, co := range coords {
		co.Wait(ctx, d.ping)
	}
}

// broadcastTick calls Wait on every registered coordinator without a
// triggering store event. It backs the fallback polling mode used
// when keyspace notifications cannot be enabled.
func (d *demux) broadcastTick(ctx context.Context) {
	d.mu.Lock()
	coords := make([]*coordinator, 0, len(d.listeners))
	for c := range d.listeners {
		coords = append(coords, c)
	}
	d.mu.Unlock()

	for _, co := range coords {
		co.Wait(ctx, d.ping)
	}
}

// register adds coord to the fan-out set. Every future classified
// event reaches it until unregister is called.
func (d *demux) register(co *coordinator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[co] = struct{}{}
}

// unregister removes coord from the fan-out set. Mandatory on
// completion to avoid an unbounded listener list.
func (d *demux) unregister(co *coordinator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.listeners, co)
}
