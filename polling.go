package oraq

import (
	"context"
	"time"

	"github.com/romanqed/oraq/internal"
	"golang.org/x/time/rate"
)

// poller drives the fallback polling mode: when EnableKeyspaceNotifications
// fails (a managed store forbids CONFIG, or the deployment disables it),
// no keyspace events arrive, so the poller drives the demux's fan-out
// periodically in their place, on top of each coordinator's own periodic
// Wait timer. This degrades latency (coordinators reassess on poll ticks
// and timer ticks instead of on every relevant store mutation) but never
// degrades safety — the admission predicate itself is unchanged.
//
// Ticks are paced through a rate.Limiter rather than a plain ticker so a
// misconfigured (sub-millisecond) PollInterval can't turn the fallback
// path into a thundering herd against the store; the limiter caps the
// poller at one broadcastTick per period with no burst allowance.
type poller struct {
	cancel context.CancelFunc
	done   internal.DoneChan
}

func (p *poller) start(ctx context.Context, d *demux, period time.Duration) {
	p.done = make(internal.DoneChan)
	ctx, p.cancel = context.WithCancel(ctx)
	limiter := rate.NewLimiter(rate.Every(period), 1)
	go p.run(ctx, d, limiter)
}

func (p *poller) run(ctx context.Context, d *demux, limiter *rate.Limiter) {
	defer close(p.done)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		d.broadcastTick(ctx)
	}
}

func (p *poller) stop() internal.DoneChan {
	p.cancel()
	return p.done
}
