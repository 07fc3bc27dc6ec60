package redis

import (
	"context"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"github.com/romanqed/oraq"
)

// subscription adapts a *goredis.PubSub to oraq.Subscription.
type subscription struct {
	ps     *goredis.PubSub
	events chan oraq.Event

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

func newSubscription(ps *goredis.PubSub) *subscription {
	return &subscription{
		ps:     ps,
		events: make(chan oraq.Event, 256),
	}
}

func (s *subscription) run(ctx context.Context) {
	defer close(s.events)
	ch := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case s.events <- oraq.Event{Channel: msg.Channel, Payload: msg.Payload}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *subscription) Events() <-chan oraq.Event {
	return s.events
}

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.ps.Close()
	})
	return err
}
