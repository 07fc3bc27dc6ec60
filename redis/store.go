package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/romanqed/oraq"
)

var (
	tryAdmitScript = goredis.NewScript(`
local tail = redis.call('LINDEX', KEYS[1], -1)
if tail ~= ARGV[1] then
	return 0
end
redis.call('RPOP', KEYS[1])
redis.call('LPUSH', KEYS[2], ARGV[1])
redis.call('DEL', KEYS[3])
return 1
`)

	enqueueLockedScript = goredis.NewScript(`
redis.call('SET', KEYS[2], '', 'EX', ARGV[1])
if ARGV[3] == '1' then
	redis.call('LPUSH', KEYS[1], ARGV[2])
else
	redis.call('RPUSH', KEYS[1], ARGV[2])
end
return 1
`)

	removeLockedScript = goredis.NewScript(`
redis.call('DEL', KEYS[2])
redis.call('LREM', KEYS[1], 1, ARGV[1])
return 1
`)
)

// Store implements oraq.Store over a *goredis.Client.
type Store struct {
	client *goredis.Client
}

// NewStore wraps an already-constructed client. Connection management
// and reconnection are the caller's responsibility — out of scope for
// this library.
func NewStore(client *goredis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) LRange(ctx context.Context, key string) ([]string, error) {
	return s.client.LRange(ctx, key, 0, -1).Result()
}

func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	return s.client.LLen(ctx, key).Result()
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (s *Store) RefreshLock(ctx context.Context, key string, ttlSeconds int64) error {
	return s.client.SetEx(ctx, key, "", time.Duration(ttlSeconds)*time.Second).Err()
}

// AssessAdmission reads llen(processingKey) and lindex(pendingKey, -1)
// inside a single transactional pipeline so the pair is consistent
// against a concurrent mutation.
func (s *Store) AssessAdmission(ctx context.Context, pendingKey, processingKey string) (int64, string, error) {
	pipe := s.client.TxPipeline()
	llenCmd := pipe.LLen(ctx, processingKey)
	tailCmd := pipe.LIndex(ctx, pendingKey, -1)
	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, goredis.Nil) {
		return 0, "", err
	}

	n, err := llenCmd.Result()
	if err != nil {
		return 0, "", err
	}

	tail, err := tailCmd.Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			tail = ""
		} else {
			return 0, "", err
		}
	}
	return n, tail, nil
}

// EnqueueLocked sets lockKey before inserting jobID, in a single Lua
// script invocation, so the lock is always visible before the id it
// guards ever appears in the list.
func (s *Store) EnqueueLocked(ctx context.Context, pendingKey, lockKey string, ttlSeconds int64, jobID string, fifo bool) error {
	side := "0"
	if fifo {
		side = "1"
	}
	return tryErr(enqueueLockedScript.Run(ctx, s.client,
		[]string{pendingKey, lockKey}, ttlSeconds, jobID, side))
}

// TryAdmit is a single conditional script that pops the tail of
// pendingKey into processingKey, and deletes lockKey, only if the
// tail is jobID. A losing caller's invocation is a pure no-op.
func (s *Store) TryAdmit(ctx context.Context, pendingKey, processingKey, lockKey, jobID string) (bool, error) {
	res, err := tryAdmitScript.Run(ctx, s.client,
		[]string{pendingKey, processingKey, lockKey}, jobID).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *Store) RemovePending(ctx context.Context, pendingKey, lockKey, jobID string) error {
	return tryErr(removeLockedScript.Run(ctx, s.client, []string{pendingKey, lockKey}, jobID))
}

func (s *Store) RemoveProcessing(ctx context.Context, processingKey, lockKey, jobID string) error {
	return tryErr(removeLockedScript.Run(ctx, s.client, []string{processingKey, lockKey}, jobID))
}

func (s *Store) RemoveOccurrence(ctx context.Context, key, value string) error {
	return s.client.LRem(ctx, key, 1, value).Err()
}

// SweepStuck reads listKey, checks each id's lock, and removes the
// stuck ones in a single transactional pipeline. The read-then-write
// is intentionally non-atomic against the list's own mutation: a
// concurrent slow enqueuer can still race this, which is accepted —
// a missed sweep is simply retried on the next assessment tick.
func (s *Store) SweepStuck(ctx context.Context, listKey string) ([]string, error) {
	ids, err := s.client.LRange(ctx, listKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var stuck []string
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, listKey+":"+id+":lock").Result()
		if err != nil {
			return nil, err
		}
		if exists == 0 {
			stuck = append(stuck, id)
		}
	}
	if len(stuck) == 0 {
		return nil, nil
	}

	pipe := s.client.TxPipeline()
	for _, id := range stuck {
		pipe.LRem(ctx, listKey, 0, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return stuck, nil
}

func (s *Store) EnableKeyspaceNotifications(ctx context.Context) error {
	return s.client.ConfigSet(ctx, "notify-keyspace-events", "Kgxl").Err()
}

func (s *Store) Subscribe(ctx context.Context, pattern string) (oraq.Subscription, error) {
	ps := s.client.PSubscribe(ctx, pattern)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	sub := newSubscription(ps)
	go sub.run(ctx)
	return sub, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func tryErr(cmd *goredis.Cmd) error {
	return cmd.Err()
}
