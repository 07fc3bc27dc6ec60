package oraq

import (
	"time"

	"go.uber.org/zap"
)

// Config configures a Queue. Durations are expressed as time.Duration
// rather than millisecond integers, the idiomatic Go equivalent;
// nothing in the protocol depends on millisecond granularity
// specifically — only the derived TTL formulas, which are computed
// from whatever Duration is supplied.
type Config struct {
	// ID is the shared queue identity within Prefix. Defaults to
	// DefaultID ("queue").
	ID string

	// Prefix is the key namespace prefix. Defaults to DefaultPrefix
	// ("oraq") — required for cross-library interop.
	Prefix string

	// Store is the backing store adapter. Required: connection
	// management and reconnection are out of scope for this library;
	// callers construct and own the Store's underlying client.
	Store Store

	// Concurrency is the target maximum number of concurrently
	// processing jobs across all workers sharing (Prefix, ID). Must be
	// >= 0; 0 is accepted as a degenerate mode that relies entirely on
	// the Timeout escape hatch. Defaults to 1.
	Concurrency int

	// Ping is the keep-alive refresh period and reassessment period.
	// Defaults to 60s.
	Ping time.Duration

	// Timeout is the soft wait deadline; it also derives lock TTLs.
	// Defaults to 2h.
	Timeout time.Duration

	// KeyspaceDB is the backing store's logical database index used to
	// construct the keyspace-event subscribe pattern
	// "__keyspace@{KeyspaceDB}__:{Prefix}:{ID}:*". Defaults to 0.
	KeyspaceDB int

	// PollInterval is the tick period of the fallback polling mode
	// used when keyspace notifications cannot be enabled (e.g.
	// EnableKeyspaceNotifications returns an error on a managed store
	// that disallows CONFIG). When zero, it defaults to Ping. Fallback
	// mode never activates in environments where notifications are
	// available — it is a gated degraded-latency path, not a request
	// to prefer polling.
	PollInterval time.Duration

	// Logger receives structured events: enqueue, admission, stuck-job
	// reaps (debug), keep-alive failures, cleanup. Defaults to a no-op
	// logger.
	Logger *zap.Logger

	// ShutdownTimeout bounds how long Shutdown waits for the
	// subscription goroutines to unwind. Defaults to 30s. It does not
	// bound in-flight submit calls, which are abandoned on shutdown.
	ShutdownTimeout time.Duration
}

func (cfg *Config) setDefaults() {
	if cfg.ID == "" {
		cfg.ID = DefaultID
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Ping <= 0 {
		cfg.Ping = 60 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Hour
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = cfg.Ping
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
}

func (cfg *Config) validate() error {
	if cfg.Store == nil {
		return &ConfigError{Field: "Store", Cause: errRequired}
	}
	if cfg.Concurrency < 0 {
		return &ConfigError{Field: "Concurrency", Cause: errNotPositive}
	}
	if cfg.Ping < 0 {
		return &ConfigError{Field: "Ping", Cause: errNotPositive}
	}
	if cfg.Timeout < 0 {
		return &ConfigError{Field: "Timeout", Cause: errNotPositive}
	}
	return nil
}

var (
	errRequired    = configCause("required")
	errNotPositive = configCause("must not be negative")
)

type configCause string

func (c configCause) Error() string { return string(c) }

// pendingLockTTL is ceil(timeout*1.5/1000) seconds, expressed
// against a time.Duration timeout instead of a millisecond integer.
func pendingLockTTL(timeout time.Duration) int64 {
	return ceilSeconds(timeout * 3 / 2)
}

// processingLockTTL is ceil(ping*2/1000) seconds
func processingLockTTL(ping time.Duration) int64 {
	return ceilSeconds(ping * 2)
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	s := int64(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}
