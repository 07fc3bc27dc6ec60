package oraq

import (
	"errors"
	"fmt"
)

// ConfigError indicates a bad construction or submit precondition:
// a missing Store, a negative Concurrency, Ping or Timeout, or a
// failure to generate a job id. Surfaced synchronously, never from a
// goroutine.
type ConfigError struct {
	Field string
	Cause error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("oraq: invalid config field %q: %v", e.Field, e.Cause)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// StoreError wraps a failure returned by the backing store during a
// critical operation (subscription setup, enqueue, the admission
// transition, or removeById). It propagates out of submit; when the
// admission transition fails, cleanup still runs and best-effort
// removes the job id. Failures during assessment, keep-alive refresh
// and post-job cleanup are logged and not returned.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("oraq: store operation %q failed: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// UserJobError wraps whatever the user-supplied job function returned,
// propagated verbatim (after cleanup) so callers can still unwrap it
// with errors.As/errors.Is.
type UserJobError struct {
	JobID string
	Cause error
}

func (e *UserJobError) Error() string {
	return fmt.Sprintf("oraq: job %q failed: %v", e.JobID, e.Cause)
}

func (e *UserJobError) Unwrap() error {
	return e.Cause
}

// ErrShutdown is returned by submit and removeById when called after
// shutdown has already completed.
var ErrShutdown = errors.New("oraq: queue already shut down")
