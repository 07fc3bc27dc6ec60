// Package oraq provides a distributed admission-control protocol: a
// bounded concurrency limit enforced across many independent worker
// processes, possibly on different hosts, by sharing state through a
// Redis-compatible backing store.
//
// # Overview
//
// oraq does not run jobs for you, and it is not a durable job queue —
// it decides, for each submitted job, when it is permitted to run
// under a global concurrency and ordering constraint shared by every
// worker that joins the same (prefix, id) queue. The job itself, its
// retries, and its persistence are the caller's concern.
//
// The package does not mandate a particular store client. Store is a
// small façade over list primitives, atomic multi-operations, key
// expiration and keyspace notifications; the redis subpackage supplies
// a concrete implementation over go-redis.
//
// # State Machine
//
// A submitted job occupies exactly one of two positions at a time:
//
//	pending    -> processing
//
// There is no retry or terminal-failure state in the protocol itself:
// once a job is admitted, oraq's bookkeeping ends at cleanup, whether
// the user job succeeds or fails.
//
// # Lease Model
//
// Both the pending and processing positions are backed by a short-TTL
// lock key the owning worker refreshes (processing) or sets once
// (pending). A lock's absence is evidence that its owning worker has
// died; a stuck-job sweep run as part of every admission assessment
// evicts such orphaned ids from the queue they occupy.
//
// # Admission
//
// A job is admitted when, atomically, fewer than Concurrency jobs are
// currently processing and the job's id is the current tail of the
// pending list — the oldest id under FIFO (head-insertion), the
// newest under LIFO (tail-insertion). A global Timeout bounds how long
// a job's assessment waits: once exceeded, the concurrency check is
// skipped, trading strict concurrency bounding for forward progress in
// the presence of lost wake-ups or dead peers holding apparent slots.
// The admission transition itself still succeeds only while the job's
// id is the tail of the pending list; if it is not, Submit starts a
// fresh wait with a fresh Timeout.
//
// # Queue
//
// Queue is the library's entry point:
//
//	owns the store and subscriber connections
//	constructs a coordinator per Submit call
//	drives enqueue -> await admission -> transition -> execute -> cleanup
//	exposes Submit, RemoveById, Shutdown
//
// # Concurrency Model
//
// Submit calls multiplex over the Queue's store connections; each
// concurrent call runs its own coordinator and contends for admission
// independently. Keyspace notifications drive low-latency wake-ups;
// a periodic reassessment timer guarantees progress even if
// notifications are lost or unavailable (see Config.PollInterval for
// the fallback polling mode).
//
// Shutdown is not graceful in the usual sense: in-flight Submit calls
// are abandoned, not drained. Callers that need a clean stop should
// await outstanding submits themselves before calling Shutdown.
//
// # Storage Expectations
//
// Implementations of Store must provide the atomicity each method
// documents — in particular, the admission assessment's paired read
// and the admission transition's conditional pop-and-push must not be
// observable as two separate steps by a concurrent client.
package oraq
