// Package redis implements oraq.Store over a real Redis server via
// github.com/redis/go-redis/v9.
//
// It is the only concrete backend this repository ships, because the
// admission-control protocol's primitives — blocking/atomic list
// pop-and-push, key expiration, keyspace notifications — are Redis's
// own primitives; there is no meaningful SQL-backed equivalent the way
// there is for a plain lease/visibility-timeout job table.
//
// Two store-level atomicity requirements drive the implementation
// choices here:
//
//   - the admission assessment's paired read (processing length, tail
//     of pending) must not observe an interleaved mutation — done via
//     a transactional pipeline (TxPipeline);
//   - the admission transition must be conditional on this worker's
//     job id actually being the tail at mutation time, not merely at
//     assessment time — done via a Lua script (EVAL) rather than an
//     unconditional pop-verify-reinsert loop, since the latter leaves
//     a window where the id is briefly absent from both lists.
package redis
