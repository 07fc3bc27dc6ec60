package oraq

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// DefaultPrefix is the package-name default key namespace prefix,
// preserved explicitly rather than left an implicit global, so cross-
// library interop does not depend on an unstated default.
const DefaultPrefix = "oraq"

// DefaultID is the default queue identity within a prefix.
const DefaultID = "queue"

// generateJobID returns 16 random bytes rendered as lowercase hex
// (128 bits of entropy), used whenever a caller omits opts.JobID.
func generateJobID() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("oraq: generate job id: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

// keys derives the key layout for a given (prefix, id) pair. The
// layout must stay bit-exact across implementations for cross-library
// interop: pending list "{prefix}:{id}:pending", processing list
// "{prefix}:{id}:processing", locks "{queueKey}:{jobId}:lock".
type keys struct {
	pending    string
	processing string
}

func newKeys(prefix, id string) keys {
	base := prefix + ":" + id
	return keys{
		pending:    base + ":pending",
		processing: base + ":processing",
	}
}

func (k keys) pendingLock(jobID string) string {
	return k.pending + ":" + jobID + ":lock"
}

func (k keys) processingLock(jobID string) string {
	return k.processing + ":" + jobID + ":lock"
}

// channelPattern is the keyspace-event subscribe pattern for this
// queue's namespace: "__keyspace@{db}__:{prefix}:{id}:*".
func channelPattern(db int, prefix, id string) string {
	return fmt.Sprintf("__keyspace@%d__:%s:%s:*", db, prefix, id)
}
