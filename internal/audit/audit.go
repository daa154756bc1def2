// Package audit implements the append-only capability audit ring (C3 /
// Layer D of spec.md §4.3). Every capability denial — and, if the policy
// requires it, every grant — is recorded here before the calling
// capability check returns.
package audit

import (
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/rizome-dev/next-rc/internal/core"
	"github.com/rizome-dev/next-rc/internal/ring"
)

// DefaultCapacity is the default bounded ring size from spec.md §3.
const DefaultCapacity = 10000

// chainedEntry pairs a core.AuditEntry with the hash chain value computed
// over it and everything before it, so a forensic reader can detect a
// tampered or truncated ring without needing persistence.
type chainedEntry struct {
	core.AuditEntry
	Hash string
}

// Log is the bounded, hash-chained audit ring.
type Log struct {
	buf  *ring.Buffer[chainedEntry]
	mu   sync.Mutex
	last [32]byte
}

// New creates an audit log with the given ring capacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{buf: ring.New[chainedEntry](capacity)}
}

// Record appends an entry to the ring, chaining it to the previous entry's
// hash via BLAKE2b. Safe for concurrent use from multiple capability
// checks.
func (l *Log) Record(entry core.AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	h, _ := blake2b.New256(nil)
	h.Write(l.last[:])
	h.Write([]byte(entry.Capability))
	h.Write([]byte(entry.TrustLevel))
	h.Write([]byte(entry.Detail))
	if entry.Granted {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	copy(l.last[:], sum)

	// Push while still holding the chain lock so the ring's item order
	// always matches the order the hash chain was extended in.
	l.buf.Push(chainedEntry{AuditEntry: entry, Hash: hex.EncodeToString(sum)})
}

// Entries returns a snapshot of all recorded entries, oldest first.
func (l *Log) Entries() []core.AuditEntry {
	chained := l.buf.Snapshot()
	out := make([]core.AuditEntry, len(chained))
	for i, c := range chained {
		out[i] = c.AuditEntry
	}
	return out
}

// Denials returns only the entries with Granted == false, the set the
// testable property in spec.md §8.3 asks for.
func (l *Log) Denials() []core.AuditEntry {
	all := l.Entries()
	out := all[:0:0]
	for _, e := range all {
		if !e.Granted {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries currently held.
func (l *Log) Len() int {
	return l.buf.Len()
}

// Verify recomputes the hash chain from a snapshot and reports whether it
// is internally consistent. Because the ring evicts FIFO, Verify only
// covers the currently-held window — it cannot detect truncation that
// happened before the oldest surviving entry.
func (l *Log) Verify() bool {
	chained := l.buf.Snapshot()
	var prev [32]byte
	for _, c := range chained {
		h, _ := blake2b.New256(nil)
		h.Write(prev[:])
		h.Write([]byte(c.Capability))
		h.Write([]byte(c.TrustLevel))
		h.Write([]byte(c.Detail))
		if c.Granted {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
		sum := h.Sum(nil)
		if hex.EncodeToString(sum) != c.Hash {
			return false
		}
		copy(prev[:], sum)
	}
	return true
}
