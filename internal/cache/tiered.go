package cache

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Remote is a shared second-tier cache
type Remote interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Stats counts cache outcomes
type Stats struct {
	MemoryHits   int64 `json:"memory_hits"`
	RemoteHits   int64 `json:"remote_hits"`
	Misses       int64 `json:"misses"`
	RemoteErrors int64 `json:"remote_errors"`
}

// Tiered checks memory first, then the remote tier, and back-fills memory
// on a remote hit. Remote failures are logged and treated as misses.
type Tiered struct {
	memory *MemoryCache
	remote Remote
	logger *logrus.Logger

	memoryHits   atomic.Int64
	remoteHits   atomic.Int64
	misses       atomic.Int64
	remoteErrors atomic.Int64
}

// NewTiered creates a tiered cache. remote may be nil.
func NewTiered(memory *MemoryCache, remote Remote, logger *logrus.Logger) *Tiered {
	if logger == nil {
		logger = logrus.New()
	}
	return &Tiered{memory: memory, remote: remote, logger: logger}
}

// Get returns a cached specialist for key
func (t *Tiered) Get(ctx context.Context, key string) (string, bool) {
	if v, ok := t.memory.Get(key); ok {
		t.memoryHits.Add(1)
		return v, true
	}

	if t.remote != nil {
		v, ok, err := t.remote.Get(ctx, key)
		if err != nil {
			t.remoteErrors.Add(1)
			t.logger.WithError(err).Debug("Remote cache lookup failed")
		} else if ok {
			t.remoteHits.Add(1)
			t.memory.Set(key, v)
			return v, true
		}
	}

	t.misses.Add(1)
	return "", false
}

// Set stores a specialist in both tiers
func (t *Tiered) Set(ctx context.Context, key, specialist string) {
	t.memory.Set(key, specialist)
	if t.remote == nil {
		return
	}
	if err := t.remote.Set(ctx, key, specialist); err != nil {
		t.remoteErrors.Add(1)
		t.logger.WithError(err).Debug("Remote cache write failed")
	}
}

// Stats returns a snapshot of the counters
func (t *Tiered) Stats() Stats {
	return Stats{
		MemoryHits:   t.memoryHits.Load(),
		RemoteHits:   t.remoteHits.Load(),
		Misses:       t.misses.Load(),
		RemoteErrors: t.remoteErrors.Load(),
	}
}

// Purge empties the in-memory tier. Remote entries expire on their own.
func (t *Tiered) Purge() {
	t.memory.Purge()
}
