// Package history keeps the samples of the running session in arrival order
// for plots and the exit summary.
package history

import (
	"sync"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
)

type History struct {
	mu      sync.RWMutex
	samples []*types.Sample
	limit   int
	dropped int
}

// New creates a history. limit 0 keeps everything, otherwise the oldest
// samples are dropped once limit is reached.
func New(limit int) *History {
	return &History{limit: limit}
}

func (h *History) Append(sample *types.Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = append(h.samples, sample)
	if h.limit > 0 && len(h.samples) > h.limit {
		over := len(h.samples) - h.limit
		h.dropped += over
		// Copy down instead of reslicing so the backing array doesn't creep
		n := copy(h.samples, h.samples[over:])
		clear(h.samples[n:])
		h.samples = h.samples[:n]
	}
}

// Snapshot returns a copy that callers may keep.
func (h *History) Snapshot() []*types.Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*types.Sample, len(h.samples))
	copy(out, h.samples)
	return out
}

// Last returns up to n of the newest samples, oldest first. n <= 0 gives
// an empty slice.
func (h *History) Last(n int) []*types.Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n > len(h.samples) {
		n = len(h.samples)
	}
	out := make([]*types.Sample, n)
	copy(out, h.samples[len(h.samples)-n:])
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.samples)
}

// Dropped counts samples evicted by the limit.
func (h *History) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}
