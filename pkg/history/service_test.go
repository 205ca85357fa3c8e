package history

import (
	"sync"
	"testing"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	"github.com/stretchr/testify/require"
)

func tickList(samples []*types.Sample) []uint32 {
	out := make([]uint32, 0, len(samples))
	for _, s := range samples {
		out = append(out, s.Tick)
	}
	return out
}

func TestHistoryKeepsOrder(t *testing.T) {
	h := New(0)
	for i := uint32(1); i <= 5; i++ {
		h.Append(&types.Sample{Tick: i})
	}
	require.Equal(t, 5, h.Len())
	require.Equal(t, []uint32{1, 2, 3, 4, 5}, tickList(h.Snapshot()))
	require.Equal(t, []uint32{4, 5}, tickList(h.Last(2)))
	require.Empty(t, h.Last(0))
	require.Empty(t, h.Last(-1))
	require.Equal(t, []uint32{1, 2, 3, 4, 5}, tickList(h.Last(50)))
}

func TestHistoryLimitDropsOldest(t *testing.T) {
	h := New(3)
	for i := uint32(1); i <= 10; i++ {
		h.Append(&types.Sample{Tick: i})
	}
	require.Equal(t, []uint32{8, 9, 10}, tickList(h.Snapshot()))
	require.Equal(t, 7, h.Dropped())
}

func TestSnapshotIsACopy(t *testing.T) {
	h := New(0)
	h.Append(&types.Sample{Tick: 1})
	snap := h.Snapshot()
	h.Append(&types.Sample{Tick: 2})
	require.Len(t, snap, 1)
}

func TestHistoryConcurrentAppend(t *testing.T) {
	h := New(0)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				h.Append(&types.Sample{})
				_ = h.Snapshot()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1000, h.Len())
}

func TestEmptyHistory(t *testing.T) {
	h := New(0)
	require.Empty(t, h.Snapshot())
	require.Empty(t, h.Last(3))
}
