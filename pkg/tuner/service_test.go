package tuner

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu      sync.Mutex
	written []types.Gains
	err     error
	block   chan struct{}
}

func (f *fakeWriter) WriteGains(g types.Gains) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, g)
	return f.err
}

func (f *fakeWriter) gains() []types.Gains {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Gains{}, f.written...)
}

var operatorGains = types.Gains{Kp: 2, Ki: 0.5, Kd: 0.1, Setpoint: 10}

func sampleWith(g types.Gains) *types.Sample {
	return &types.Sample{Kp: g.Kp, Ki: g.Ki, Kd: g.Kd, Setpoint: g.Setpoint, Measured: 9}
}

func newTestTuner(w GainsWriter, opts Options) (*Tuner, *time.Time) {
	clock := time.Unix(1000, 0)
	t := New(w, opts)
	t.now = func() time.Time { return clock }
	return t, &clock
}

func TestAdoptsFirstSample(t *testing.T) {
	w := &fakeWriter{}
	tn, _ := newTestTuner(w, Options{AdoptDeviceGains: true, AutoPush: true, Tolerance: 1e-4})

	device := types.Gains{Kp: 1, Ki: 2, Kd: 3, Setpoint: 4}
	require.False(t, tn.Observe(sampleWith(device)))
	require.Equal(t, device, tn.Local())
	require.False(t, tn.Drifted(sampleWith(device)))

	tn.Wait()
	require.Empty(t, w.gains())
}

func TestDriftPushesLocalValues(t *testing.T) {
	w := &fakeWriter{}
	tn, _ := newTestTuner(w, Options{Initial: operatorGains, AutoPush: true, Tolerance: 1e-4})

	var mu sync.Mutex
	var triggers []string
	tn.OnPush = func(g types.Gains, trigger string, err error) {
		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, operatorGains, g)
		require.NoError(t, err)
		triggers = append(triggers, trigger)
	}

	device := operatorGains
	device.Kp = 3
	require.True(t, tn.Drifted(sampleWith(device)))
	require.True(t, tn.Observe(sampleWith(device)))
	tn.Wait()

	require.Equal(t, []types.Gains{operatorGains}, w.gains())
	mu.Lock()
	require.Equal(t, []string{TriggerDrift}, triggers)
	mu.Unlock()
	require.Equal(t, Stats{Pushes: 1}, tn.Stats())
}

func TestNoPushWithinTolerance(t *testing.T) {
	w := &fakeWriter{}
	tn, _ := newTestTuner(w, Options{Initial: operatorGains, AutoPush: true, Tolerance: 0.01})

	device := operatorGains
	device.Kd += 0.005
	require.False(t, tn.Observe(sampleWith(device)))
	tn.Wait()
	require.Empty(t, w.gains())
}

func TestNoPushWhenAutoPushOff(t *testing.T) {
	w := &fakeWriter{}
	tn, _ := newTestTuner(w, Options{Initial: operatorGains, AutoPush: false})

	device := operatorGains
	device.Setpoint = 0
	require.False(t, tn.Observe(sampleWith(device)))

	tn.SetAutoPush(true)
	require.True(t, tn.AutoPush())
	require.True(t, tn.Observe(sampleWith(device)))
	tn.Wait()
	require.Len(t, w.gains(), 1)
}

func TestMinPushInterval(t *testing.T) {
	w := &fakeWriter{}
	tn, clock := newTestTuner(w, Options{Initial: operatorGains, AutoPush: true, MinPushInterval: time.Second})

	device := operatorGains
	device.Ki = 0
	require.True(t, tn.Observe(sampleWith(device)))
	tn.Wait()
	require.False(t, tn.Observe(sampleWith(device)))

	*clock = clock.Add(2 * time.Second)
	require.True(t, tn.Observe(sampleWith(device)))
	tn.Wait()
	require.Len(t, w.gains(), 2)
}

func TestSinglePushInFlight(t *testing.T) {
	w := &fakeWriter{block: make(chan struct{})}
	tn, _ := newTestTuner(w, Options{Initial: operatorGains, AutoPush: true})

	device := operatorGains
	device.Kp = 0
	require.True(t, tn.Observe(sampleWith(device)))
	require.False(t, tn.Observe(sampleWith(device)))

	close(w.block)
	tn.Wait()
	require.Len(t, w.gains(), 1)

	require.True(t, tn.Observe(sampleWith(device)))
	tn.Wait()
	require.Len(t, w.gains(), 2)
}

func TestPushOnDemand(t *testing.T) {
	w := &fakeWriter{}
	tn, _ := newTestTuner(w, Options{Initial: operatorGains})

	require.NoError(t, tn.Set("kp", 4))
	require.NoError(t, tn.Set("Setpoint", 12))
	require.NoError(t, tn.Push(TriggerConsole))
	require.Equal(t, []types.Gains{{Kp: 4, Ki: 0.5, Kd: 0.1, Setpoint: 12}}, w.gains())

	w.err = errors.New("port gone")
	require.Error(t, tn.Push(TriggerConsole))
	require.Equal(t, Stats{Pushes: 1, Failures: 1}, tn.Stats())
}

func TestSetRejectsUnknownField(t *testing.T) {
	tn, _ := newTestTuner(&fakeWriter{}, Options{Initial: operatorGains})
	err := tn.Set("kx", 1)
	require.True(t, errors.Is(err, ErrUnknownField))
	require.Equal(t, operatorGains, tn.Local())
}

func TestSetGainsSeedsLocalValues(t *testing.T) {
	w := &fakeWriter{}
	tn, _ := newTestTuner(w, Options{AdoptDeviceGains: true, AutoPush: true})

	require.NoError(t, tn.SetGains(operatorGains))
	device := operatorGains
	device.Kd = 1
	// Operator values win over the first frame once set
	require.True(t, tn.Observe(sampleWith(device)))
	tn.Wait()
	require.Equal(t, []types.Gains{operatorGains}, w.gains())
}

func TestRejectsNonFiniteValues(t *testing.T) {
	w := &fakeWriter{}
	tn, clock := newTestTuner(w, Options{Initial: operatorGains, AutoPush: true, Tolerance: 1e-4})

	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	require.ErrorIs(t, tn.Set("ki", nan), ErrNonFinite)
	require.ErrorIs(t, tn.Set("kp", inf), ErrNonFinite)
	require.ErrorIs(t, tn.SetGains(types.Gains{Kp: 1, Ki: 1, Kd: -inf, Setpoint: 1}), ErrNonFinite)
	require.Equal(t, operatorGains, tn.Local())

	// Local values stay comparable, so a matching device is left alone
	for i := 0; i < 3; i++ {
		*clock = clock.Add(time.Second)
		require.False(t, tn.Observe(sampleWith(operatorGains)))
	}
	tn.Wait()
	require.Empty(t, w.gains())
}
