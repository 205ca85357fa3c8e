package tuner

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/pidutils"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	log "github.com/sirupsen/logrus"
)

func New(writer GainsWriter, opts Options) *Tuner {
	return &Tuner{
		writer:   writer,
		opts:     opts,
		local:    opts.Initial,
		seeded:   !opts.AdoptDeviceGains,
		autoPush: opts.AutoPush,
		now:      time.Now,
	}
}

func (t *Tuner) Local() types.Gains {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.local
}

// Set changes one local value by name: kp, ki, kd or setpoint.
func (t *Tuner) Set(field string, value float32) error {
	if f := float64(value); math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %s=%g", ErrNonFinite, field, value)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	switch strings.ToLower(field) {
	case "kp":
		t.local.Kp = value
	case "ki":
		t.local.Ki = value
	case "kd":
		t.local.Kd = value
	case "setpoint", "sp":
		t.local.Setpoint = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	t.seeded = true
	return nil
}

func (t *Tuner) SetGains(g types.Gains) error {
	if !g.Finite() {
		return fmt.Errorf("%w: %+v", ErrNonFinite, g)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.local = g
	t.seeded = true
	return nil
}

func (t *Tuner) SetAutoPush(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.autoPush = enabled
}

func (t *Tuner) AutoPush() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.autoPush
}

// Drifted reports whether the device runs with values other than ours.
func (t *Tuner) Drifted(sample *types.Sample) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seeded && !pidutils.GainsEqual(t.local, sample.Gains(), t.opts.Tolerance)
}

// Observe checks a received sample and, when the device drifted from the
// local values, pushes them from a short-lived goroutine. It returns true if
// a push was started.
func (t *Tuner) Observe(sample *types.Sample) bool {
	t.mu.Lock()
	if !t.seeded {
		// First frame: take over what the device runs with
		t.local = sample.Gains()
		t.seeded = true
		t.mu.Unlock()
		log.Infof("Adopted device gains kp=%g ki=%g kd=%g setpoint=%g", sample.Kp, sample.Ki, sample.Kd, sample.Setpoint)
		return false
	}
	local := t.local
	if !t.autoPush || pidutils.GainsEqual(local, sample.Gains(), t.opts.Tolerance) {
		t.mu.Unlock()
		return false
	}
	now := t.now()
	if !t.lastPush.IsZero() && now.Sub(t.lastPush) < t.opts.MinPushInterval {
		t.mu.Unlock()
		return false
	}
	if !t.pushing.CompareAndSwap(false, true) {
		t.mu.Unlock()
		return false
	}
	t.lastPush = now
	t.inFlight.Add(1)
	t.mu.Unlock()

	log.Infof("Device drifted on %s, pushing local values",
		strings.Join(pidutils.DriftedFields(local, sample.Gains(), t.opts.Tolerance), ","))

	go func() {
		defer t.inFlight.Done()
		defer t.pushing.Store(false)
		t.write(local, TriggerDrift)
	}()
	return true
}

// Push writes the local values now, on the caller's goroutine.
func (t *Tuner) Push(trigger string) error {
	t.mu.Lock()
	local := t.local
	t.lastPush = t.now()
	t.mu.Unlock()
	return t.write(local, trigger)
}

func (t *Tuner) write(g types.Gains, trigger string) error {
	err := t.writer.WriteGains(g)
	if err != nil {
		t.failures.Add(1)
		log.Errorf("Failed to push gains (%s): %v", trigger, err)
	} else {
		t.pushes.Add(1)
		log.Infof("Pushed kp=%g ki=%g kd=%g setpoint=%g (%s)", g.Kp, g.Ki, g.Kd, g.Setpoint, trigger)
	}
	if t.OnPush != nil {
		t.OnPush(g, trigger, err)
	}
	return err
}

// Wait blocks until background pushes are done.
func (t *Tuner) Wait() {
	t.inFlight.Wait()
}

func (t *Tuner) Stats() Stats {
	return Stats{Pushes: t.pushes.Load(), Failures: t.failures.Load()}
}
