package tuner

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
)

// Push triggers, passed to OnPush.
const (
	TriggerDrift   = "drift"
	TriggerConsole = "console"
	TriggerMQTT    = "mqtt"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrNonFinite    = errors.New("value must be a finite number")
)

// GainsWriter sends gains to the device. *port_reader.BTReader implements it.
type GainsWriter interface {
	WriteGains(g types.Gains) error
}

type Options struct {
	Initial          types.Gains
	AdoptDeviceGains bool
	AutoPush         bool
	Tolerance        float64
	MinPushInterval  time.Duration
}

// Tuner holds the operator's gains and pushes them when the device disagrees.
type Tuner struct {
	writer GainsWriter
	opts   Options

	mu       sync.RWMutex
	local    types.Gains
	seeded   bool
	autoPush bool
	lastPush time.Time

	pushing  atomic.Bool
	inFlight sync.WaitGroup
	pushes   atomic.Int64
	failures atomic.Int64

	// Called after every push attempt, from the pushing goroutine.
	OnPush func(g types.Gains, trigger string, err error)

	now func() time.Time
}

type Stats struct {
	Pushes   int64
	Failures int64
}
