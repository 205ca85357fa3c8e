package sampledb

import (
	"sync/atomic"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	log "github.com/sirupsen/logrus"
)

// Recorder inserts samples from its own goroutine so the serial reader
// never waits on disk.
type Recorder struct {
	db        *SampleDB
	sessionID string
	queue     chan *types.Sample
	done      chan struct{}
	dropped   atomic.Int64
	failed    atomic.Int64
}

// NewRecorder starts writing samples of sessionID. size is the number of
// samples that may wait for the database before new ones are dropped.
func (s *SampleDB) NewRecorder(sessionID string, size int) *Recorder {
	r := &Recorder{
		db:        s,
		sessionID: sessionID,
		queue:     make(chan *types.Sample, size),
		done:      make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for sample := range r.queue {
		if err := r.db.InsertSample(r.sessionID, sample); err != nil {
			if r.failed.Add(1) == 1 {
				log.Warnf("Failed to store sample: %v", err)
			}
		}
	}
}

// Record queues a sample and reports false when the queue was full.
// Must not be called after Close.
func (r *Recorder) Record(sample *types.Sample) bool {
	select {
	case r.queue <- sample:
		return true
	default:
		if r.dropped.Add(1) == 1 {
			log.Warn("Sample database is falling behind, dropping samples")
		}
		return false
	}
}

// Close waits until every queued sample is written.
func (r *Recorder) Close() {
	close(r.queue)
	<-r.done
	if n := r.failed.Load(); n > 0 {
		log.Warnf("%d samples could not be stored", n)
	}
	if n := r.dropped.Load(); n > 0 {
		log.Warnf("%d samples were dropped before reaching the database", n)
	}
}

func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}
