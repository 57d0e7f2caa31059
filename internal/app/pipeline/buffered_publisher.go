package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ghalamif/opcbridge/internal/domain"
	"github.com/ghalamif/opcbridge/internal/ports"
)

// BufferedPublisher is a PublishSink that turns every publish and
// unavailability marker into an Observation, appends it to the WAL and
// hands it to the ingest queue.
type BufferedPublisher struct {
	runID string
	wal   ports.WAL
	q     ports.ObservationQueue
	pol   ports.Policy
	obs   ports.Observability
	now   func() time.Time

	mu  sync.Mutex
	seq map[string]uint64
}

func NewBufferedPublisher(wal ports.WAL, q ports.ObservationQueue, pol ports.Policy, obs ports.Observability) *BufferedPublisher {
	if obs == nil {
		obs = nopObs{}
	}
	return &BufferedPublisher{
		runID: uuid.NewString(),
		wal:   wal,
		q:     q,
		pol:   pol,
		obs:   obs,
		now:   time.Now,
		seq:   make(map[string]uint64),
	}
}

// RunID identifies this process run in every observation it emits.
func (p *BufferedPublisher) RunID() string { return p.runID }

func (p *BufferedPublisher) Publish(slot *domain.Slot, v domain.TypedValue) {
	p.push(domain.NewObservation(slot, v, p.now()))
}

func (p *BufferedPublisher) MarkUnavailable(slot *domain.Slot) {
	p.push(domain.UnavailableObservation(slot, p.now()))
}

func (p *BufferedPublisher) push(o *domain.Observation) {
	o.RunID = p.runID
	o.Seq = p.nextSeq(o.Slot)

	if !waitForWALCapacity(p.wal, p.pol, p.obs) {
		p.obs.IncCounter(ports.MetricQueueDropped, 1)
		return
	}

	id, err := p.wal.Append(o)
	if err != nil {
		p.obs.LogCritical("wal_append_failed", err, ports.Field{Key: "slot", Value: o.Slot})
		return
	}

	if !enqueueWithPolicy(p.q, id, o, p.pol, p.obs) {
		p.obs.IncCounter(ports.MetricQueueDropped, 1)
	}
	p.obs.SetGauge(ports.MetricQueueLength, float64(p.q.Len()))
}

func (p *BufferedPublisher) nextSeq(slot string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq[slot]++
	return p.seq[slot]
}

func waitForWALCapacity(wal ports.WAL, pol ports.Policy, obs ports.Observability) bool {
	if pol.MaxWALSizeBytes <= 0 {
		return true
	}
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		stats := wal.Stats()
		if stats.SizeBytes < pol.MaxWALSizeBytes {
			return true
		}

		switch pol.OnWALFull {
		case "block":
			time.Sleep(sleep)
		case "drop":
			obs.LogError("wal_full_drop", fmt.Errorf("size=%d limit=%d", stats.SizeBytes, pol.MaxWALSizeBytes))
			return false
		default:
			obs.LogError("wal_policy_invalid", fmt.Errorf("policy=%s", pol.OnWALFull))
			return false
		}
	}
}

func enqueueWithPolicy(q ports.ObservationQueue, id ports.WALEntryID, o *domain.Observation, pol ports.Policy, obs ports.Observability) bool {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		if ok := q.Enqueue(id, o); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			time.Sleep(sleep)
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen))
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}

// ReplayWAL re-enqueues every uncommitted observation left by a previous run.
// It returns the number of observations replayed.
func ReplayWAL(wal ports.WAL, q ports.ObservationQueue, pol ports.Policy, obs ports.Observability) (int, error) {
	stats := wal.Stats()
	if stats.LatestAppended == 0 {
		return 0, nil
	}
	start := stats.OldestUncommitted
	if start == 0 || start > stats.LatestAppended {
		return 0, nil
	}

	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	var replayed int
	err := wal.Iterate(start, func(id ports.WALEntryID, o *domain.Observation) error {
		for {
			if q.Enqueue(id, o) {
				replayed++
				return nil
			}
			switch pol.OnQueueFull {
			case "drop", "reject":
				return fmt.Errorf("queue full during WAL replay at entry %d", id)
			default:
				time.Sleep(sleep)
			}
		}
	})
	if err != nil {
		return replayed, err
	}
	if replayed > 0 && obs != nil {
		obs.LogInfo("wal_replay_complete",
			ports.Field{Key: "observations", Value: replayed},
			ports.Field{Key: "from_id", Value: start})
	}
	return replayed, nil
}

var _ ports.PublishSink = (*BufferedPublisher)(nil)
