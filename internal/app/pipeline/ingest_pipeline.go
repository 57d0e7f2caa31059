package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/opcbridge/internal/domain"
	"github.com/ghalamif/opcbridge/internal/ports"
)

// RunIngestPipeline drains the queue into sink until ctx is cancelled. A
// batch the sink rejects is retried before anything newer is written, and is
// committed in the WAL only once accepted. Whatever is still pending at
// shutdown stays in the WAL for replay.
func RunIngestPipeline(ctx context.Context, wal ports.WAL, q ports.ObservationQueue, sink ports.BatchSink, pol ports.Policy, obs ports.Observability) {
	if obs == nil {
		obs = nopObs{}
	}
	idle := pol.IdleSleep
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}

	var pending []ports.QueuedObservation
	for {
		if len(pending) == 0 {
			pending = q.DequeueBatch(pol.MaxBatchSize)
		}
		if len(pending) > 0 && writeBatch(wal, sink, pending, obs) {
			pending = nil
			continue
		}

		select {
		case <-ctx.Done():
			if len(pending) > 0 && !writeBatch(wal, sink, pending, obs) {
				return
			}
			for {
				batch := q.DequeueBatch(pol.MaxBatchSize)
				if len(batch) == 0 || !writeBatch(wal, sink, batch, obs) {
					return
				}
			}
		case <-time.After(idle):
		}
	}
}

func writeBatch(wal ports.WAL, sink ports.BatchSink, batch []ports.QueuedObservation, obs ports.Observability) bool {
	var (
		out   = make([]*domain.Observation, 0, len(batch))
		maxID ports.WALEntryID
	)
	for _, item := range batch {
		out = append(out, item.Observation)
		if item.ID > maxID {
			maxID = item.ID
		}
	}

	start := time.Now()
	if err := sink.WriteBatch(out); err != nil {
		obs.LogError("sink_write_failed", err,
			ports.Field{Key: "sink", Value: sink.Name()},
			ports.Field{Key: "observations", Value: len(out)})
		return false
	}
	obs.ObserveLatency(ports.MetricSinkLatency, time.Since(start).Seconds())
	obs.IncCounter(ports.MetricObservationsStored, float64(len(out)))

	if err := wal.Commit(maxID); err != nil {
		obs.LogError("wal_commit_failed", err)
		return true
	}
	stats := wal.Stats()
	if stats.OldestUncommitted > stats.LatestAppended && stats.SizeBytes > 0 {
		if err := wal.TruncateCommitted(); err != nil {
			obs.LogError("wal_truncate_failed", err)
		}
		stats = wal.Stats()
	}
	obs.SetGauge(ports.MetricWALSize, float64(stats.SizeBytes))
	return true
}
