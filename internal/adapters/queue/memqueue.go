package queue

import (
	"sync"

	"github.com/ghalamif/opcbridge/internal/domain"
	"github.com/ghalamif/opcbridge/internal/ports"
)

// MemQueue is a bounded in-memory FIFO of observations waiting for the batch
// sink.
type MemQueue struct {
	mu   sync.Mutex
	data []ports.QueuedObservation
	cap  int
}

func NewMemQueue(capacity int) *MemQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemQueue{
		data: make([]ports.QueuedObservation, 0, capacity),
		cap:  capacity,
	}
}

func (q *MemQueue) Enqueue(id ports.WALEntryID, o *domain.Observation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) >= q.cap {
		return false
	}
	q.data = append(q.data, ports.QueuedObservation{ID: id, Observation: o})
	return true
}

func (q *MemQueue) DequeueBatch(max int) []ports.QueuedObservation {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(q.data) {
		max = len(q.data)
	}
	out := make([]ports.QueuedObservation, max)
	copy(out, q.data[:max])
	q.data = append(q.data[:0], q.data[max:]...)
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

var _ ports.ObservationQueue = (*MemQueue)(nil)
