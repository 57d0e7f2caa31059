package queue

import (
	"testing"

	"github.com/ghalamif/opcbridge/internal/domain"
)

func TestMemQueueEnqueueDequeueOrder(t *testing.T) {
	q := NewMemQueue(4)

	o1 := &domain.Observation{Slot: "spindle_speed"}
	o2 := &domain.Observation{Slot: "part_count"}

	if !q.Enqueue(1, o1) || !q.Enqueue(2, o2) {
		t.Fatalf("expected successful enqueue")
	}

	batch := q.DequeueBatch(1)
	if len(batch) != 1 || batch[0].ID != 1 || batch[0].Observation.Slot != "spindle_speed" {
		t.Fatalf("unexpected first batch: %+v", batch)
	}

	remaining := q.DequeueBatch(10)
	if len(remaining) != 1 || remaining[0].ID != 2 {
		t.Fatalf("unexpected second batch: %+v", remaining)
	}

	if q.Len() != 0 {
		t.Fatalf("queue should be empty, got %d", q.Len())
	}
	if q.DequeueBatch(5) != nil {
		t.Fatalf("expected nil batch from empty queue")
	}
}

func TestMemQueueCapacity(t *testing.T) {
	q := NewMemQueue(2)

	o := &domain.Observation{Slot: "cap"}

	if !q.Enqueue(1, o) || !q.Enqueue(2, o) {
		t.Fatalf("expected enqueue within capacity")
	}
	if q.Enqueue(3, o) {
		t.Fatalf("enqueue should fail when capacity exceeded")
	}

	q.DequeueBatch(1)
	if !q.Enqueue(4, o) {
		t.Fatalf("expected enqueue to succeed after dequeue")
	}
}
