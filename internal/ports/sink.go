package ports

import "github.com/ghalamif/opcbridge/internal/domain"

// PublishSink receives decoded values and unavailability markers keyed by
// slot. Both calls are fire-and-forget.
type PublishSink interface {
	Publish(slot *domain.Slot, v domain.TypedValue)
	MarkUnavailable(slot *domain.Slot)
}

// SlotDeclarer is implemented by sinks that allocate downstream state for a
// slot once at startup.
type SlotDeclarer interface {
	DeclareSlot(slot *domain.Slot) error
}

// BatchSink persists observations drained from the queue.
type BatchSink interface {
	WriteBatch(observations []*domain.Observation) error
	Name() string
}
