package ports

import "github.com/ghalamif/opcbridge/internal/domain"

type QueuedObservation struct {
	ID          WALEntryID
	Observation *domain.Observation
}

type ObservationQueue interface {
	Enqueue(id WALEntryID, o *domain.Observation) bool
	DequeueBatch(max int) []QueuedObservation
	Len() int
}
