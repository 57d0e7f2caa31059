package ports

import "github.com/ghalamif/opcbridge/internal/domain"

type WALEntryID uint64

type WAL interface {
	Append(o *domain.Observation) (WALEntryID, error)
	Iterate(from WALEntryID, fn func(id WALEntryID, o *domain.Observation) error) error
	Commit(upto WALEntryID) error
	TruncateCommitted() error
	Stats() WALStats
	Close() error
}

type WALStats struct {
	OldestUncommitted WALEntryID
	LatestAppended    WALEntryID
	SizeBytes         int64
}
