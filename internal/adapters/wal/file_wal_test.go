package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ghalamif/opcbridge/internal/domain"
	"github.com/ghalamif/opcbridge/internal/ports"
)

func TestFileWALAppendIterateAndReplay(t *testing.T) {
	dir := t.TempDir()

	w, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}

	n := 42.0
	o1 := &domain.Observation{Slot: "part_count", Kind: domain.KindInt32, Available: true, Text: "42", Number: &n}
	o2 := &domain.Observation{Slot: "program", Kind: domain.KindString}

	id1, err := w.Append(o1)
	if err != nil || id1 == 0 {
		t.Fatalf("append observation 1: %v id=%d", err, id1)
	}
	id2, err := w.Append(o2)
	if err != nil || id2 == 0 {
		t.Fatalf("append observation 2: %v id=%d", err, id2)
	}

	var iterated []*domain.Observation
	if err := w.Iterate(1, func(id ports.WALEntryID, o *domain.Observation) error {
		iterated = append(iterated, o)
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(iterated) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(iterated))
	}
	if iterated[0].Kind != domain.KindInt32 || iterated[0].Number == nil || *iterated[0].Number != 42 {
		t.Fatalf("observation did not survive the round trip: %+v", iterated[0])
	}

	if err := w.Commit(id2); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close wal: %v", err)
	}

	// Reopen and ensure committed metadata was persisted.
	w2, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("reopen wal: %v", err)
	}

	stats := w2.Stats()
	if stats.LatestAppended != id2 {
		t.Fatalf("expected latest appended %d, got %d", id2, stats.LatestAppended)
	}
	if stats.OldestUncommitted != id2+1 {
		t.Fatalf("expected oldest uncommitted %d, got %d", id2+1, stats.OldestUncommitted)
	}
	if err := w2.Close(); err != nil {
		t.Fatalf("close wal2: %v", err)
	}

	// A torn tail from a crash mid-write is cut off on the next open.
	path := filepath.Join(dir, "observations.wal")
	before, _ := os.Stat(path)
	if err := appendGarbage(path); err != nil {
		t.Fatalf("append garbage: %v", err)
	}

	w3, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("reopen after garbage: %v", err)
	}
	defer w3.Close()
	after, _ := os.Stat(path)
	if after.Size() != before.Size() {
		t.Fatalf("expected torn tail to be truncated: before=%d after=%d", before.Size(), after.Size())
	}
}

func TestFileWALTruncateCommitted(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWAL(dir)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}
	defer w.Close()

	var ids []ports.WALEntryID
	for _, slot := range []string{"a", "b", "c"} {
		id, err := w.Append(&domain.Observation{Slot: slot})
		if err != nil {
			t.Fatalf("append %s: %v", slot, err)
		}
		ids = append(ids, id)
	}

	if err := w.Commit(ids[1]); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := w.TruncateCommitted(); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	var slots []string
	if err := w.Iterate(0, func(id ports.WALEntryID, o *domain.Observation) error {
		if id != ids[2] {
			t.Fatalf("unexpected id %d after truncation", id)
		}
		slots = append(slots, o.Slot)
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(slots) != 1 || slots[0] != "c" {
		t.Fatalf("expected only the uncommitted record, got %v", slots)
	}

	// Appends after compaction keep increasing ids.
	id, err := w.Append(&domain.Observation{Slot: "d"})
	if err != nil || id != ids[2]+1 {
		t.Fatalf("append after truncate: id=%d err=%v", id, err)
	}

	if err := w.Commit(id); err != nil {
		t.Fatalf("commit all: %v", err)
	}
	if err := w.TruncateCommitted(); err != nil {
		t.Fatalf("truncate all: %v", err)
	}
	if got := w.Stats().SizeBytes; got != 0 {
		t.Fatalf("expected empty wal, got %d bytes", got)
	}
}

func appendGarbage(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte{0xFF, 0xAA})
	return err
}
