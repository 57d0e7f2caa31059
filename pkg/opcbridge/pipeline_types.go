package opcbridge

import (
	"github.com/ghalamif/opcbridge/internal/app/connection"
	"github.com/ghalamif/opcbridge/internal/app/pipeline"
	"github.com/ghalamif/opcbridge/internal/domain"
	"github.com/ghalamif/opcbridge/internal/ports"
)

// Kind is the declared scalar type of a data point.
type Kind = domain.Kind

// TypedValue is a decoded scalar tagged with its kind.
type TypedValue = domain.TypedValue

// RawScalar is a scalar as received from the device, before decoding.
type RawScalar = domain.RawScalar

// Slot is the local publish target of a data point.
type Slot = domain.Slot

// Binding ties a remote identifier to its kind and slot.
type Binding = domain.Binding

// Registry holds the bindings polled each cycle.
type Registry = domain.Registry

// Observation is the record that flows through the WAL→queue→sink pipeline.
type Observation = domain.Observation

// QueuedObservation represents an item buffered inside the bounded queue.
type QueuedObservation = ports.QueuedObservation

// ReadClient is one handle onto the remote device.
type ReadClient = ports.ReadClient

// ClientFactory allocates unconnected read clients.
type ClientFactory = ports.ClientFactory

// ConnectionStatus is a diagnostic snapshot of the connection manager.
type ConnectionStatus = ports.ConnectionStatus

// PublishSink receives every decoded value and unavailability marker.
type PublishSink = ports.PublishSink

// BatchSink consumes batches of observations and persists them to any downstream system.
type BatchSink = ports.BatchSink

// ObservationQueue is the bounded, in-memory queue that decouples polling and persistence.
type ObservationQueue = ports.ObservationQueue

// Observability emits metrics and structured logs.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field

// WAL abstracts the write-ahead log used for durability and crash recovery.
type WAL = ports.WAL

// WALStats exposes WAL metadata for observability.
type WALStats = ports.WALStats

// WALEntryID uniquely identifies a WAL entry.
type WALEntryID = ports.WALEntryID

// CycleReport summarises one poll cycle.
type CycleReport = pipeline.CycleReport

// MinCooldown is the shortest reconnect cooldown accepted.
const MinCooldown = connection.MinCooldown

// Data point kinds.
const (
	KindBool   = domain.KindBool
	KindByte   = domain.KindByte
	KindInt16  = domain.KindInt16
	KindInt32  = domain.KindInt32
	KindInt64  = domain.KindInt64
	KindFloat  = domain.KindFloat
	KindDouble = domain.KindDouble
	KindString = domain.KindString
)

// Errors surfaced by the runtime.
var (
	ErrDuplicateIdentifier = domain.ErrDuplicateIdentifier
	ErrUnknownKind         = domain.ErrUnknownKind
	ErrConnectFailed       = domain.ErrConnectFailed
	ErrNotConnected        = domain.ErrNotConnected
	ErrClosed              = domain.ErrClosed
	ErrReadFailed          = domain.ErrReadFailed
	ErrNotScalar           = domain.ErrNotScalar
	ErrConversionFailed    = domain.ErrConversionFailed
	ErrCycleInProgress     = pipeline.ErrCycleInProgress
)
