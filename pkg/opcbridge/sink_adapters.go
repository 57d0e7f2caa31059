package opcbridge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ghalamif/opcbridge/internal/domain"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
var ErrChannelSinkClosed = errors.New("opcbridge: channel sink closed")

// ObservationBatchHandler is invoked with ordered batches dequeued from the pipeline.
type ObservationBatchHandler func([]Observation) error

// NewCallbackSink adapts a handler function into a BatchSink so callers can
// persist observations without defining structs.
func NewCallbackSink(name string, fn ObservationBatchHandler) BatchSink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes batches via a channel; it returns the sink, the read-only channel,
// and a close function that the caller should invoke during shutdown.
func NewChannelSink(name string, buffer int) (BatchSink, <-chan []Observation, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []Observation, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

// PublishFuncs adapts two functions into a PublishSink. Either may be nil.
type PublishFuncs struct {
	OnValue       func(slot *Slot, v TypedValue)
	OnUnavailable func(slot *Slot)
}

func (p PublishFuncs) Publish(slot *Slot, v TypedValue) {
	if p.OnValue != nil {
		p.OnValue(slot, v)
	}
}

func (p PublishFuncs) MarkUnavailable(slot *Slot) {
	if p.OnUnavailable != nil {
		p.OnUnavailable(slot)
	}
}

type callbackSink struct {
	name string
	fn   ObservationBatchHandler
}

func (s *callbackSink) WriteBatch(observations []*domain.Observation) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if len(observations) == 0 {
		return nil
	}
	return s.fn(copyBatch(observations))
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan []Observation
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) WriteBatch(observations []*domain.Observation) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	if len(observations) == 0 {
		return nil
	}

	batch := copyBatch(observations)

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- batch:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}

// copyBatch detaches the batch from pipeline-owned pointers.
func copyBatch(observations []*domain.Observation) []Observation {
	out := make([]Observation, len(observations))
	for i, o := range observations {
		out[i] = *o
		if o.Number != nil {
			n := *o.Number
			out[i].Number = &n
		}
	}
	return out
}
