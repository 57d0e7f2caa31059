package sink

import (
	"errors"

	"github.com/ghalamif/opcbridge/internal/domain"
	"github.com/ghalamif/opcbridge/internal/ports"
)

// Fanout forwards every call to each wrapped sink in order.
type Fanout []ports.PublishSink

func (f Fanout) Publish(slot *domain.Slot, v domain.TypedValue) {
	for _, s := range f {
		s.Publish(slot, v)
	}
}

func (f Fanout) MarkUnavailable(slot *domain.Slot) {
	for _, s := range f {
		s.MarkUnavailable(slot)
	}
}

func (f Fanout) DeclareSlot(slot *domain.Slot) error {
	var errs []error
	for _, s := range f {
		if d, ok := s.(ports.SlotDeclarer); ok {
			if err := d.DeclareSlot(slot); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

var (
	_ ports.PublishSink  = Fanout(nil)
	_ ports.SlotDeclarer = Fanout(nil)
)
