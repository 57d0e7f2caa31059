package domain

import "time"

// Observation is the canonical record of one publish or unavailability marker
// as it travels through the WAL, the queue and the batch sinks.
type Observation struct {
	RunID      string    `json:"run_id"`
	Slot       string    `json:"slot"`
	Identifier string    `json:"identifier"`
	Kind       Kind      `json:"kind"`
	Category   Category  `json:"category"`
	Timestamp  time.Time `json:"ts"`
	Seq        uint64    `json:"seq"`
	Available  bool      `json:"available"`
	Text       string    `json:"text,omitempty"`
	Number     *float64  `json:"number,omitempty"`
}

// NewObservation builds the record for a published value.
func NewObservation(slot *Slot, v TypedValue, at time.Time) *Observation {
	o := &Observation{
		Slot:       slot.Name,
		Identifier: v.Identifier,
		Kind:       v.Kind,
		Category:   v.Kind.Category(),
		Timestamp:  at,
		Available:  true,
		Text:       v.Format(),
	}
	if n, ok := v.Number(); ok {
		o.Number = &n
	}
	return o
}

// UnavailableObservation builds the record emitted when slot has no value.
func UnavailableObservation(slot *Slot, at time.Time) *Observation {
	return &Observation{
		Slot:       slot.Name,
		Identifier: slot.Identifier,
		Kind:       slot.Kind,
		Category:   slot.Kind.Category(),
		Timestamp:  at,
	}
}
