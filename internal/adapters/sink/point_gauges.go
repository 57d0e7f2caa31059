package sink

import (
	"sync"

	"github.com/ghalamif/opcbridge/internal/domain"
	"github.com/ghalamif/opcbridge/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
)

// PointGauges exposes the latest value and availability of every slot as
// Prometheus gauges. String values only drive the availability gauge.
type PointGauges struct {
	value     *prometheus.GaugeVec
	available *prometheus.GaugeVec

	mu     sync.Mutex
	points map[string]pointGauge
}

type pointGauge struct {
	value     prometheus.Gauge
	available prometheus.Gauge
}

func NewPointGauges(reg prometheus.Registerer) *PointGauges {
	labels := []string{"slot", "identifier", "kind"}
	p := &PointGauges{
		value: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "opcbridge_point_value",
			Help: "Last published numeric value per data point.",
		}, labels),
		available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "opcbridge_point_available",
			Help: "1 when the data point was read successfully in the last cycle.",
		}, labels),
		points: make(map[string]pointGauge),
	}
	if reg != nil {
		reg.MustRegister(p.value, p.available)
	}
	return p
}

// DeclareSlot pre-creates the label children so every point is visible
// before its first read.
func (p *PointGauges) DeclareSlot(slot *domain.Slot) error {
	p.gauges(slot)
	return nil
}

func (p *PointGauges) Publish(slot *domain.Slot, v domain.TypedValue) {
	g := p.gauges(slot)
	if n, ok := v.Number(); ok {
		g.value.Set(n)
	}
	g.available.Set(1)
}

func (p *PointGauges) MarkUnavailable(slot *domain.Slot) {
	p.gauges(slot).available.Set(0)
}

func (p *PointGauges) gauges(slot *domain.Slot) pointGauge {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.points[slot.Name]; ok {
		return g
	}
	lv := prometheus.Labels{"slot": slot.Name, "identifier": slot.Identifier, "kind": slot.Kind.String()}
	g := pointGauge{
		value:     p.value.With(lv),
		available: p.available.With(lv),
	}
	p.points[slot.Name] = g
	return g
}

var (
	_ ports.PublishSink  = (*PointGauges)(nil)
	_ ports.SlotDeclarer = (*PointGauges)(nil)
)
