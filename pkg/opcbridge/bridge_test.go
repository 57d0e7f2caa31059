package opcbridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ghalamif/opcbridge/internal/domain"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := ParseConfig([]byte(`
communications:
  url: opc.tcp://sim:4840
poll:
  interval: 10ms
data:
  - { type: int32, identifier: Counter, name: part_count }
  - { type: string, identifier: Program }
  - { type: bool, identifier: Running }
metrics:
  addr: ":0"
policy:
  max_queue_len: 64
  max_batch_size: 16
  idle_sleep: 1ms
`))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.WAL.Dir = t.TempDir()
	return cfg
}

func TestNewBridgeWithCustomAdapters(t *testing.T) {
	cfg := testConfig(t)

	sim := newSimulator()
	batch := NewCallbackSink("stub", func([]Observation) error { return nil })
	obsStub := &stubObservability{}

	b, err := NewBridge(cfg,
		WithClientFactory(sim.factory),
		WithBatchSink(batch),
		WithObservability(obsStub),
		WithoutStatusServer(),
	)
	if err != nil {
		t.Fatalf("NewBridge returned error: %v", err)
	}
	defer b.Shutdown(context.Background())

	if b.batchSink != batch {
		t.Fatalf("expected custom batch sink to be used")
	}
	if b.obs != obsStub {
		t.Fatalf("expected custom observability to be used")
	}
	if b.db != nil {
		t.Fatalf("expected db to be nil when custom sink is provided")
	}
	if b.status != nil {
		t.Fatalf("expected status server to be disabled")
	}
	if b.RunID() == "" {
		t.Fatalf("expected run id when persistence is enabled")
	}
	if b.Registry().Len() != 3 || !b.Registry().Frozen() {
		t.Fatalf("expected frozen registry with 3 points")
	}
	if sim.allocations() != 1 {
		t.Fatalf("expected the initial client handle to be allocated, got %d", sim.allocations())
	}
}

func TestBridgePollOnce(t *testing.T) {
	cfg := testConfig(t)
	sim := newSimulator()
	sim.set("Counter", domain.Encode(domain.Int32Value("Counter", 42)))
	sim.set("Running", domain.Encode(domain.BoolValue("Running", true)))

	var got []string
	printer := PublishFuncs{
		OnValue:       func(s *Slot, v TypedValue) { got = append(got, s.Name+"="+v.Format()) },
		OnUnavailable: func(s *Slot) { got = append(got, s.Name+" unavailable") },
	}

	b, err := NewBridge(cfg,
		WithClientFactory(sim.factory),
		WithPublishSink(printer),
		WithoutPersistence(),
		WithoutStatusServer(),
	)
	if err != nil {
		t.Fatalf("NewBridge returned error: %v", err)
	}
	defer b.Shutdown(context.Background())

	rep, err := b.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("poll once: %v", err)
	}
	want := []string{"part_count=42", "Program unavailable", "Running=1"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if rep.Published != 2 || rep.Unavailable != 1 || !b.ConnectionStatus().Connected {
		t.Fatalf("unexpected report %+v / status %+v", rep, b.ConnectionStatus())
	}
	if b.RunID() != "" {
		t.Fatalf("expected no run id without persistence")
	}
}

func TestBridgeRunPersistsObservations(t *testing.T) {
	cfg := testConfig(t)
	sim := newSimulator()
	sim.set("Counter", domain.Encode(domain.Int32Value("Counter", 7)))
	sim.set("Program", domain.Encode(domain.StringValue("Program", "O1000")))
	sim.set("Running", domain.Encode(domain.BoolValue("Running", false)))

	batchSink, batches, closeFn := NewChannelSink("test", 64)
	defer closeFn()

	b, err := NewBridge(cfg,
		WithClientFactory(sim.factory),
		WithBatchSink(batchSink),
		WithoutStatusServer(),
	)
	if err != nil {
		t.Fatalf("NewBridge returned error: %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	var (
		seen        []Observation
		unavailable = map[string]bool{}
		published   = map[string]string{}
	)
	deadline := time.After(3 * time.Second)
	for len(published) < 3 {
		select {
		case batch := <-batches:
			seen = append(seen, batch...)
			for _, o := range batch {
				if o.Available {
					published[o.Slot] = o.Text
				} else {
					unavailable[o.Slot] = true
				}
			}
		case <-deadline:
			t.Fatalf("timed out, saw %d observations", len(seen))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	for _, slot := range []string{"part_count", "Program", "Running"} {
		if !unavailable[slot] {
			t.Fatalf("expected %s to be marked unavailable at startup", slot)
		}
	}
	if published["part_count"] != "7" || published["Program"] != "O1000" || published["Running"] != "0" {
		t.Fatalf("unexpected published values: %v", published)
	}
	if seen[0].Seq != 1 || seen[0].Available || seen[0].RunID != b.RunID() {
		t.Fatalf("first observation should be the startup marker: %+v", seen[0])
	}
	if !sim.closedAll() {
		t.Fatalf("expected client handle to be released on shutdown")
	}
}

func TestBuildRegistryErrors(t *testing.T) {
	if _, err := BuildRegistry([]DataPoint{{Type: "word", Identifier: "X"}}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	_, err := BuildRegistry([]DataPoint{
		{Type: "int32", Identifier: "X"},
		{Type: "double", Identifier: "X"},
	})
	if !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("expected ErrDuplicateIdentifier, got %v", err)
	}

	reg, err := BuildRegistry([]DataPoint{{Type: "float", Identifier: "Temp"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b, _ := reg.Lookup("Temp")
	if b.Slot.Name != "Temp" || b.Kind != KindFloat {
		t.Fatalf("unexpected binding %+v", b)
	}
}

type simulator struct {
	mu      sync.Mutex
	values  map[string]RawScalar
	clients []*simClient
}

func newSimulator() *simulator {
	return &simulator{values: make(map[string]RawScalar)}
}

func (s *simulator) set(id string, raw RawScalar) {
	s.mu.Lock()
	s.values[id] = raw
	s.mu.Unlock()
}

func (s *simulator) factory(string) (ReadClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &simClient{sim: s}
	s.clients = append(s.clients, c)
	return c, nil
}

func (s *simulator) allocations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *simulator) closedAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if !c.closed {
			return false
		}
	}
	return true
}

type simClient struct {
	sim    *simulator
	closed bool
}

func (c *simClient) Connect(context.Context) error { return nil }

func (c *simClient) Read(_ context.Context, id string) (RawScalar, error) {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	raw, ok := c.sim.values[id]
	if !ok {
		return RawScalar{}, ErrReadFailed
	}
	return raw, nil
}

func (c *simClient) Close(context.Context) error {
	c.sim.mu.Lock()
	c.closed = true
	c.sim.mu.Unlock()
	return nil
}

type stubObservability struct{}

func (s *stubObservability) LogInfo(string, ...Field)            {}
func (s *stubObservability) LogError(string, error, ...Field)    {}
func (s *stubObservability) LogCritical(string, error, ...Field) {}
func (s *stubObservability) IncCounter(string, float64)          {}
func (s *stubObservability) ObserveLatency(string, float64)      {}
func (s *stubObservability) SetGauge(string, float64)            {}
