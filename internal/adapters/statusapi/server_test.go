package statusapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/opcbridge/internal/domain"
	"github.com/ghalamif/opcbridge/internal/ports"
)

type staticStatus ports.ConnectionStatus

func (s staticStatus) Status() ports.ConnectionStatus { return ports.ConnectionStatus(s) }

func newTestServer(t *testing.T) (*Server, *domain.Registry) {
	t.Helper()
	reg := domain.NewRegistry()
	if err := reg.Register("Counter", domain.KindInt32, &domain.Slot{Name: "part_count"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("Program", domain.KindString, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	reg.Freeze()

	promReg := prometheus.NewRegistry()
	cycles := prometheus.NewCounter(prometheus.CounterOpts{Name: "opcbridge_poll_cycles_total", Help: "cycles"})
	promReg.MustRegister(cycles)
	cycles.Add(3)

	conn := staticStatus{Endpoint: "opc.tcp://plc:4840", Connected: true, Attempts: 1}
	return NewServer(":0", reg, conn, promReg, nil), reg
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "opcbridge_poll_cycles_total 3") {
		t.Fatalf("metrics missing counter: %d\n%s", rec.Code, rec.Body.String())
	}
}

func TestListPointsReportsDiagnostics(t *testing.T) {
	srv, reg := newTestServer(t)
	b, _ := reg.Lookup("Counter")
	b.RecordGood(domain.Int32Value("Counter", 42), time.Unix(1700000000, 0))
	p, _ := reg.Lookup("Program")
	p.RecordUnavailable(time.Unix(1700000000, 0))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/points", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	var body struct {
		Count  int `json:"count"`
		Points []struct {
			Slot       string `json:"slot"`
			Identifier string `json:"identifier"`
			Kind       string `json:"kind"`
			Available  bool   `json:"available"`
			LastValue  string `json:"last_value"`
		} `json:"points"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 2 {
		t.Fatalf("expected 2 points, got %d", body.Count)
	}
	first := body.Points[0]
	if first.Slot != "part_count" || first.Kind != "int32" || !first.Available || first.LastValue != "42" {
		t.Fatalf("unexpected first point: %+v", first)
	}
	if second := body.Points[1]; second.Slot != "Program" || second.Available || second.LastValue != "" {
		t.Fatalf("unexpected second point: %+v", second)
	}
}

func TestGetPointAndConnection(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/points/Missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/connection", nil))
	var st ports.ConnectionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !st.Connected || st.Endpoint != "opc.tcp://plc:4840" || st.Attempts != 1 {
		t.Fatalf("unexpected connection status: %+v", st)
	}
}
