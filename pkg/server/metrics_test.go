package server

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsRecordAndGather(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("testwire"))

	m.ConnOpened()
	m.Registration("ok")
	m.Routed("broadcast", 3)
	m.Dropped(DropMalformed)
	m.DestUnknown()
	m.SenderMismatch()
	m.ListServed()
	m.Dispatch("Broadcast", time.Millisecond)
	m.ReadBytes(64)
	m.WroteBytes(128)
	m.HandleCount(2)
	m.ConnClosed()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := make(map[string]bool, len(families))
	for _, f := range families {
		byName[f.GetName()] = true
	}

	expected := []string{
		"testwire_relay_connections_opened_total",
		"testwire_relay_connections_active",
		"testwire_relay_handles_registered",
		"testwire_relay_registrations_total",
		"testwire_relay_packets_routed_total",
		"testwire_relay_packets_dropped_total",
		"testwire_relay_dest_unknown_total",
		"testwire_relay_sender_mismatch_total",
		"testwire_relay_list_requests_total",
		"testwire_relay_dispatch_duration_seconds",
		"testwire_relay_bytes_read_total",
		"testwire_relay_bytes_written_total",
	}
	for _, name := range expected {
		if !byName[name] {
			t.Errorf("metric family %s not exported", name)
		}
	}

	if m.Gatherer() != reg {
		t.Fatal("Gatherer() did not return the configured registry")
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics

	m.ConnOpened()
	m.ConnClosed()
	m.HandleCount(1)
	m.Registration("ok")
	m.Routed("unicast", 1)
	m.Dropped(DropFraming)
	m.DestUnknown()
	m.SenderMismatch()
	m.ListServed()
	m.Dispatch("Unicast", time.Millisecond)
	m.ReadBytes(1)
	m.WroteBytes(1)

	if m.Gatherer() == nil {
		t.Fatal("nil Metrics must still return a usable gatherer")
	}
}

func TestServerWithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := DefaultConfig().WithMetrics(NewMetrics(WithRegistry(reg)))
	srv, addr := startServer(t, cfg)

	peer := dialPeer(t, addr)
	peer.register("counted")
	waitFor(t, func() bool { return srv.Directory().Count() == 1 }, "registration")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var sawRegistration bool
	for _, f := range families {
		if f.GetName() == "chatwire_relay_registrations_total" {
			sawRegistration = true
		}
	}
	if !sawRegistration {
		t.Fatal("registration was not recorded")
	}
}
