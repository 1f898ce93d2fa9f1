package authflow

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/authflow/internal/fakeapi"
)

func TestAuditEventsForLoginFlow(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	sink := NewChannelSink(32)
	c := newTestController(t, srv.URL, func(b *Builder) {
		cfg := testConfig(srv.URL)
		cfg.Audit.Enabled = true
		cfg.Audit.DropIfFull = false
		b.WithConfig(cfg).WithAuditSink(sink).WithClientID("c-42")
	})
	ctx := context.Background()

	_ = c.Login(ctx, testUserEmail, "wrong-password")
	mustLogin(t, c, testUserEmail, testUserPassword)
	c.Logout(ctx)

	want := []struct {
		event   string
		success bool
	}{
		{"auth.login", false},
		{"auth.login", true},
		{"auth.logout", true},
	}
	for i, w := range want {
		select {
		case ev := <-sink.Events():
			if ev.EventType != w.event || ev.Success != w.success || ev.ClientID != "c-42" {
				t.Fatalf("event %d: got %+v, want %s success=%v", i, ev, w.event, w.success)
			}
			if ev.Timestamp.IsZero() {
				t.Fatalf("event %d has no timestamp", i)
			}
			if w.success && ev.UserID == "" {
				t.Fatalf("event %d lacks user id", i)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestLatencyHistogramRecordsRemoteCalls(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	c := newTestController(t, srv.URL, func(b *Builder) { b.WithLatencyHistograms(true) })

	mustLogin(t, c, testUserEmail, testUserPassword)
	buckets := c.Telemetry().MetricsSnapshot().Histograms[MetricRemoteCallLatency]
	var total uint64
	for _, n := range buckets {
		total += n
	}
	if total != 1 {
		t.Fatalf("expected one latency sample, got %d (%v)", total, buckets)
	}
}

func TestNilTelemetryIsInert(t *testing.T) {
	var tel *Telemetry
	tel.inc(MetricLoginSuccess)
	tel.RecordGuardDenied()
	tel.Close()
	if tel.AuditDropped() != 0 || len(tel.MetricsSnapshot().Counters) != 0 {
		t.Fatal("nil telemetry must report nothing")
	}
}

func TestCloseFlushesSharedTelemetry(t *testing.T) {
	_, srv := newTestBackend(t, fakeapi.Config{})
	cfg := testConfig(srv.URL)
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64

	sink := NewChannelSink(64)
	tel := NewTelemetry(cfg.Audit, cfg.Metrics, sink)
	t.Cleanup(tel.Close)

	first := newTestController(t, srv.URL, func(b *Builder) { b.WithConfig(cfg).WithTelemetry(tel) })
	mustLogin(t, first, testUserEmail, testUserPassword)
	first.Close()

	if got := len(sink.Events()); got == 0 {
		t.Fatal("Close must flush the events emitted by the controller")
	}

	// the shared dispatcher keeps serving other controllers
	second := newTestController(t, srv.URL, func(b *Builder) { b.WithConfig(cfg).WithTelemetry(tel) })
	before := len(sink.Events())
	mustLogin(t, second, testAdminEmail, testAdminPassword)
	if err := tel.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(sink.Events()) <= before {
		t.Fatal("shared telemetry stopped delivering after one controller closed")
	}
	if dropped := tel.AuditDroppedByType(); len(dropped) != 0 {
		t.Fatalf("unexpected drops %v", dropped)
	}
}
