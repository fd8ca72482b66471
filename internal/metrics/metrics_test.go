package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry_Counters(t *testing.T) {
	r := New()

	r.ObserveStoreOp("delete", time.Now(), nil)
	r.ObserveStoreOp("delete", time.Now(), errors.New("boom"))
	r.ObserveStoreOp("delete", time.Now(), nil)
	r.SnapshotApplied(7)
	r.PushError()
	r.Undo("restored")
	r.AuthAttempt("rejected")

	if got := testutil.ToFloat64(r.storeOps.WithLabelValues("delete", ResultOK)); got != 2 {
		t.Fatalf("delete ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.storeOps.WithLabelValues("delete", ResultError)); got != 1 {
		t.Fatalf("delete error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.records); got != 7 {
		t.Fatalf("records gauge = %v, want 7", got)
	}
	if got := testutil.ToFloat64(r.pushErrors); got != 1 {
		t.Fatalf("push errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.undoResults.WithLabelValues("restored")); got != 1 {
		t.Fatalf("undo restored = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.authAttempts.WithLabelValues("rejected")); got != 1 {
		t.Fatalf("auth rejected = %v, want 1", got)
	}
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	r.ObserveStoreOp("create", time.Now(), nil)
	r.SnapshotApplied(1)
	r.RecordCount(1)
	r.PushError()
	r.Undo("expired")
	r.AuthAttempt("accepted")
	if r.Gatherer() == nil {
		t.Fatalf("Gatherer on nil registry returned nil")
	}
}

func TestRouter_MetricsAndHealth(t *testing.T) {
	r := New()
	r.SnapshotApplied(3)

	srv := httptest.NewServer(Router(r, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/metrics status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "tarmac_records 3") {
		t.Fatalf("/metrics body missing tarmac_records gauge:\n%s", body)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/healthz status = %d, want 200", resp.StatusCode)
	}
}

func TestRouter_UnhealthyReturns503(t *testing.T) {
	h := Router(New(), func() error { return errors.New("store unreachable") })
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "store unreachable") {
		t.Fatalf("body = %q, want reason", rec.Body.String())
	}
}
