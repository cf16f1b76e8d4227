package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestMetricsServer(t *testing.T) {
	srv, err := Listen(0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	RecordSearch(3, nil)
	RecordSearch(0, errors.New("boom"))
	RecordVisit("example.com", Visit{
		StatusCode: 200,
		Bytes:      11,
		Duration:   time.Second,
	})
	RecordVisit("broken.org", Visit{Failed: true})

	_, port, err := net.SplitHostPort(srv.Addr())
	if err != nil {
		t.Fatalf("bad addr %q: %v", srv.Addr(), err)
	}
	resp, err := http.Get("http://127.0.0.1:" + port + "/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	output := string(body)

	for _, want := range []string{
		`prospector_search_requests_total{outcome="ok"}`,
		`prospector_search_requests_total{outcome="failed"}`,
		`prospector_search_results_total`,
		`prospector_page_visit_duration_seconds_bucket`,
		`prospector_page_bytes_total{domain="example.com"} 11`,
		`prospector_page_visits_total{challenge="",domain="broken.org",status="error"}`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in metrics output", want)
		}
	}

	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("serve returned %v after stop", err)
	}
}
