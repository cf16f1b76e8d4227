package proxy

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func next(t *testing.T, p *Pool) string {
	t.Helper()
	u := p.Next()
	if u == nil {
		t.Fatal("expected a proxy, got nil")
	}
	return u.String()
}

func TestPool_RoundRobin(t *testing.T) {
	pool, err := New(Config{}, "127.0.0.1:8080", "http://127.0.0.1:8081", "socks5://127.0.0.1:9050")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	want := []string{
		"http://127.0.0.1:8080",
		"http://127.0.0.1:8081",
		"socks5://127.0.0.1:9050",
		"http://127.0.0.1:8080", // wraps around
	}
	for i, w := range want {
		if got := next(t, pool); got != w {
			t.Errorf("call %d: got %s, want %s", i, got, w)
		}
	}
	if pool.Len() != 3 {
		t.Errorf("Len = %d", pool.Len())
	}
}

func TestPool_BenchAndRecover(t *testing.T) {
	pool, _ := New(Config{MaxFailures: 2, Cooldown: 10 * time.Millisecond}, "http://a", "http://b")

	a := pool.Next()
	_ = pool.Report(a, false)
	_ = pool.Report(a, false)

	if got := next(t, pool); got != "http://b" {
		t.Fatalf("expected http://b, got %s", got)
	}
	if got := next(t, pool); got != "http://b" {
		t.Fatalf("expected http://b while a is benched, got %s", got)
	}

	time.Sleep(15 * time.Millisecond)
	if got := next(t, pool); got != "http://a" {
		t.Fatalf("expected http://a after cooldown, got %s", got)
	}
}

func TestPool_SuccessResetsFailures(t *testing.T) {
	pool, _ := New(Config{MaxFailures: 2, Cooldown: time.Hour}, "http://a")

	a := pool.Next()
	_ = pool.Report(a, false)
	_ = pool.Report(a, true)
	_ = pool.Report(a, false)

	if pool.Next() == nil {
		t.Fatal("non-consecutive failures should not bench the proxy")
	}
}

func TestPool_AllBenched(t *testing.T) {
	pool, _ := New(Config{MaxFailures: 1, Cooldown: time.Hour}, "http://a")

	_ = pool.Report(pool.Next(), false)
	if u := pool.Next(); u != nil {
		t.Errorf("expected nil when every proxy is benched, got %v", u)
	}
}

func TestPool_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	content := `
# some comment
http://proxy1.com
proxy2.com:80

socks5://proxy3.com:1080
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write proxy file: %v", err)
	}

	pool, _ := New(Config{})
	if err := pool.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	want := []string{"http://proxy1.com", "http://proxy2.com:80", "socks5://proxy3.com:1080"}
	for i, w := range want {
		if got := next(t, pool); got != w {
			t.Errorf("entry %d: got %s, want %s", i, got, w)
		}
	}

	if err := pool.LoadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPool_AddRejectsHostless(t *testing.T) {
	if _, err := New(Config{}, "http://"); err == nil {
		t.Error("expected error for a proxy without host")
	}
}

func TestPool_ReportUnknown(t *testing.T) {
	pool, _ := New(Config{}, "http://a")
	u, _ := url.Parse("http://unknown")

	if err := pool.Report(u, true); !errors.Is(err, ErrUnknownProxy) {
		t.Errorf("expected ErrUnknownProxy, got %v", err)
	}
	if err := pool.Report(nil, false); err == nil {
		t.Error("expected error for nil url")
	}
}

func TestPool_EmptyAndNil(t *testing.T) {
	pool, _ := New(Config{})
	if u := pool.Next(); u != nil {
		t.Errorf("expected nil on empty pool, got %v", u)
	}

	var nilPool *Pool
	if nilPool.Next() != nil || nilPool.Len() != 0 {
		t.Error("nil pool should be empty")
	}
}
