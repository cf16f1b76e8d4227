package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/FranksOps/prospector/internal/storage"
)

func TestSQLiteBackend(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "prospects.db")
	b, err := New(dsn)
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	prospects := []*storage.Prospect{
		{
			ID:           "p1",
			RunID:        "run-a",
			Domain:       "garden.com",
			URL:          "https://garden.com/write",
			Title:        "Write for us",
			Snippet:      "guest post guidelines",
			Emails:       []string{"editor@garden.com", "hello@garden.com"},
			ContactLinks: []string{"https://garden.com/contact"},
			CreatedAt:    now.Add(-2 * time.Hour),
		},
		{
			ID:           "p2",
			RunID:        "run-a",
			Domain:       "plants.org",
			URL:          "https://plants.org/guest",
			Emails:       []string{},
			ContactLinks: []string{},
			CreatedAt:    now.Add(-2 * time.Hour),
		},
		{
			ID:        "p3",
			RunID:     "run-b",
			Domain:    "garden.com",
			URL:       "https://garden.com/contribute",
			CreatedAt: now,
		},
	}
	for _, p := range prospects {
		if err := b.Save(ctx, p); err != nil {
			t.Fatalf("Failed to save %s: %v", p.ID, err)
		}
	}

	byRun, err := b.Query(ctx, storage.Filter{RunID: "run-a"})
	if err != nil {
		t.Fatalf("Failed to query by run: %v", err)
	}
	if len(byRun) != 2 || byRun[0].ID != "p1" || byRun[1].ID != "p2" {
		t.Fatalf("Expected p1, p2 in insertion order, got %v", byRun)
	}
	if !reflect.DeepEqual(byRun[0].Emails, prospects[0].Emails) {
		t.Errorf("Emails did not roundtrip: %v", byRun[0].Emails)
	}
	if len(byRun[1].Emails) != 0 || len(byRun[1].ContactLinks) != 0 {
		t.Errorf("Expected empty lists for p2, got %v / %v", byRun[1].Emails, byRun[1].ContactLinks)
	}

	byDomain, _ := b.Query(ctx, storage.Filter{Domain: "garden.com"})
	if len(byDomain) != 2 {
		t.Errorf("Expected 2 garden.com rows, got %d", len(byDomain))
	}

	past := now.Add(-time.Hour)
	since, _ := b.Query(ctx, storage.Filter{Since: &past})
	if len(since) != 1 || since[0].ID != "p3" {
		t.Errorf("Expected only p3 since -1h, got %v", since)
	}

	offset, _ := b.Query(ctx, storage.Filter{Offset: 2})
	if len(offset) != 1 || offset[0].ID != "p3" {
		t.Errorf("Expected p3 at offset 2, got %v", offset)
	}

	limited, _ := b.Query(ctx, storage.Filter{Limit: 1})
	if len(limited) != 1 || limited[0].ID != "p1" {
		t.Errorf("Expected p1 with limit 1, got %v", limited)
	}

	if err := b.Save(ctx, prospects[0]); err == nil {
		t.Errorf("Expected duplicate id to be rejected")
	}
}

func TestSQLiteBackend_SinceIgnoresLocalZone(t *testing.T) {
	orig := time.Local
	time.Local = time.FixedZone("EST", -5*60*60)
	t.Cleanup(func() { time.Local = orig })

	b, err := New(filepath.Join(t.TempDir(), "prospects.db"))
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	old := &storage.Prospect{ID: "old", Domain: "old.com", CreatedAt: time.Now().UTC().Add(-3 * time.Hour)}
	fresh := &storage.Prospect{ID: "fresh", Domain: "fresh.com", CreatedAt: time.Now().UTC()}
	for _, p := range []*storage.Prospect{old, fresh} {
		if err := b.Save(ctx, p); err != nil {
			t.Fatalf("Failed to save %s: %v", p.ID, err)
		}
	}

	// Local wall time, as the CLI builds it from --since.
	since := time.Now().Add(-time.Hour)
	got, err := b.Query(ctx, storage.Filter{Since: &since})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "fresh" {
		ids := make([]string, len(got))
		for i, p := range got {
			ids[i] = p.ID
		}
		t.Fatalf("Expected only fresh within the last hour, got %v", ids)
	}
	if !got[0].CreatedAt.Equal(fresh.CreatedAt) {
		t.Errorf("CreatedAt did not roundtrip: %v vs %v", got[0].CreatedAt, fresh.CreatedAt)
	}
}

func TestSQLiteBackend_ListsKeepSeparators(t *testing.T) {
	b, err := New(filepath.Join(t.TempDir(), "prospects.db"))
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	p := &storage.Prospect{
		ID:           "p1",
		Domain:       "x.com",
		URL:          "https://x.com/write",
		Emails:       []string{"editor@x.com"},
		ContactLinks: []string{"https://x.com/contact;jsessionid=1", "https://x.com/about"},
		CreatedAt:    time.Now().UTC(),
	}
	if err := b.Save(ctx, p); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	got, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0].ContactLinks, p.ContactLinks) {
		t.Errorf("Contact links did not roundtrip: %q", got[0].ContactLinks)
	}
	if !reflect.DeepEqual(got[0].Emails, p.Emails) {
		t.Errorf("Emails did not roundtrip: %q", got[0].Emails)
	}
}
