package storage

import (
	"reflect"
	"testing"
	"time"
)

func TestProspect_Record(t *testing.T) {
	p := &Prospect{
		Domain:       "example.com",
		URL:          "https://blog.example.com/write-for-us",
		Title:        "Write for Us",
		Snippet:      "We accept guest posts",
		Emails:       []string{"a@example.com", "b@example.com"},
		ContactLinks: []string{"https://example.com/contact"},
	}

	got := p.Record()
	want := []string{
		"example.com",
		"https://blog.example.com/write-for-us",
		"Write for Us",
		"We accept guest posts",
		"a@example.com;b@example.com",
		"https://example.com/contact",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Record() = %v, want %v", got, want)
	}

	back, err := FromRecord(got)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if !reflect.DeepEqual(back.Emails, p.Emails) || !reflect.DeepEqual(back.ContactLinks, p.ContactLinks) {
		t.Errorf("list fields did not survive: %+v", back)
	}
}

func TestProspect_RecordEmptyLists(t *testing.T) {
	p := &Prospect{Domain: "x.com", URL: "http://x.com"}
	rec := p.Record()
	if rec[4] != "" || rec[5] != "" {
		t.Errorf("expected empty list columns, got %q %q", rec[4], rec[5])
	}

	back, _ := FromRecord(rec)
	if back.Emails == nil || len(back.Emails) != 0 {
		t.Errorf("expected empty non-nil emails, got %#v", back.Emails)
	}
}

func TestFromRecord_WrongWidth(t *testing.T) {
	if _, err := FromRecord([]string{"a", "b"}); err == nil {
		t.Fatal("expected error for short record")
	}
}

func TestFilter(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	ps := []*Prospect{
		{RunID: "r1", Domain: "a.com", CreatedAt: now},
		{RunID: "r1", Domain: "b.com", CreatedAt: past.Add(-time.Minute)},
		{RunID: "r2", Domain: "a.com", CreatedAt: now},
	}

	count := func(f Filter) int {
		n := 0
		for _, p := range ps {
			if f.Match(p) {
				n++
			}
		}
		return n
	}

	if n := count(Filter{RunID: "r1"}); n != 2 {
		t.Errorf("RunID filter: expected 2, got %d", n)
	}
	if n := count(Filter{Domain: "a.com"}); n != 2 {
		t.Errorf("Domain filter: expected 2, got %d", n)
	}
	if n := count(Filter{Since: &past}); n != 2 {
		t.Errorf("Since filter: expected 2, got %d", n)
	}

	if got := (Filter{Offset: 1, Limit: 1}).Page(ps); len(got) != 1 || got[0] != ps[1] {
		t.Errorf("unexpected page %v", got)
	}
	if got := (Filter{Offset: 5}).Page(ps); len(got) != 0 {
		t.Errorf("expected empty page past the end, got %v", got)
	}
}
