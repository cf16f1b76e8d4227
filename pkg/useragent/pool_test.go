package useragent

import "testing"

func TestNewPool_DefaultsToFixedAgent(t *testing.T) {
	for _, in := range [][]string{nil, {}, {"", ""}} {
		p := NewPool(in)
		if p.Len() != 1 {
			t.Fatalf("expected single agent, got %d", p.Len())
		}
		if got := p.Next(); got != Default {
			t.Errorf("expected %q, got %q", Default, got)
		}
	}
}

func TestPool_Next(t *testing.T) {
	p := NewPool([]string{"a", "b", "c"})
	want := []string{"a", "b", "c", "a", "b"}
	for i, w := range want {
		if got := p.Next(); got != w {
			t.Errorf("call %d: expected %q, got %q", i, w, got)
		}
	}
}

func TestPool_CopiesInput(t *testing.T) {
	in := []string{"a", "b"}
	p := NewPool(in)
	in[0] = "mutated"
	if got := p.Next(); got != "a" {
		t.Errorf("pool affected by caller mutation: %q", got)
	}
}
