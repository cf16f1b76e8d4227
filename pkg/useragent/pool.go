package useragent

import "sync/atomic"

// Default identifies the prospector honestly to the sites it visits.
const Default = "ProspectScraper/0.4 (+contact: your-email@example.com)"

// Browsers is a set of desktop browser User-Agents for operators who opt
// into rotation.
var Browsers = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
}

// Pool hands out User-Agents round-robin.
type Pool struct {
	uas     []string
	counter atomic.Uint64
}

// NewPool creates a pool over uas, skipping empty entries. An empty pool
// falls back to the single Default agent.
func NewPool(uas []string) *Pool {
	copied := make([]string, 0, len(uas))
	for _, ua := range uas {
		if ua != "" {
			copied = append(copied, ua)
		}
	}
	if len(copied) == 0 {
		copied = []string{Default}
	}
	return &Pool{uas: copied}
}

// Next returns the next User-Agent in round-robin order. It is safe for
// concurrent use.
func (p *Pool) Next() string {
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// Len reports the pool size.
func (p *Pool) Len() int {
	return len(p.uas)
}
