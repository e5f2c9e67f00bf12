package bootstrap

import (
	"math"
	"sort"
	"sync"
	"time"
)

// floorConnections/ceilConnections are bootstrap_connections and
// bootstrap_connections_max (§4.8 step 1).
const (
	floorConnections = 4
	ceilConnections  = 64
)

// warmupPeriod is how long a client must be connected before it counts as
// "warmed up" for the pruning check (§4.8 step 2).
const warmupPeriod = 5 * time.Second

// slowThroughput/slowPeriod mark a client for force-stop once it has had
// slowPeriod to prove itself and still falls short.
const (
	slowThroughput = 10.0
	slowPeriod     = 30 * time.Second
)

// Pool holds the dynamic set of bootstrap_client connections for one
// attempt and implements the target-sizing and pruning rules of §4.8 steps
// 1-2, adapted from core/connection_pool.go's idle-connection bookkeeping
// to a pool of actively-pulling clients rather than idle reusable ones.
type Pool struct {
	mu      sync.Mutex
	clients []*Client
}

// NewPool returns an empty pool.
func NewPool() *Pool { return &Pool{} }

// Add registers a newly dialed client with the pool.
func (p *Pool) Add(c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients = append(p.clients, c)
}

// Len reports the current client count.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Target computes the pool's target connection count: scales linearly from
// floorConnections to ceilConnections as pullsRemaining/50000 approaches 1
// (§4.8 step 1).
func Target(pullsRemaining int) int {
	ratio := float64(pullsRemaining) / 50_000
	if ratio > 1 {
		ratio = 1
	}
	target := floorConnections + int(ratio*float64(ceilConnections-floorConnections))
	if target < floorConnections {
		target = floorConnections
	}
	if target > ceilConnections {
		target = ceilConnections
	}
	return target
}

// Prune implements §4.8 step 2: if at least 2/3 of active clients have
// warmed up and target >= 4, drop the floor(sqrt(target-2)) slowest by
// measured throughput. Independently, any client slower than
// slowThroughput after slowPeriod is force-stopped regardless of the warmup
// gate.
func (p *Pool) Prune(target int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	alive := p.clients[:0]
	for _, c := range p.clients {
		if c.Elapsed() > slowPeriod && c.BlocksPerSecond() < slowThroughput {
			c.ForceStop()
			continue
		}
		alive = append(alive, c)
	}
	p.clients = alive

	warmed := 0
	for _, c := range p.clients {
		if c.Elapsed() > warmupPeriod {
			warmed++
		}
	}
	if target < 4 || len(p.clients) == 0 || warmed*3 < len(p.clients)*2 {
		return
	}

	drop := int(math.Floor(math.Sqrt(float64(target - 2))))
	if drop <= 0 {
		return
	}
	sorted := make([]*Client, len(p.clients))
	copy(sorted, p.clients)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].BlocksPerSecond() < sorted[j].BlocksPerSecond() })
	if drop > len(sorted) {
		drop = len(sorted)
	}
	dropSet := make(map[*Client]bool, drop)
	for _, c := range sorted[:drop] {
		dropSet[c] = true
		c.Stop()
	}
	remaining := p.clients[:0]
	for _, c := range p.clients {
		if !dropSet[c] {
			remaining = append(remaining, c)
		}
	}
	p.clients = remaining
}

// AggregateBlocksPerSecond sums the measured throughput of every active
// client, for the bootstrap_blocks_per_second gauge.
func (p *Pool) AggregateBlocksPerSecond() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total float64
	for _, c := range p.clients {
		total += c.BlocksPerSecond()
	}
	return total
}

// StopAll force-stops every client, e.g. on attempt termination.
func (p *Pool) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clients {
		c.ForceStop()
	}
	p.clients = nil
}
