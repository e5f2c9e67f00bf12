package bootstrap

import (
	"context"
	crand "crypto/rand"
	"math/big"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mikron/internal/block"
	"mikron/internal/diag"
	"mikron/internal/numbers"
	"mikron/internal/params"
	"mikron/internal/wire"
)

var log = logrus.WithField("component", "bootstrap")

// frontierRetryLimit/bulkPushCostLimit are the fixed budgets of §4.8 steps
// 4-5.
const (
	frontierRetryLimit = 16
	bulkPushCostLimit  = 200
)

// pullInfo is one queued chain disagreement (§4.8 step 4).
type pullInfo struct {
	Account   numbers.Account
	RemoteHead numbers.Hash
	LocalHead  numbers.Hash
	Retries    int
}

// LocalLedger is the read surface Attempt needs from the local store: every
// account's current frontier, to diff against the remote's, and the head
// block itself for bulk_push.
type LocalLedger interface {
	EachFrontier(fn func(account numbers.Account, head numbers.Hash) error) error
	HasAccount(account numbers.Account) (bool, error)
	EachHeadBlock(fn func(account numbers.Account, head *block.StateBlock) error) error
}

// BlockSink receives blocks pulled from the remote peer, handing them to
// the block processor for admission (§4.8's "bootstrap does not bypass
// validation").
type BlockSink interface {
	Submit(blk *block.StateBlock, arrival time.Time)
}

// Attempt owns one frontier request plus the dynamic client pool pulling
// disagreeing accounts (§4.8).
type Attempt struct {
	dialer       *Dialer
	pool         *Pool
	network      params.Network
	frontierAddr string
	ledger       LocalLedger
	sink         BlockSink
	metrics      *diag.Registry

	mu      sync.Mutex
	queue   []pullInfo
	pulling int
	stopped bool
}

// NewAttempt constructs an Attempt targeting frontierAddr. metrics may be
// nil, in which case the attempt publishes nothing to Prometheus.
func NewAttempt(dialer *Dialer, network params.Network, frontierAddr string, ledger LocalLedger, sink BlockSink, metrics *diag.Registry) *Attempt {
	return &Attempt{
		dialer:       dialer,
		pool:         NewPool(),
		network:      network,
		frontierAddr: frontierAddr,
		ledger:       ledger,
		sink:         sink,
		metrics:      metrics,
	}
}

// Stop cooperatively halts the attempt and every pooled client (§5).
func (a *Attempt) Stop() {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
	a.pool.StopAll()
}

func (a *Attempt) isStopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

// Run drives the full attempt to completion: frontier request, pull queue,
// bulk push, then termination (§4.8 steps 3-6). It blocks until done or
// Stop is called.
func (a *Attempt) Run() error {
	if err := a.requestFrontiers(); err != nil {
		return err
	}
	a.runPulls()
	a.bulkPush()
	return nil
}

// requestFrontiers dials the frontier peer, streams every (account, head)
// pair it reports, and enqueues a pullInfo for each that disagrees with the
// local ledger (§4.8 step 3-4). It aborts if throughput falls below 1000
// frontiers/sec measured after the first 5 seconds.
func (a *Attempt) requestFrontiers() error {
	conn, err := a.dialer.Dial(context.Background(), a.frontierAddr)
	if err != nil {
		return err
	}
	client := NewClient(conn, a.network)
	defer client.ForceStop()

	req := &wire.FrontierReq{Start: numbers.Account{}, Age: wire.MaxFrontierAge, Count: wire.MaxFrontierCount}
	frontiers, err := client.RequestFrontiers(req)
	if err != nil {
		return err
	}

	local := make(map[numbers.Account]numbers.Hash)
	_ = a.ledger.EachFrontier(func(account numbers.Account, head numbers.Hash) error {
		local[account] = head
		return nil
	})

	start := time.Now()
	count := 0
	for f := range frontiers {
		if a.isStopped() {
			break
		}
		count++
		if time.Since(start) > 5*time.Second {
			rate := float64(count) / time.Since(start).Seconds()
			if rate < 1000 {
				log.WithField("rate", rate).Warn("frontier throughput below threshold, aborting")
				break
			}
		}
		if lh, ok := local[f.Account]; !ok || lh != f.Head {
			a.enqueue(pullInfo{Account: f.Account, RemoteHead: f.Head, LocalHead: local[f.Account]})
		}
		delete(local, f.Account)
	}
	return nil
}

func (a *Attempt) enqueue(p pullInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queue = append(a.queue, p)
}

func (a *Attempt) shuffleQueue() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.queue) - 1; i > 0; i-- {
		jBig, err := crand.Int(crand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return
		}
		j := int(jBig.Int64())
		a.queue[i], a.queue[j] = a.queue[j], a.queue[i]
	}
}

// runPulls drains the pull queue, scaling the client pool target as the
// queue shrinks and requeuing failed pulls up to frontierRetryLimit times
// before sending them to the frontier peer once more as a last resort
// (§4.8 steps 1-2, 4). Terminates once the queue is empty and no pull is
// in flight (step 6).
func (a *Attempt) runPulls() {
	a.shuffleQueue()
	for {
		if a.isStopped() {
			return
		}
		a.mu.Lock()
		remaining := len(a.queue)
		a.mu.Unlock()

		target := Target(remaining)
		a.pool.Prune(target)

		if a.metrics != nil {
			a.metrics.BootstrapPullsRemaining.Set(float64(remaining))
			a.metrics.BootstrapConnections.Set(float64(a.pool.Len()))
			a.metrics.BootstrapBlocksPerSecond.Set(a.pool.AggregateBlocksPerSecond())
		}

		if remaining == 0 {
			a.mu.Lock()
			pulling := a.pulling
			a.mu.Unlock()
			if pulling == 0 {
				return
			}
			time.Sleep(50 * time.Millisecond)
			continue
		}

		a.mu.Lock()
		var next *pullInfo
		if len(a.queue) > 0 {
			p := a.queue[0]
			a.queue = a.queue[1:]
			next = &p
		}
		a.pulling++
		a.mu.Unlock()

		if next == nil {
			continue
		}
		go a.pullOne(*next)
	}
}

func (a *Attempt) pullOne(p pullInfo) {
	defer func() {
		a.mu.Lock()
		a.pulling--
		a.mu.Unlock()
	}()

	conn, err := a.dialer.Dial(context.Background(), a.frontierAddr)
	if err != nil {
		a.retry(p)
		return
	}
	client := NewClient(conn, a.network)
	a.pool.Add(client)
	defer client.ForceStop()

	blocks, err := client.PullAccount(p.Account, numbers.Hash{})
	if err != nil {
		a.retry(p)
		return
	}
	for blk := range blocks {
		if a.isStopped() {
			return
		}
		a.sink.Submit(blk, time.Now())
	}
}

func (a *Attempt) retry(p pullInfo) {
	p.Retries++
	if p.Retries > frontierRetryLimit+1 {
		log.WithField("account", p.Account).Warn("pull dropped after final attempt against frontier peer")
		return
	}
	if p.Retries > frontierRetryLimit {
		log.WithField("account", p.Account).Warn("pull exceeded retry limit, final attempt against frontier peer")
	}
	a.enqueue(p)
}

// bulkPush pushes local heads to the frontier peer until the running cost
// reaches bulkPushCostLimit (§4.8 step 5), charging 2 for a head whose
// account has no row in the local ledger and 1 otherwise. Every local head
// is a candidate: heads are not filtered by what the remote peer reported
// in its frontiers.
func (a *Attempt) bulkPush() {
	conn, err := a.dialer.Dial(context.Background(), a.frontierAddr)
	if err != nil {
		return
	}
	client := NewClient(conn, a.network)
	defer func() {
		client.PushDone()
		client.ForceStop()
	}()
	if err := client.StartPush(); err != nil {
		return
	}

	cost := 0
	_ = a.ledger.EachHeadBlock(func(account numbers.Account, head *block.StateBlock) error {
		if cost >= bulkPushCostLimit {
			return nil
		}
		has, err := a.ledger.HasAccount(account)
		if err != nil {
			return err
		}
		if !has {
			cost += 2
		} else {
			cost++
		}
		return client.PushBlock(head)
	})
}
