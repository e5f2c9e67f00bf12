// Package processor implements the single-writer block admission queue and
// in-memory gap cache (§4.9), grounded on core/txpool_addtx.go's queue-plus-
// worker shape and core/consensus_start.go's cooperative-stop worker loop,
// adapted from a mempool admission queue to ledger block admission.
package processor

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mikron/internal/block"
	"mikron/internal/diag"
	"mikron/internal/ledger"
	"mikron/internal/numbers"
	"mikron/internal/store"
)

var log = logrus.WithField("component", "processor")

// queueSize bounds the admission channel; a full queue applies backpressure
// to callers (gossip, bootstrap) rather than growing unbounded.
const queueSize = 4096

// item is one admission request (§4.9): a block plus the time it arrived,
// which observers may want for latency accounting.
type item struct {
	blk      *block.StateBlock
	arrival  time.Time
	resultCh chan block.Result
}

// Republisher is notified of every newly progressed block so it can be
// gossiped onward (§4.9 step 2).
type Republisher interface {
	RepublishBlock(blk *block.StateBlock)
}

// Elections is notified when admission reports a fork, so it can start or
// update an election for the contested root (§4.9 step 4).
type Elections interface {
	StartElection(root, hash numbers.Hash)
}

// Observer receives a callback for every terminal admission outcome,
// independent of Republisher/Elections, e.g. for metrics (§4.9 step 2).
type Observer func(blk *block.StateBlock, result block.Result)

// Processor is the single writer that admits blocks into the ledger. All
// callers funnel through Submit; exactly one goroutine (started by Run)
// drains the queue and holds the store's write transaction at a time,
// matching "one block = one commit" (§5).
type Processor struct {
	store  *store.Store
	ledger *ledger.Ledger

	republisher Republisher
	elections   Elections
	observer    Observer
	metrics     *diag.Registry

	queue chan item

	mu       sync.Mutex
	gapCache map[numbers.Hash][]*block.StateBlock

	stop chan struct{}
	done chan struct{}
}

// New constructs a Processor. republisher, elections and observer may be
// nil; a nil hook is simply skipped. metrics may also be nil, in which case
// the processor publishes nothing to Prometheus.
func New(s *store.Store, l *ledger.Ledger, republisher Republisher, elections Elections, observer Observer, metrics *diag.Registry) *Processor {
	return &Processor{
		store:       s,
		ledger:      l,
		republisher: republisher,
		elections:   elections,
		observer:    observer,
		metrics:     metrics,
		queue:       make(chan item, queueSize),
		gapCache:    make(map[numbers.Hash][]*block.StateBlock),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Submit enqueues blk for admission, tagged with its arrival time. It
// blocks if the queue is full.
func (p *Processor) Submit(blk *block.StateBlock, arrival time.Time) {
	p.queue <- item{blk: blk, arrival: arrival}
}

// SubmitSync enqueues blk and blocks until it has been admitted and the
// post-admission hooks (republish, gap cache, election, observer) have run,
// returning its Result. Used by bootstrap and RPC-style callers that need the
// outcome, rather than gossip's fire-and-forget Submit.
func (p *Processor) SubmitSync(blk *block.StateBlock, arrival time.Time) block.Result {
	ch := make(chan block.Result, 1)
	p.queue <- item{blk: blk, arrival: arrival, resultCh: ch}
	return <-ch
}

// Run drains the admission queue until Stop is called. Meant to be started
// in its own goroutine.
func (p *Processor) Run() {
	defer close(p.done)
	for {
		select {
		case <-p.stop:
			p.flush()
			return
		case it := <-p.queue:
			p.admit(it)
		}
	}
}

// Stop signals Run to drain any remaining queued work and exit.
func (p *Processor) Stop() {
	close(p.stop)
	<-p.done
}

// flush drains every item currently queued without waiting for more,
// letting higher-level routines (bootstrap) observe admission effects
// before proceeding (§4.9's flush()).
func (p *Processor) flush() {
	for {
		select {
		case it := <-p.queue:
			p.admit(it)
		default:
			return
		}
	}
}

func (p *Processor) admit(it item) {
	if p.metrics != nil {
		p.metrics.QueueDepth.Set(float64(len(p.queue)))
	}
	var result block.Result
	err := p.store.Update(func(txn *store.Txn) error {
		r, err := p.ledger.Process(txn, it.blk)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if it.resultCh != nil {
		// Delivered on return, after the hooks below have run.
		defer func() { it.resultCh <- result }()
	}
	if err != nil {
		log.WithError(err).Error("admission transaction failed")
		return
	}

	if p.metrics != nil {
		p.metrics.AdmissionTotal.WithLabelValues(result.Code.String()).Inc()
	}

	hash := it.blk.Hash()
	switch {
	case result.Code == block.CodeProgress:
		if p.republisher != nil {
			p.republisher.RepublishBlock(it.blk)
		}
		if p.observer != nil {
			p.observer(it.blk, result)
		}
		p.resubmitWaiters(hash)
	case result.Code.IsSequencing():
		p.addGapWaiter(it.blk, result.Code)
	case result.Code == block.CodeFork:
		if p.elections != nil {
			p.elections.StartElection(it.blk.Previous, hash)
		}
		if p.observer != nil {
			p.observer(it.blk, result)
		}
	default:
		log.WithField("code", result.Code).Debug("admission dropped block")
		if p.observer != nil {
			p.observer(it.blk, result)
		}
	}
}

// addGapWaiter persists blk into the unchecked table keyed on its missing
// dependency and mirrors it into the in-memory gap cache for fast resubmit
// once the dependency lands (§4.9 step 3).
func (p *Processor) addGapWaiter(blk *block.StateBlock, code block.Code) {
	dep := blk.Previous // gap_previous: dependency is the previous block.
	if code == block.CodeGapSource {
		dep = blk.Link // gap_source: dependency is the send block.
	}
	err := p.store.Update(func(txn *store.Txn) error {
		return txn.AddUnchecked(dep, blk)
	})
	if err != nil {
		log.WithError(err).Error("unchecked insert failed")
		return
	}
	p.mu.Lock()
	p.gapCache[dep] = append(p.gapCache[dep], blk)
	p.mu.Unlock()
}

// resubmitWaiters looks up hash in the gap cache and resubmits every block
// that was waiting on it (§4.9 step 2).
func (p *Processor) resubmitWaiters(hash numbers.Hash) {
	p.mu.Lock()
	waiters := p.gapCache[hash]
	delete(p.gapCache, hash)
	p.mu.Unlock()
	if len(waiters) == 0 {
		return
	}
	if err := p.store.Update(func(txn *store.Txn) error { return txn.DeleteUnchecked(hash) }); err != nil {
		log.WithError(err).Error("unchecked delete failed")
	}
	for _, w := range waiters {
		p.Submit(w, time.Now())
	}
}
