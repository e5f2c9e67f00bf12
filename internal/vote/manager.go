package vote

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mikron/internal/diag"
	"mikron/internal/numbers"
	"mikron/internal/params"
)

var log = logrus.WithField("component", "vote")

// VoteStore is the persistence surface a Manager needs: the store's vote
// table (§3.4), accessed through whatever transaction wrapper the caller is
// already inside. Values are opaque packed votes (Vote.Pack/Unpack); the
// store itself never interprets them.
type VoteStore interface {
	GetVote(account numbers.Account) ([]byte, bool, error)
	PutVote(account numbers.Account, packed []byte) error
}

// WeightSource resolves a representative account to its current
// stake-weighted voting power, backed by the ledger's representation table.
type WeightSource func(numbers.Account) numbers.Amount

// Confirmer is notified when an election confirms, so the caller can apply
// the winner to the ledger (rolling back a divergent local chain first).
type Confirmer interface {
	OnConfirmed(root numbers.Hash, winner numbers.Hash)
}

// confirmedRingSize bounds how many recently confirmed roots the Manager
// remembers, per §4.10's "bounded ring of confirmed roots".
const confirmedRingSize = 1024

// Manager owns every active election and the vote ingress pipeline (§4.10).
type Manager struct {
	mu        sync.RWMutex
	params    params.NetworkParams
	weightOf  WeightSource
	confirmer Confirmer
	metrics   *diag.Registry

	elections map[numbers.Hash]*Election
	hashRoot  map[numbers.Hash]numbers.Hash // block/competing hash -> root

	confirmedRing []numbers.Hash
	confirmedSet  map[numbers.Hash]struct{}
}

// NewManager constructs a Manager. weightOf and confirmer must be non-nil.
// metrics may be nil, in which case the manager publishes nothing to
// Prometheus.
func NewManager(p params.NetworkParams, weightOf WeightSource, confirmer Confirmer, metrics *diag.Registry) *Manager {
	return &Manager{
		params:       p,
		weightOf:     weightOf,
		confirmer:    confirmer,
		metrics:      metrics,
		elections:    make(map[numbers.Hash]*Election),
		hashRoot:     make(map[numbers.Hash]numbers.Hash),
		confirmedSet: make(map[numbers.Hash]struct{}),
	}
}

// StartElection begins tracking root if it is not already active, seeding
// it with one competing hash.
func (m *Manager) StartElection(root, hash numbers.Hash) *Election {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.elections[root]
	if !ok {
		e = newElection(root)
		m.elections[root] = e
		if m.metrics != nil {
			m.metrics.ElectionsActive.Set(float64(len(m.elections)))
		}
	}
	m.hashRoot[hash] = root
	return e
}

// Active reports whether root currently has an unconfirmed election.
func (m *Manager) Active(root numbers.Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.elections[root]
	return ok && !e.Confirmed
}

// Submit ingests a vote: validates the signature, enforces sequence replay
// protection against the persisted per-representative sequence, folds it
// into every election referencing one of its hashes, and retallies each.
// store is the same transaction the caller is already holding open; Submit
// does not manage its own transaction boundary.
func (m *Manager) Submit(store VoteStore, v *Vote) (Code, error) {
	if !v.Verify() {
		return CodeInvalid, nil
	}
	packed, ok, err := store.GetVote(v.Account)
	if err != nil {
		return CodeInvalid, err
	}
	if ok {
		stored, err := Unpack(packed)
		if err != nil {
			return CodeInvalid, err
		}
		if stored.Sequence >= v.Sequence {
			return CodeReplay, nil
		}
	}
	if err := store.PutVote(v.Account, v.Pack()); err != nil {
		return CodeInvalid, err
	}

	now := time.Now()
	hashes := v.Hashes
	if v.Block != nil && len(hashes) == 0 {
		hashes = []numbers.Hash{v.Block.Hash()}
	}

	touched := make(map[numbers.Hash]*Election)
	m.mu.RLock()
	for _, h := range hashes {
		root, ok := m.hashRoot[h]
		if !ok {
			continue
		}
		e, ok := m.elections[root]
		if !ok || e.Confirmed {
			continue
		}
		e.recordVote(v.Account, h, v.Sequence, now)
		touched[root] = e
	}
	m.mu.RUnlock()

	for _, e := range touched {
		e.retally(m.weightOf)
		m.maybeConfirm(e)
	}
	return CodeVote, nil
}

// maybeConfirm checks e's winner against quorum and, on first crossing,
// confirms the election and notifies the confirmer.
func (m *Manager) maybeConfirm(e *Election) {
	e.mu.Lock()
	if e.Confirmed {
		e.mu.Unlock()
		return
	}
	winner := e.Winner
	tally := e.tally[winner]
	e.mu.Unlock()

	// Quorum is taken over the genesis supply, not over the votes cast in
	// this election.
	if tally == 0 || tally <= m.params.Quorum(m.params.GenesisAmount) {
		return
	}

	e.mu.Lock()
	if e.Confirmed {
		e.mu.Unlock()
		return
	}
	e.Confirmed = true
	e.ConfirmedAt = time.Now()
	root, win := e.Root, e.Winner
	e.mu.Unlock()

	m.pushConfirmed(root)
	if m.confirmer != nil {
		m.confirmer.OnConfirmed(root, win)
	}
}

// snapshotTally returns a copy of e's current per-hash tally without holding
// e's lock across the caller's own logic.
func (e *Election) snapshotTally() map[numbers.Hash]numbers.Amount {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[numbers.Hash]numbers.Amount, len(e.tally))
	for h, w := range e.tally {
		out[h] = w
	}
	return out
}

func (m *Manager) pushConfirmed(root numbers.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.confirmedSet[root]; ok {
		return
	}
	m.confirmedRing = append(m.confirmedRing, root)
	m.confirmedSet[root] = struct{}{}
	if len(m.confirmedRing) > confirmedRingSize {
		oldest := m.confirmedRing[0]
		m.confirmedRing = m.confirmedRing[1:]
		delete(m.confirmedSet, oldest)
	}
	delete(m.elections, root)
	if m.metrics != nil {
		m.metrics.ElectionsActive.Set(float64(len(m.elections)))
		m.metrics.ElectionsConfirmed.Inc()
	}
	log.WithField("root", root).Debug("election confirmed")
}

// ShouldRebroadcast reports whether account's vote for hash in root's
// election should be re-emitted, honoring the 15s cooldown.
func (m *Manager) ShouldRebroadcast(root numbers.Hash, account numbers.Account, hash numbers.Hash) bool {
	m.mu.RLock()
	e, ok := m.elections[root]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return e.shouldRebroadcast(account, hash, time.Now())
}
