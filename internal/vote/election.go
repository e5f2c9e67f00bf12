package vote

import (
	"sync"
	"time"

	"mikron/internal/numbers"
)

// lastVote records the most recent vote a representative cast into a
// particular election, used both for sequence replay protection within the
// election and for the 15s rebroadcast cooldown (§4.10).
type lastVote struct {
	Hash     numbers.Hash
	Sequence uint64
	Time     time.Time
}

// Election tracks competing blocks for one root (a previous hash, or the
// account key itself for an open block) until one of them confirms.
type Election struct {
	mu         sync.Mutex
	Root       numbers.Hash
	Winner     numbers.Hash
	lastVotes  map[numbers.Account]lastVote
	tally      map[numbers.Hash]numbers.Amount
	Confirmed  bool
	ConfirmedAt time.Time
}

func newElection(root numbers.Hash) *Election {
	return &Election{
		Root:      root,
		lastVotes: make(map[numbers.Account]lastVote),
		tally:     make(map[numbers.Hash]numbers.Amount),
	}
}

// Tally returns the current stake-weighted tally for hash.
func (e *Election) Tally(hash numbers.Hash) numbers.Amount {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tally[hash]
}

// shouldRebroadcast reports whether account's vote for hash should be
// re-emitted, enforcing the 15s-per-election cooldown, and records the
// attempt if so.
func (e *Election) shouldRebroadcast(account numbers.Account, hash numbers.Hash, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	last, ok := e.lastVotes[account]
	if ok && last.Hash == hash && now.Sub(last.Time) < rebroadcastCooldown {
		return false
	}
	e.lastVotes[account] = lastVote{Hash: hash, Sequence: last.Sequence, Time: now}
	return true
}

// retally recomputes tally[hash] and Winner from the current set of
// last_votes and the supplied weight lookup, called after every accepted
// vote (§4.10).
func (e *Election) retally(weightOf func(numbers.Account) numbers.Amount) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for h := range e.tally {
		e.tally[h] = 0
	}
	for account, v := range e.lastVotes {
		e.tally[v.Hash] += weightOf(account)
	}
	var winner numbers.Hash
	var best numbers.Amount
	for h, w := range e.tally {
		if w > best {
			best, winner = w, h
		}
	}
	e.Winner = winner
}

// recordVote folds a newly accepted vote for hash by account at sequence
// into the election's last_votes, without yet retallying (the Manager does
// that once across every election the vote touches).
func (e *Election) recordVote(account numbers.Account, hash numbers.Hash, sequence uint64, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev, ok := e.lastVotes[account]
	if ok && prev.Sequence >= sequence {
		return
	}
	e.lastVotes[account] = lastVote{Hash: hash, Sequence: sequence, Time: now}
}

// rebroadcastCooldown is the minimum interval between rebroadcasts of the
// same representative's vote within one election (§4.10).
const rebroadcastCooldown = 15 * time.Second
