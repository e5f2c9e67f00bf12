// Package node wires the leaf components (store, ledger, processor, gossip,
// bootstrap, vote manager, diagnostics) into one running process. There is
// exactly one node shape, so the wiring lives in a single package rather
// than a node-type hierarchy.
//
// The RPC/JSON surface, wallet/keystore, and daemon-boot CLI proper are
// external collaborators; Node exists to let cmd/mikrond assemble the
// ledger/network core for manual smoke-testing and to give a future
// RPC/wallet layer a concrete thing to hold.
package node

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"mikron/internal/block"
	"mikron/internal/bootstrap"
	"mikron/internal/diag"
	"mikron/internal/gossip"
	"mikron/internal/ledger"
	"mikron/internal/numbers"
	"mikron/internal/params"
	"mikron/internal/processor"
	"mikron/internal/store"
	"mikron/internal/vote"
)

var log = logrus.WithField("component", "node")

// Config gathers the addresses and paths a Node needs; network identity and
// constants come from params.NetworkParams separately (§9 "Global mutable
// state").
type Config struct {
	DBPath       string
	ListenAddr   string // UDP gossip socket (§4.7)
	DiagAddr     string // HTTP /healthz, /metrics (empty disables)
	BootstrapTCP string // TCP bootstrap server address; New does not read it and starts no bootstrap server
}

// Node owns every long-running component of one mikrond process.
type Node struct {
	cfg     Config
	params  params.NetworkParams
	store   *store.Store
	ledger  *ledger.Ledger
	metrics *diag.Registry

	processor *processor.Processor
	network   *gossip.Network
	votes     *vote.Manager
	peers     *gossip.PeerTable

	diagServer *diagServer
}

// New opens the store and wires every component together but does not yet
// start any goroutine; call Start to begin serving.
func New(cfg Config, p params.NetworkParams) (*Node, error) {
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("node: open store: %w", err)
	}

	n := &Node{
		cfg:     cfg,
		params:  p,
		store:   s,
		ledger:  ledger.New(p),
		metrics: diag.NewRegistry(),
		peers:   gossip.NewPeerTable(),
	}

	n.votes = vote.NewManager(p, n.weightOf, n, n.metrics)
	n.processor = processor.New(s, n.ledger, n, n, nil, n.metrics)

	net, err := gossip.NewNetwork(cfg.ListenAddr, p.Network, n.peers, n.processor, voteSink{n.votes, s}, n.metrics)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("node: open gossip socket: %w", err)
	}
	n.network = net

	if cfg.DiagAddr != "" {
		n.diagServer = newDiagServer(n.metrics, cfg.DiagAddr, n.Healthy)
	}
	return n, nil
}

// Start launches every background goroutine. It does not block.
func (n *Node) Start() {
	go n.processor.Run()
	go n.network.Run()
	if n.diagServer != nil {
		n.diagServer.Start()
	}
	log.WithField("listen", n.cfg.ListenAddr).Info("node started")
}

// Stop cooperatively halts every component and closes the store (§5).
func (n *Node) Stop() {
	if n.diagServer != nil {
		n.diagServer.Stop()
	}
	n.network.Stop()
	n.processor.Stop()
	n.store.Close()
	log.Info("node stopped")
}

// Healthy is the baseline liveness signal. It always returns true; it does
// not check the store, the processor or bootstrap catch-up progress.
func (n *Node) Healthy() bool { return true }

// SubmitBlock feeds an externally-sourced block (e.g. from an RPC
// collaborator, out of scope here) into the admission queue and waits for
// the result.
func (n *Node) SubmitBlock(blk *block.StateBlock) block.Result {
	return n.processor.SubmitSync(blk, time.Now())
}

// RepublishBlock implements processor.Republisher.
func (n *Node) RepublishBlock(blk *block.StateBlock) { n.network.RepublishBlock(blk) }

// StartElection implements processor.Elections.
func (n *Node) StartElection(root, hash numbers.Hash) { n.votes.StartElection(root, hash) }

// OnConfirmed implements vote.Confirmer: if the confirmed winner is not in
// the local store, it rolls the chain back to the fork root with
// ledger.Rollback (§4.10). It does not admit the winning block itself.
func (n *Node) OnConfirmed(root, winner numbers.Hash) {
	err := n.store.Update(func(txn *store.Txn) error {
		_, ok, err := txn.GetStateBlock(winner)
		if err != nil {
			return err
		}
		if ok {
			return nil // already holds the winner
		}
		return n.ledger.Rollback(txn, root)
	})
	if err != nil {
		log.WithError(err).WithField("root", root).Error("rollback to election winner failed")
	}
}

// weightOf resolves a representative's current stake-weighted voting power
// from the ledger's representation table (vote.WeightSource).
func (n *Node) weightOf(rep numbers.Account) numbers.Amount {
	var weight numbers.Amount
	_ = n.store.View(func(txn *store.Txn) error {
		w, err := txn.GetRepresentation(rep)
		if err != nil {
			return err
		}
		weight = w
		return nil
	})
	return weight
}

// BootstrapAttempt constructs a bootstrap.Attempt against frontierAddr,
// wired to this node's processor and store (§4.8). Callers run it and call
// n.processor's flush indirectly through repeated SubmitBlock/SubmitSync
// calls as pulled blocks arrive.
func (n *Node) BootstrapAttempt(frontierAddr string) *bootstrap.Attempt {
	dialer := bootstrap.NewDialer(10*time.Second, 30*time.Second)
	return bootstrap.NewAttempt(dialer, n.params.Network, frontierAddr, localLedger{n.store}, n.processor, n.metrics)
}

// voteSink adapts (*vote.Manager, *store.Store) to gossip.VoteSink: every
// inbound confirm_ack is persisted and tallied inside its own write
// transaction, independent of the block admission write path.
type voteSink struct {
	m *vote.Manager
	s *store.Store
}

func (v voteSink) Submit(vv *vote.Vote) (vote.Code, error) {
	var code vote.Code
	err := v.s.Update(func(txn *store.Txn) error {
		c, err := v.m.Submit(txn, vv)
		code = c
		return err
	})
	return code, err
}

// localLedger adapts store.Store to bootstrap.LocalLedger by reading each
// account's head out of the accounts table (§3.4): a state head is the
// per-account frontier in this implementation, since state blocks never
// populate the legacy frontiers table (§3.4's own invariant).
type localLedger struct{ s *store.Store }

func (l localLedger) EachFrontier(fn func(account numbers.Account, head numbers.Hash) error) error {
	return l.s.View(func(txn *store.Txn) error {
		var ferr error
		_ = txn.EachAccount(func(acc numbers.Account, info store.AccountInfo) bool {
			if err := fn(acc, info.Head); err != nil {
				ferr = err
				return false
			}
			return true
		})
		return ferr
	})
}

func (l localLedger) HasAccount(account numbers.Account) (bool, error) {
	var has bool
	err := l.s.View(func(txn *store.Txn) error {
		_, ok, err := txn.GetAccount(account)
		has = ok
		return err
	})
	return has, err
}

func (l localLedger) EachHeadBlock(fn func(account numbers.Account, head *block.StateBlock) error) error {
	return l.s.View(func(txn *store.Txn) error {
		var ferr error
		_ = txn.EachAccount(func(acc numbers.Account, info store.AccountInfo) bool {
			stored, ok, err := txn.GetStateBlock(info.Head)
			if err != nil {
				ferr = err
				return false
			}
			if !ok {
				return true
			}
			if err := fn(acc, stored.Block); err != nil {
				ferr = err
				return false
			}
			return true
		})
		return ferr
	})
}
