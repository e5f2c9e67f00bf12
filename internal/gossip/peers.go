// Package gossip implements the UDP peer table and keepalive/republish
// flood (§4.7), grounded on core/peer_management.go's peer bookkeeping and
// sampling idioms and core/nat_traversal.go's gateway mapping, adapted from
// libp2p-hosted messaging to this node's own fixed wire framing.
package gossip

import (
	crand "crypto/rand"
	"math/big"
	"net/netip"
	"sync"
	"time"

	"mikron/internal/numbers"
	"mikron/internal/wire"
)

// PeerInfo is the peer table row described in §4.7: protocol_info, node_id,
// rep_weight, last_seen.
type PeerInfo struct {
	Endpoint   netip.AddrPort
	VersionMax uint8
	NodeID     *numbers.Account
	RepWeight  numbers.Amount
	LastSeen   time.Time
}

// PeerTable maps endpoints to PeerInfo. It is safe for concurrent use; every
// mutating or sampling method takes its own lock rather than exposing the
// map, matching the "fine-grained mutex, no global lock across I/O" rule
// (§5).
type PeerTable struct {
	mu    sync.RWMutex
	peers map[netip.AddrPort]*PeerInfo
}

// NewPeerTable returns an empty table.
func NewPeerTable() *PeerTable {
	return &PeerTable{peers: make(map[netip.AddrPort]*PeerInfo)}
}

// Upsert records a sighting of endpoint, refreshing LastSeen and any fields
// the caller supplies.
func (t *PeerTable) Upsert(endpoint netip.AddrPort, versionMax uint8, nodeID *numbers.Account) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[endpoint]
	if !ok {
		p = &PeerInfo{Endpoint: endpoint}
		t.peers[endpoint] = p
	}
	p.VersionMax = versionMax
	if nodeID != nil {
		p.NodeID = nodeID
	}
	p.LastSeen = time.Now()
}

// SetWeight updates a peer's cached representative weight, refreshed
// periodically from the ledger's representation table.
func (t *PeerTable) SetWeight(endpoint netip.AddrPort, weight numbers.Amount) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[endpoint]; ok {
		p.RepWeight = weight
	}
}

// Remove drops endpoint from the table, e.g. after repeated timeouts.
func (t *PeerTable) Remove(endpoint netip.AddrPort) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, endpoint)
}

// Prune removes every peer whose LastSeen is older than cutoff.
func (t *PeerTable) Prune(cutoff time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ep, p := range t.peers {
		if p.LastSeen.Before(cutoff) {
			delete(t.peers, ep)
		}
	}
}

// Len reports the current peer count.
func (t *PeerTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}

// Snapshot returns a copy of every known peer, safe to range over without
// holding the table's lock.
func (t *PeerTable) Snapshot() []PeerInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]PeerInfo, 0, len(t.peers))
	for _, p := range t.peers {
		out = append(out, *p)
	}
	return out
}

// secureShuffle Fisher-Yates shuffles peers in place using crypto/rand,
// mirroring core/peer_management.go's shufflePeerInfo.
func secureShuffle(peers []PeerInfo) {
	for i := len(peers) - 1; i > 0; i-- {
		jBig, err := crand.Int(crand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return
		}
		j := int(jBig.Int64())
		peers[i], peers[j] = peers[j], peers[i]
	}
}

// SampleWeighted draws up to n distinct peers, biased toward higher
// RepWeight: each peer's selection odds are proportional to its weight plus
// one (so zero-weight peers still have a chance), implementing "selects K
// peers weighted toward higher rep weight" (§4.7).
func (t *PeerTable) SampleWeighted(n int) []PeerInfo {
	candidates := t.Snapshot()
	secureShuffle(candidates)
	if n >= len(candidates) {
		return candidates
	}

	weighted := make([]PeerInfo, len(candidates))
	copy(weighted, candidates)
	out := make([]PeerInfo, 0, n)
	for len(out) < n && len(weighted) > 0 {
		var total int64
		for _, p := range weighted {
			total += int64(p.RepWeight) + 1
		}
		pick, err := crand.Int(crand.Reader, big.NewInt(total))
		if err != nil {
			break
		}
		running := int64(0)
		idx := 0
		for i, p := range weighted {
			running += int64(p.RepWeight) + 1
			if pick.Int64() < running {
				idx = i
				break
			}
		}
		out = append(out, weighted[idx])
		weighted = append(weighted[:idx], weighted[idx+1:]...)
	}
	return out
}

// Random draws up to n distinct peers uniformly, used for keepalive flood
// where weighting does not apply.
func (t *PeerTable) Random(n int) []PeerInfo {
	candidates := t.Snapshot()
	secureShuffle(candidates)
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}

// keepaliveSlots converts up to wire.KeepalivePeers table entries into the
// fixed keepalive body, leaving unused trailing slots zero-addressed.
func keepaliveSlots(peers []PeerInfo) [wire.KeepalivePeers]wire.Peer {
	var slots [wire.KeepalivePeers]wire.Peer
	for i := 0; i < wire.KeepalivePeers && i < len(peers); i++ {
		addr := peers[i].Endpoint.Addr()
		ip := addr.As16()
		slots[i] = wire.Peer{Addr: ip[:], Port: peers[i].Endpoint.Port()}
	}
	return slots
}
