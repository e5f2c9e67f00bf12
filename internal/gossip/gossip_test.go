package gossip

import (
	"crypto/ed25519"
	"net/netip"
	"testing"
	"time"

	"mikron/internal/block"
	"mikron/internal/numbers"
	"mikron/internal/params"
	"mikron/internal/vote"
)

func TestPeerTableUpsertAndSnapshot(t *testing.T) {
	pt := NewPeerTable()
	ep := netip.MustParseAddrPort("127.0.0.1:7075")
	pt.Upsert(ep, 1, nil)

	snap := pt.Snapshot()
	if len(snap) != 1 || snap[0].Endpoint != ep {
		t.Fatalf("got %+v", snap)
	}
	if pt.Len() != 1 {
		t.Fatalf("got len %d, want 1", pt.Len())
	}
}

func TestPeerTablePrune(t *testing.T) {
	pt := NewPeerTable()
	ep := netip.MustParseAddrPort("127.0.0.1:7075")
	pt.Upsert(ep, 1, nil)
	pt.Prune(time.Now().Add(time.Hour))
	if pt.Len() != 0 {
		t.Fatalf("expected peer pruned, got len %d", pt.Len())
	}
}

func TestSampleWeightedFavorsHigherWeight(t *testing.T) {
	pt := NewPeerTable()
	heavy := netip.MustParseAddrPort("127.0.0.1:1")
	light := netip.MustParseAddrPort("127.0.0.1:2")
	pt.Upsert(heavy, 1, nil)
	pt.Upsert(light, 1, nil)
	pt.SetWeight(heavy, 1_000_000)
	pt.SetWeight(light, 1)

	heavyWins := 0
	for i := 0; i < 50; i++ {
		picked := pt.SampleWeighted(1)
		if len(picked) == 1 && picked[0].Endpoint == heavy {
			heavyWins++
		}
	}
	if heavyWins < 40 {
		t.Fatalf("expected heavily-weighted peer to dominate sampling, won %d/50", heavyWins)
	}
}

type fakeBlockSink struct {
	got *block.StateBlock
}

func (f *fakeBlockSink) Submit(blk *block.StateBlock, _ time.Time) { f.got = blk }

type fakeVoteSink struct {
	got *vote.Vote
}

func (f *fakeVoteSink) Submit(v *vote.Vote) (vote.Code, error) {
	f.got = v
	return vote.CodeVote, nil
}

func signedTestBlock(t *testing.T) *block.StateBlock {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	var acc numbers.Account
	copy(acc[:], pub)
	blk := &block.StateBlock{Account: acc, CreationTime: 1, Representative: acc, Balance: 10}
	blk.Sign(priv)
	return blk
}

func TestNetworkPublishRoundTrip(t *testing.T) {
	sink := &fakeBlockSink{}
	peers := NewPeerTable()
	server, err := NewNetwork("127.0.0.1:0", params.NetworkTest, peers, sink, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer server.Stop()
	go server.Run()

	client, err := NewNetwork("127.0.0.1:0", params.NetworkTest, NewPeerTable(), nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Stop()
	go client.Run()

	serverEndpoint, err := netip.ParseAddrPort(server.conn.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}

	blk := signedTestBlock(t)
	client.peers.Upsert(serverEndpoint, 1, nil)
	client.peers.SetWeight(serverEndpoint, 1)
	client.RepublishBlock(blk)

	deadline := time.Now().Add(2 * time.Second)
	for sink.got == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sink.got == nil {
		t.Fatal("expected server to receive published block")
	}
	if sink.got.Hash() != blk.Hash() {
		t.Fatalf("got mismatched block hash")
	}
}
