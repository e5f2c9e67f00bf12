package node

import (
	"crypto/ed25519"
	crand "crypto/rand"
	"testing"

	"mikron/internal/block"
	"mikron/internal/numbers"
	"mikron/internal/params"
	"mikron/internal/testutil"
)

func newTestNode(t *testing.T, p params.NetworkParams) *Node {
	t.Helper()
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sb.Cleanup() })

	n, err := New(Config{
		DBPath:     sb.Path("ledger.mdbx"),
		ListenAddr: "127.0.0.1:0",
	}, p)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	n.Start()
	t.Cleanup(n.Stop)
	return n
}

func TestNodeAdmitsGenesis(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(crand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	var genesis numbers.Account
	copy(genesis[:], pub)

	p := params.Test(genesis, genesis)
	n := newTestNode(t, p)

	blk := &block.StateBlock{
		Account:        genesis,
		CreationTime:   numbers.Now(),
		Representative: genesis,
		Balance:        p.GenesisAmount,
	}
	blk.Sign(priv)

	result := n.SubmitBlock(blk)
	if result.Code != block.CodeProgress {
		t.Fatalf("expected progress, got %v", result.Code)
	}

	weight := n.weightOf(genesis)
	if weight != p.GenesisAmount {
		t.Fatalf("expected representation %d, got %d", p.GenesisAmount, weight)
	}

	// Resubmitting the identical block must be rejected as a duplicate.
	result = n.SubmitBlock(blk)
	if result.Code != block.CodeOld {
		t.Fatalf("expected old on resubmit, got %v", result.Code)
	}
}

func TestNodeBootstrapAttemptConstructsLocalLedgerView(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(crand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	var genesis numbers.Account
	copy(genesis[:], pub)

	p := params.Test(genesis, genesis)
	n := newTestNode(t, p)

	blk := &block.StateBlock{
		Account:        genesis,
		CreationTime:   numbers.Now(),
		Representative: genesis,
		Balance:        p.GenesisAmount,
	}
	blk.Sign(priv)
	if result := n.SubmitBlock(blk); result.Code != block.CodeProgress {
		t.Fatalf("expected progress, got %v", result.Code)
	}

	ll := localLedger{n.store}
	seen := false
	err = ll.EachFrontier(func(account numbers.Account, head numbers.Hash) error {
		if account == genesis {
			seen = true
			if head != blk.Hash() {
				t.Fatalf("expected frontier %s, got %s", blk.Hash().Hex(), head.Hex())
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("EachFrontier failed: %v", err)
	}
	if !seen {
		t.Fatal("genesis account missing from frontier view")
	}

	has, err := ll.HasAccount(genesis)
	if err != nil || !has {
		t.Fatalf("HasAccount(genesis) = %v, %v; want true, nil", has, err)
	}
}
