package processor

import (
	"crypto/ed25519"
	"testing"
	"time"

	"mikron/internal/block"
	"mikron/internal/ledger"
	"mikron/internal/numbers"
	"mikron/internal/params"
	"mikron/internal/store"
	"mikron/internal/testutil"
)

type testAccount struct {
	priv ed25519.PrivateKey
	acc  numbers.Account
}

func newTestAccount(t *testing.T) testAccount {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	var acc numbers.Account
	copy(acc[:], pub)
	return testAccount{priv: priv, acc: acc}
}

func sign(a testAccount, b *block.StateBlock) *block.StateBlock {
	b.Account = a.acc
	b.Sign(a.priv)
	return b
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sb.Cleanup() })
	s, err := store.Open(sb.Path("data.mdbx"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type fakeRepublisher struct {
	got []*block.StateBlock
}

func (f *fakeRepublisher) RepublishBlock(blk *block.StateBlock) { f.got = append(f.got, blk) }

type fakeElections struct {
	started []numbers.Hash
}

func (f *fakeElections) StartElection(root, hash numbers.Hash) { f.started = append(f.started, hash) }

func TestProcessorAdmitsGenesisAndRepublishes(t *testing.T) {
	s := openTestStore(t)
	genesis := newTestAccount(t)
	manna := newTestAccount(t)
	p := params.Test(genesis.acc, manna.acc)
	l := ledger.New(p)
	repub := &fakeRepublisher{}

	proc := New(s, l, repub, nil, nil, nil)
	go proc.Run()
	defer proc.Stop()

	blk := sign(genesis, &block.StateBlock{
		CreationTime:   1000,
		Representative: genesis.acc,
		Balance:        p.GenesisAmount,
	})

	result := proc.SubmitSync(blk, time.Now())
	if result.Code != block.CodeProgress {
		t.Fatalf("got %v, want progress", result.Code)
	}
	proc.mu.Lock()
	n := len(repub.got)
	proc.mu.Unlock()
	if n != 1 || repub.got[0].Hash() != blk.Hash() {
		t.Fatalf("got republished %+v", repub.got)
	}
}

func TestProcessorQueuesGapAndResubmitsOnArrival(t *testing.T) {
	s := openTestStore(t)
	genesis := newTestAccount(t)
	manna := newTestAccount(t)
	p := params.Test(genesis.acc, manna.acc)
	l := ledger.New(p)
	repub := &fakeRepublisher{}

	proc := New(s, l, repub, nil, nil, nil)
	go proc.Run()
	defer proc.Stop()

	open := sign(genesis, &block.StateBlock{
		CreationTime:   1000,
		Representative: genesis.acc,
		Balance:        p.GenesisAmount,
	})
	second := sign(genesis, &block.StateBlock{
		Previous:       open.Hash(),
		CreationTime:   1001,
		Representative: genesis.acc,
		Balance:        p.GenesisAmount,
	})
	third := sign(genesis, &block.StateBlock{
		Previous:       second.Hash(),
		CreationTime:   1002,
		Representative: genesis.acc,
		Balance:        p.GenesisAmount,
	})

	// A chain block whose account has no row yet is a fork, not a gap, so
	// open the account first and leave the gap further up its chain.
	if r := proc.SubmitSync(open, time.Now()); r.Code != block.CodeProgress {
		t.Fatalf("open: got %v, want progress", r.Code)
	}

	// Submit the dependent block first: it should gap on its previous.
	gapResult := proc.SubmitSync(third, time.Now())
	if !gapResult.Code.IsSequencing() {
		t.Fatalf("got %v, want a sequencing gap", gapResult.Code)
	}

	err := s.View(func(txn *store.Txn) error {
		waiting, err := txn.GetUnchecked(second.Hash())
		if err != nil {
			return err
		}
		if len(waiting) != 1 || waiting[0].Hash() != third.Hash() {
			t.Fatalf("got unchecked %+v", waiting)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// Now admit the dependency; the processor should resubmit third on its own.
	secondResult := proc.SubmitSync(second, time.Now())
	if secondResult.Code != block.CodeProgress {
		t.Fatalf("got %v, want progress", secondResult.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		err := s.View(func(txn *store.Txn) error {
			_, ok, err := txn.GetAccount(genesis.acc)
			if err != nil {
				return err
			}
			if !ok {
				t.Fatal("expected account row")
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		var hasThird bool
		err = s.View(func(txn *store.Txn) error {
			ok, err := txn.HasStateBlock(third.Hash())
			hasThird = ok
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
		if hasThird {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for gap-cache resubmit")
		}
		time.Sleep(10 * time.Millisecond)
	}

	err = s.View(func(txn *store.Txn) error {
		waiting, err := txn.GetUnchecked(second.Hash())
		if err != nil {
			return err
		}
		if len(waiting) != 0 {
			t.Fatalf("expected unchecked entry cleared, got %+v", waiting)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
