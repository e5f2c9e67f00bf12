package store

import (
	"crypto/ed25519"
	"testing"

	"mikron/internal/block"
	"mikron/internal/numbers"
	"mikron/internal/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sb.Cleanup() })

	s, err := Open(sb.Path("data.mdbx"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchemaVersion(t *testing.T) {
	s := openTestStore(t)
	err := s.View(func(txn *Txn) error {
		v, ok, err := txn.GetMetaVersion()
		if err != nil {
			return err
		}
		if !ok || v != schemaVersion {
			t.Fatalf("got (%d, %v), want (%d, true)", v, ok, schemaVersion)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestAccountRoundTrip(t *testing.T) {
	s := openTestStore(t)
	var acc numbers.Account
	acc[0] = 7
	info := AccountInfo{Head: numbers.Hash{1}, Balance: 500, BlockCount: 3}

	err := s.Update(func(txn *Txn) error {
		return txn.PutAccount(acc, info)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.View(func(txn *Txn) error {
		got, ok, err := txn.GetAccount(acc)
		if err != nil {
			return err
		}
		if !ok || got != info {
			t.Fatalf("got (%+v, %v), want (%+v, true)", got, ok, info)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestStateBlockPutPatchesSuccessor(t *testing.T) {
	s := openTestStore(t)
	pub, priv, _ := ed25519.GenerateKey(nil)
	var acc numbers.Account
	copy(acc[:], pub)

	first := &block.StateBlock{Account: acc, CreationTime: 1, Representative: acc}
	first.Sign(priv)
	firstHash := first.Hash()

	second := &block.StateBlock{Account: acc, CreationTime: 2, Previous: firstHash, Representative: acc, Balance: 1}
	second.Sign(priv)

	err := s.Update(func(txn *Txn) error {
		if err := txn.PutStateBlock(first); err != nil {
			return err
		}
		return txn.PutStateBlock(second)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.View(func(txn *Txn) error {
		stored, ok, err := txn.GetStateBlock(firstHash)
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("expected first block present")
		}
		if stored.Successor != second.Hash() {
			t.Fatalf("successor not patched: got %x want %x", stored.Successor, second.Hash())
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestPendingRoundTrip(t *testing.T) {
	s := openTestStore(t)
	var dest, source numbers.Account
	dest[0], source[0] = 1, 2
	sendHash := numbers.Hash{9}

	err := s.Update(func(txn *Txn) error {
		return txn.PutPending(dest, sendHash, PendingInfo{Source: source, Amount: 42})
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.Update(func(txn *Txn) error {
		got, ok, err := txn.GetPending(dest, sendHash)
		if err != nil {
			return err
		}
		if !ok || got.Amount != 42 || got.Source != source {
			t.Fatalf("got %+v, %v", got, ok)
		}
		return txn.DeletePending(dest, sendHash)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.View(func(txn *Txn) error {
		_, ok, err := txn.GetPending(dest, sendHash)
		if err != nil {
			return err
		}
		if ok {
			t.Fatal("expected pending entry removed")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRepresentationAddSub(t *testing.T) {
	s := openTestStore(t)
	var rep numbers.Account
	rep[0] = 5

	err := s.Update(func(txn *Txn) error {
		if err := txn.AddRepresentation(rep, 100); err != nil {
			return err
		}
		return txn.AddRepresentation(rep, 50)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.Update(func(txn *Txn) error {
		got, err := txn.GetRepresentation(rep)
		if err != nil {
			return err
		}
		if got != 150 {
			t.Fatalf("got %d, want 150", got)
		}
		return txn.SubRepresentation(rep, 150)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.View(func(txn *Txn) error {
		got, err := txn.GetRepresentation(rep)
		if err != nil {
			return err
		}
		if got != 0 {
			t.Fatalf("got %d, want 0 after full subtraction", got)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestChecksumXorIsSelfCancelling(t *testing.T) {
	s := openTestStore(t)
	region := ChecksumRegion{Hi: 0, Lo: 0}
	h := numbers.Hash{0xAB}

	err := s.Update(func(txn *Txn) error {
		if err := txn.XorChecksum(region, h); err != nil {
			return err
		}
		return txn.XorChecksum(region, h)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.View(func(txn *Txn) error {
		got, err := txn.GetChecksum(region)
		if err != nil {
			return err
		}
		if got != (numbers.Hash{}) {
			t.Fatalf("expected zero after self-cancelling xor, got %x", got)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestUncheckedAccumulatesWaiters(t *testing.T) {
	s := openTestStore(t)
	pub, priv, _ := ed25519.GenerateKey(nil)
	var acc numbers.Account
	copy(acc[:], pub)
	dep := numbers.Hash{0x11}

	a := &block.StateBlock{Account: acc, CreationTime: 1, Previous: dep, Representative: acc}
	a.Sign(priv)
	b := &block.StateBlock{Account: acc, CreationTime: 2, Previous: dep, Representative: acc, Balance: 1}
	b.Sign(priv)

	err := s.Update(func(txn *Txn) error {
		if err := txn.AddUnchecked(dep, a); err != nil {
			return err
		}
		return txn.AddUnchecked(dep, b)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.View(func(txn *Txn) error {
		got, err := txn.GetUnchecked(dep)
		if err != nil {
			return err
		}
		if len(got) != 2 {
			t.Fatalf("got %d waiters, want 2", len(got))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
