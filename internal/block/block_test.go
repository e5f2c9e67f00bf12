package block

import (
	"crypto/ed25519"
	"testing"

	"mikron/internal/numbers"
)

func newSignedBlock(t *testing.T, priv ed25519.PrivateKey, pub ed25519.PublicKey, prev numbers.Hash, balance numbers.Amount, link numbers.Hash, rep numbers.Account, ts numbers.ShortTimestamp) *StateBlock {
	t.Helper()
	var acc numbers.Account
	copy(acc[:], pub)
	b := &StateBlock{
		Account:        acc,
		CreationTime:   ts,
		Previous:       prev,
		Representative: rep,
		Balance:        balance,
		Link:           link,
	}
	b.Sign(priv)
	return b
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	var rep numbers.Account
	copy(rep[:], pub)
	b := newSignedBlock(t, priv, pub, numbers.Hash{}, 100, numbers.Hash{}, rep, 1000)

	buf := b.Serialize()
	if len(buf) != Size {
		t.Fatalf("expected %d bytes, got %d", Size, len(buf))
	}
	got, err := Deserialize(buf)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *b {
		t.Fatalf("round trip mismatch: want %+v got %+v", b, got)
	}
}

func TestDeserializeTruncated(t *testing.T) {
	if _, err := Deserialize(make([]byte, Size-1)); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestSignVerify(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	var rep numbers.Account
	copy(rep[:], pub)
	b := newSignedBlock(t, priv, pub, numbers.Hash{}, 5, numbers.Hash{}, rep, 10)
	if !b.Verify() {
		t.Fatal("expected valid signature")
	}
	b.Balance = 6
	if b.Verify() {
		t.Fatal("expected verification to fail after mutation")
	}
}

func TestSubtypeOpenGenesis(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	var genesis numbers.Account
	copy(genesis[:], pub)
	b := newSignedBlock(t, priv, pub, numbers.Hash{}, 100, numbers.Hash{}, numbers.Account{}, 0)
	got := b.Subtype(PrevView{}, genesis)
	if got != SubtypeOpenGenesis {
		t.Fatalf("got %v want open_genesis", got)
	}
}

func TestSubtypeOpenReceive(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	var other numbers.Account
	other[0] = 0xff
	link := numbers.Hash{1}
	b := newSignedBlock(t, priv, pub, numbers.Hash{}, 50, link, numbers.Account{}, 0)
	got := b.Subtype(PrevView{}, other)
	if got != SubtypeOpenReceive {
		t.Fatalf("got %v want open_receive", got)
	}
}

func TestSubtypeSendReceiveChange(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	var rep numbers.Account
	copy(rep[:], pub)
	prev := numbers.Hash{9}

	send := newSignedBlock(t, priv, pub, prev, 40, numbers.Hash{2}, numbers.Account{}, 10)
	if got := send.Subtype(PrevView{Exists: true, ManaAdjustBalance: 100}, numbers.Account{}); got != SubtypeSend {
		t.Fatalf("got %v want send", got)
	}

	recv := newSignedBlock(t, priv, pub, prev, 150, numbers.Hash{3}, numbers.Account{}, 10)
	if got := recv.Subtype(PrevView{Exists: true, ManaAdjustBalance: 100}, numbers.Account{}); got != SubtypeReceive {
		t.Fatalf("got %v want receive", got)
	}

	change := newSignedBlock(t, priv, pub, prev, 100, numbers.Hash{}, rep, 10)
	if got := change.Subtype(PrevView{Exists: true, ManaAdjustBalance: 100}, numbers.Account{}); got != SubtypeChange {
		t.Fatalf("got %v want change", got)
	}
}

func TestSubtypeUndefinedWhenReceiveHasNoLink(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	prev := numbers.Hash{9}
	b := newSignedBlock(t, priv, pub, prev, 150, numbers.Hash{}, numbers.Account{}, 10)
	if got := b.Subtype(PrevView{Exists: true, ManaAdjustBalance: 100}, numbers.Account{}); got != SubtypeUndefined {
		t.Fatalf("got %v want undefined", got)
	}
}

func TestCommentValidateCreation(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	var acc numbers.Account
	copy(acc[:], pub)
	c := &CommentBlock{Account: acc, CreationTime: 500, Payload: numbers.VarLenBytes16("hi")}
	c.Sign(priv)

	if err := c.ValidateCreation(1000); err != ErrCommentTooEarly {
		t.Fatalf("expected ErrCommentTooEarly, got %v", err)
	}
	if err := c.ValidateCreation(100); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}
