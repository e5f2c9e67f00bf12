// Package block implements the state-block chain structure: its fixed
// big-endian layout, BLAKE2b-256 hash preimage, Ed25519 signing/verification
// and the ledger-context-dependent subtype classifier (§3.2–§3.3, §4.1).
package block

import (
	"crypto/ed25519"
	"errors"

	"mikron/internal/numbers"
)

// stateBlockTypeTag domain-separates state-block hashes from any legacy
// block form (§3.2). It is hashed as raw ASCII bytes ahead of the six
// hashable fields.
var stateBlockTypeTag = []byte("state_block_type_tag")

// Size is the fixed on-wire size of a state block: 32+4+32+32+8+32+64+8.
const Size = 212

// StateBlock is the sole block type in this implementation (§9: "dynamic
// dispatch over blocks" collapses to one concrete struct plus the separate
// CommentBlock carrier).
type StateBlock struct {
	Account        numbers.Account
	CreationTime   numbers.ShortTimestamp
	Previous       numbers.Hash
	Representative numbers.Account
	Balance        numbers.Amount
	Link           numbers.Hash
	Signature      numbers.Signature
	Work           uint64
}

// Preimage returns the domain-separated hash preimage: the type tag followed
// by the six hashable fields in declaration order, each big-endian.
func (b *StateBlock) Preimage() []byte {
	buf := make([]byte, 0, len(stateBlockTypeTag)+32+4+32+32+8+32)
	buf = append(buf, stateBlockTypeTag...)
	buf = append(buf, b.Account[:]...)
	ts := make([]byte, 4)
	b.CreationTime.PutUint32(ts)
	buf = append(buf, ts...)
	buf = append(buf, b.Previous[:]...)
	buf = append(buf, b.Representative[:]...)
	bal := make([]byte, 8)
	b.Balance.PutUint64(bal)
	buf = append(buf, bal...)
	buf = append(buf, b.Link[:]...)
	return buf
}

// Hash returns the BLAKE2b-256 digest of the block's preimage.
func (b *StateBlock) Hash() numbers.Hash {
	return numbers.Blake2b256(b.Preimage())
}

// Sign fills b.Signature with an Ed25519 signature over b.Hash() using priv.
// The caller must ensure priv's public key equals b.Account; Sign itself
// does not enforce this (it has no way to derive an account key length
// mismatch otherwise), but Verify always checks it.
func (b *StateBlock) Sign(priv ed25519.PrivateKey) {
	h := b.Hash()
	sig := ed25519.Sign(priv, h[:])
	copy(b.Signature[:], sig)
}

// Verify reports whether b.Signature is a valid Ed25519 signature over
// b.Hash() under the public key b.Account.
func (b *StateBlock) Verify() bool {
	h := b.Hash()
	return ed25519.Verify(ed25519.PublicKey(b.Account[:]), h[:], b.Signature[:])
}

// Serialize returns the fixed 212-byte wire encoding of b.
func (b *StateBlock) Serialize() []byte {
	out := make([]byte, Size)
	off := 0
	off += copy(out[off:], b.Account[:])
	b.CreationTime.PutUint32(out[off:])
	off += 4
	off += copy(out[off:], b.Previous[:])
	off += copy(out[off:], b.Representative[:])
	b.Balance.PutUint64(out[off:])
	off += 8
	off += copy(out[off:], b.Link[:])
	off += copy(out[off:], b.Signature[:])
	putUint64(out[off:], b.Work)
	return out
}

// ErrTruncated is returned by Deserialize when buf is shorter than Size.
var ErrTruncated = errors.New("block: truncated state block")

// Deserialize decodes a fixed 212-byte buffer into a StateBlock.
func Deserialize(buf []byte) (*StateBlock, error) {
	if len(buf) < Size {
		return nil, ErrTruncated
	}
	b := &StateBlock{}
	off := 0
	copy(b.Account[:], buf[off:off+32])
	off += 32
	b.CreationTime = numbers.ParseShortTimestamp(buf[off : off+4])
	off += 4
	copy(b.Previous[:], buf[off:off+32])
	off += 32
	copy(b.Representative[:], buf[off:off+32])
	off += 32
	b.Balance = numbers.ParseAmount(buf[off : off+8])
	off += 8
	copy(b.Link[:], buf[off:off+32])
	off += 32
	copy(b.Signature[:], buf[off:off+64])
	off += 64
	b.Work = getUint64(buf[off : off+8])
	return b, nil
}

func putUint64(buf []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
}

func getUint64(buf []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(buf[i])
	}
	return v
}
