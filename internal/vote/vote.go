// Package vote implements signed opinions over competing blocks (§4.10) and
// the per-root election bookkeeping that tallies them.
package vote

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"

	"mikron/internal/numbers"
)

// voteHashTag domain-separates vote hashes; hashed as raw ASCII ahead of the
// hash list and the little-endian sequence. A vote over a single full block
// hashes that block's hash without the tag (see Preimage).
var voteHashTag = []byte("vote ")

// Vote is a representative's signed opinion, either over one full block or
// over a list of block hashes (§4.10).
type Vote struct {
	Account   numbers.Account
	Signature numbers.Signature
	Sequence  uint64

	// Hashes holds every hash this vote covers. Block carries the single
	// full block when the vote names exactly one block in full rather than
	// by bare hash (publish/confirm_req style); Block is nil otherwise.
	Hashes []numbers.Hash
	Block  BlockHasher
}

// BlockHasher is satisfied by block.StateBlock; vote avoids importing the
// block package directly so it only ever needs the one method it calls.
type BlockHasher interface {
	Hash() numbers.Hash
}

// Preimage returns the hash preimage: the tag-prefixed hash list (or the
// single block's hash, untagged, when Block is set and there is exactly one
// hash) followed by the sequence number, little-endian, as specified.
func (v *Vote) Preimage() []byte {
	var buf []byte
	if v.Block != nil && len(v.Hashes) == 0 {
		h := v.Block.Hash()
		buf = append(buf, h[:]...)
	} else {
		buf = append(buf, voteHashTag...)
		for _, h := range v.Hashes {
			buf = append(buf, h[:]...)
		}
	}
	seq := make([]byte, 8)
	binary.LittleEndian.PutUint64(seq, v.Sequence)
	buf = append(buf, seq...)
	return buf
}

// Hash returns the BLAKE2b-256 digest of v's preimage.
func (v *Vote) Hash() numbers.Hash { return numbers.Blake2b256(v.Preimage()) }

// Sign fills v.Signature with an Ed25519 signature over v.Hash() under priv.
func (v *Vote) Sign(priv ed25519.PrivateKey) {
	h := v.Hash()
	sig := ed25519.Sign(priv, h[:])
	copy(v.Signature[:], sig)
}

// Verify reports whether v.Signature validates under v.Account.
func (v *Vote) Verify() bool {
	h := v.Hash()
	return ed25519.Verify(ed25519.PublicKey(v.Account[:]), h[:], v.Signature[:])
}

// Code is the result of submitting a vote to a Manager.
type Code uint8

const (
	// CodeVote is the only success verdict: the vote was newer than any
	// previously stored and was accepted and persisted.
	CodeVote Code = iota
	// CodeInvalid marks a vote with a bad signature.
	CodeInvalid
	// CodeReplay marks a vote whose sequence did not exceed the stored one.
	CodeReplay
)

// ErrNotPacked is returned by Unpack when buf does not contain a complete
// packed vote.
var ErrNotPacked = errors.New("vote: truncated packed vote")

// Pack serializes v into the opaque form persisted in the store's vote
// table: account || signature || sequence(8, big-endian) || count(4) ||
// hashes(32 each). Block votes are packed as a single-hash list; the
// distinction between "voted on the full block" and "voted on its hash"
// only matters for wire framing, not for persistence.
func (v *Vote) Pack() []byte {
	hashes := v.Hashes
	if v.Block != nil && len(hashes) == 0 {
		h := v.Block.Hash()
		hashes = []numbers.Hash{h}
	}
	buf := make([]byte, 0, 32+64+8+4+32*len(hashes))
	buf = append(buf, v.Account[:]...)
	buf = append(buf, v.Signature[:]...)
	seq := make([]byte, 8)
	binary.BigEndian.PutUint64(seq, v.Sequence)
	buf = append(buf, seq...)
	count := make([]byte, 4)
	binary.BigEndian.PutUint32(count, uint32(len(hashes)))
	buf = append(buf, count...)
	for _, h := range hashes {
		buf = append(buf, h[:]...)
	}
	return buf
}

// Unpack decodes a vote packed by Pack. The decoded vote's Block is always
// nil; callers that need to distinguish a full-block vote do so at the wire
// layer before packing.
func Unpack(buf []byte) (*Vote, error) {
	if len(buf) < 32+64+8+4 {
		return nil, ErrNotPacked
	}
	v := &Vote{}
	off := 0
	copy(v.Account[:], buf[off:off+32])
	off += 32
	copy(v.Signature[:], buf[off:off+64])
	off += 64
	v.Sequence = binary.BigEndian.Uint64(buf[off : off+8])
	off += 8
	n := binary.BigEndian.Uint32(buf[off : off+4])
	off += 4
	if len(buf) < off+int(n)*32 {
		return nil, ErrNotPacked
	}
	v.Hashes = make([]numbers.Hash, n)
	for i := range v.Hashes {
		copy(v.Hashes[i][:], buf[off:off+32])
		off += 32
	}
	return v, nil
}
