package block

import (
	"crypto/ed25519"
	"errors"

	"mikron/internal/numbers"
)

// ErrCommentTruncated is returned by DeserializeComment when buf is shorter
// than the fixed prelude or the declared payload length.
var ErrCommentTruncated = errors.New("block: truncated comment block")

// CommentMaxEffective is the effective payload bound for a comment record
// (§3.5); the wire framing itself allows up to numbers.MaxVarLen16 bytes.
// Preimage hashes at most this many payload bytes; ValidateCreation does not
// check the payload length.
const CommentMaxEffective = 64

// commentBlockTypeTag domain-separates comment hashes from state-block
// hashes so the two never collide despite sharing an account namespace.
var commentBlockTypeTag = []byte("comment_block_type_tag")

// CommentBlock is a separate record type that lets an account attach a
// short note. It never affects balances, weights or pending entries (§3.5).
type CommentBlock struct {
	Account      numbers.Account
	CreationTime numbers.ShortTimestamp
	Previous     numbers.Hash
	Payload      numbers.VarLenBytes16
	Signature    numbers.Signature
}

// Preimage returns the hash preimage for a comment block: the domain tag,
// account, creation time, previous-comment link and the (possibly
// truncated) payload.
func (c *CommentBlock) Preimage() []byte {
	payload := c.Payload
	if len(payload) > CommentMaxEffective {
		payload = payload[:CommentMaxEffective]
	}
	buf := make([]byte, 0, len(commentBlockTypeTag)+32+4+32+len(payload))
	buf = append(buf, commentBlockTypeTag...)
	buf = append(buf, c.Account[:]...)
	ts := make([]byte, 4)
	c.CreationTime.PutUint32(ts)
	buf = append(buf, ts...)
	buf = append(buf, c.Previous[:]...)
	buf = append(buf, payload...)
	return buf
}

// Hash returns the BLAKE2b-256 digest of the comment block's preimage.
func (c *CommentBlock) Hash() numbers.Hash { return numbers.Blake2b256(c.Preimage()) }

// Sign fills c.Signature with an Ed25519 signature over c.Hash().
func (c *CommentBlock) Sign(priv ed25519.PrivateKey) {
	h := c.Hash()
	sig := ed25519.Sign(priv, h[:])
	copy(c.Signature[:], sig)
}

// Verify reports whether c.Signature validates under c.Account.
func (c *CommentBlock) Verify() bool {
	h := c.Hash()
	return ed25519.Verify(ed25519.PublicKey(c.Account[:]), h[:], c.Signature[:])
}

// ErrCommentTooEarly is returned when a comment block's creation time
// precedes the network's epoch2 boundary (§3.5, §9 open question (b)).
var ErrCommentTooEarly = errors.New("block: comment block before epoch2")

// ValidateCreation checks the two observable constraints the reference
// implementation actually enforces for comment admission: signed by the
// sender (caller must have already called Verify) and creation_time >=
// epoch2. Everything else about comment admission is left unspecified by
// design (§9 open question (b)).
func (c *CommentBlock) ValidateCreation(epoch2 numbers.ShortTimestamp) error {
	if !c.Verify() {
		return errors.New("block: comment signature invalid")
	}
	if c.CreationTime < epoch2 {
		return ErrCommentTooEarly
	}
	return nil
}

// Serialize returns the fixed prelude (account, creation_time, previous)
// followed by the length-prefixed payload and the trailing signature.
func (c *CommentBlock) Serialize() []byte {
	payload := c.Payload.Encode()
	buf := make([]byte, 0, 32+4+32+len(payload)+64)
	buf = append(buf, c.Account[:]...)
	ts := make([]byte, 4)
	c.CreationTime.PutUint32(ts)
	buf = append(buf, ts...)
	buf = append(buf, c.Previous[:]...)
	buf = append(buf, payload...)
	buf = append(buf, c.Signature[:]...)
	return buf
}

// DeserializeComment decodes a comment block from its wire form.
func DeserializeComment(buf []byte) (*CommentBlock, error) {
	const prelude = 32 + 4 + 32
	if len(buf) < prelude+2 {
		return nil, ErrCommentTruncated
	}
	c := &CommentBlock{}
	off := 0
	copy(c.Account[:], buf[off:off+32])
	off += 32
	c.CreationTime = numbers.ParseShortTimestamp(buf[off : off+4])
	off += 4
	copy(c.Previous[:], buf[off:off+32])
	off += 32
	payload, n, err := numbers.DecodeVarLenBytes16(buf[off:])
	if err != nil {
		return nil, err
	}
	c.Payload = payload
	off += n
	if len(buf) < off+64 {
		return nil, ErrCommentTruncated
	}
	copy(c.Signature[:], buf[off:off+64])
	return c, nil
}
