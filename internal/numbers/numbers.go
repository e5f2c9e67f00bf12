// Package numbers implements the fixed-width primitive types shared by the
// rest of the node: hashes, accounts, signatures, amounts and the compact
// timestamp used throughout the wire and storage layers. All encodings are
// big-endian, matching the hashing and wire preimages described by the block
// and wire packages.
package numbers

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Hash identifies a block, a vote payload or a BLAKE2b-256 digest generally.
type Hash [32]byte

// Account is a 32-byte Ed25519 public key that owns a chain.
type Account [32]byte

// PublicKey is an alias for Account; the two are interchangeable in the wire
// and ledger layers because an account's identity *is* its signing key.
type PublicKey = Account

// Signature is a 64-byte Ed25519 signature.
type Signature [64]byte

// Amount is an unsigned 64-bit balance, serialized big-endian everywhere.
type Amount uint64

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// IsZero reports whether a is the all-zero (burn) account.
func (a Account) IsZero() bool { return a == Account{} }

// Bytes returns a's raw 32 bytes.
func (a Account) Bytes() []byte { return a[:] }

// Hex renders h as uppercase hex, matching the JSON block form (§6.4).
func (h Hash) Hex() string { return strings.ToUpper(fmt.Sprintf("%x", h[:])) }

// Hex renders a as uppercase hex.
func (a Account) Hex() string { return strings.ToUpper(fmt.Sprintf("%x", a[:])) }

// origin is the compile-time epoch origin: 2018-09-01T00:00:00Z.
var origin = time.Date(2018, time.September, 1, 0, 0, 0, 0, time.UTC)

// ShortTimestamp is an unsigned 32-bit count of seconds since origin.
type ShortTimestamp uint32

// Now returns the current wall-clock time as a ShortTimestamp.
func Now() ShortTimestamp { return FromUnix(time.Now()) }

// FromUnix converts a time.Time to a ShortTimestamp. Times before origin
// saturate at zero.
func FromUnix(t time.Time) ShortTimestamp {
	d := t.Sub(origin)
	if d < 0 {
		return 0
	}
	return ShortTimestamp(d / time.Second)
}

// ToUnix converts a ShortTimestamp back to a time.Time.
func (s ShortTimestamp) ToUnix() time.Time {
	return origin.Add(time.Duration(s) * time.Second)
}

// PutUint32 writes s big-endian into buf, which must be at least 4 bytes.
func (s ShortTimestamp) PutUint32(buf []byte) { binary.BigEndian.PutUint32(buf, uint32(s)) }

// ParseShortTimestamp reads a big-endian uint32 from buf.
func ParseShortTimestamp(buf []byte) ShortTimestamp {
	return ShortTimestamp(binary.BigEndian.Uint32(buf))
}

// PutUint64 writes a big-endian into buf, which must be at least 8 bytes.
func (a Amount) PutUint64(buf []byte) { binary.BigEndian.PutUint64(buf, uint64(a)) }

// ParseAmount reads a big-endian uint64 from buf.
func ParseAmount(buf []byte) Amount { return Amount(binary.BigEndian.Uint64(buf)) }

// VarLenBytes16 is a byte string with a 16-bit big-endian length prefix,
// bounded at 65535 bytes on the wire. Callers that need the comment payload's
// tighter 64-byte effective bound enforce it themselves (see block package);
// this type only owns the wire framing.
type VarLenBytes16 []byte

// MaxVarLen16 is the largest length a 16-bit prefix can express.
const MaxVarLen16 = 65535

// Encode returns the length-prefixed wire form of v.
func (v VarLenBytes16) Encode() []byte {
	n := len(v)
	if n > MaxVarLen16 {
		n = MaxVarLen16
		v = v[:n]
	}
	out := make([]byte, 2+n)
	binary.BigEndian.PutUint16(out, uint16(n))
	copy(out[2:], v)
	return out
}

// DecodeVarLenBytes16 reads a length-prefixed byte string from buf, returning
// the decoded value and the number of bytes consumed.
func DecodeVarLenBytes16(buf []byte) (VarLenBytes16, int, error) {
	if len(buf) < 2 {
		return nil, 0, errors.New("numbers: truncated var_len_bytes16 length")
	}
	n := int(binary.BigEndian.Uint16(buf))
	if len(buf) < 2+n {
		return nil, 0, errors.New("numbers: truncated var_len_bytes16 body")
	}
	out := make(VarLenBytes16, n)
	copy(out, buf[2:2+n])
	return out, 2 + n, nil
}

// Blake2b256 returns the BLAKE2b-256 digest of the concatenation of parts.
func Blake2b256(parts ...[]byte) Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails for an oversized key, and we never pass
		// one; a failure here means the standard library itself is broken.
		panic(err)
	}
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
