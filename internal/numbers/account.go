package numbers

import (
	"errors"
	"math/big"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// accountAlphabet is the 32-symbol alphabet used by the account textual
// encoding (§6.3). Index i encodes the 5-bit value i.
const accountAlphabet = "13456789abcdefghijkmnopqrstuwxyz"

var accountDecodeTable = buildAccountDecodeTable()

func buildAccountDecodeTable() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(accountAlphabet); i++ {
		t[accountAlphabet[i]] = int8(i)
	}
	return t
}

// accountChecksum returns the 40-bit BLAKE2b checksum prepended to the
// account's textual encoding, reconstructed as a little-endian integer from
// the 5 digest bytes (matching the reference implementation's reinterpret of
// the digest bytes into a machine word).
func accountChecksum(a Account) uint64 {
	h, err := blake2b.New(5, nil)
	if err != nil {
		panic(err)
	}
	h.Write(a[:])
	d := h.Sum(nil)
	var v uint64
	for i := 4; i >= 0; i-- {
		v = v<<8 | uint64(d[i])
	}
	return v
}

// ToText renders a as "mik_" followed by 60 base32 characters: the account
// bytes and its 40-bit checksum packed into a 296-bit number and emitted
// most-significant-quintet first.
func (a Account) ToText() string {
	n := new(big.Int).SetBytes(a[:])
	n.Lsh(n, 40)
	n.Or(n, new(big.Int).SetUint64(accountChecksum(a)))

	var sb strings.Builder
	sb.Grow(64)
	sb.WriteString("mik_")
	tmp := new(big.Int)
	mask := big.NewInt(0x1f)
	for i := 0; i < 60; i++ {
		shift := uint((59 - i) * 5)
		tmp.Rsh(n, shift)
		tmp.And(tmp, mask)
		sb.WriteByte(accountAlphabet[tmp.Uint64()])
	}
	return sb.String()
}

// ErrInvalidAccountText is returned by ParseAccount when the textual form
// fails prefix, length, alphabet or checksum validation.
var ErrInvalidAccountText = errors.New("numbers: invalid account address")

// ParseAccount parses the textual account form produced by ToText. Both
// "mik_"/"MIK_" prefixes and "_"/"-" separators are accepted per §6.3.
func ParseAccount(s string) (Account, error) {
	if len(s) != 64 {
		return Account{}, ErrInvalidAccountText
	}
	prefixOK := (s[0] == 'm' || s[0] == 'M') && (s[1] == 'i' || s[1] == 'I') && (s[2] == 'k' || s[2] == 'K') && (s[3] == '_' || s[3] == '-')
	if !prefixOK {
		return Account{}, ErrInvalidAccountText
	}
	body := s[4:]
	if body[0] != '1' && body[0] != '3' {
		return Account{}, ErrInvalidAccountText
	}

	n := new(big.Int)
	for i := 0; i < len(body); i++ {
		v := accountDecodeTable[body[i]]
		if v < 0 {
			return Account{}, ErrInvalidAccountText
		}
		n.Lsh(n, 5)
		n.Or(n, big.NewInt(int64(v)))
	}

	checkMask := new(big.Int).SetUint64(0xffffffffff)
	check := new(big.Int).And(n, checkMask).Uint64()

	accountInt := new(big.Int).Rsh(n, 40)
	var out Account
	b := accountInt.Bytes()
	if len(b) > 32 {
		return Account{}, ErrInvalidAccountText
	}
	copy(out[32-len(b):], b)

	if accountChecksum(out) != check {
		return Account{}, ErrInvalidAccountText
	}
	return out, nil
}
