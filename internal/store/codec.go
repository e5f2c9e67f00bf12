package store

import (
	"encoding/binary"

	"mikron/internal/block"
	"mikron/internal/numbers"
)

// AccountInfo is the value stored under accounts[account] (§3.4).
type AccountInfo struct {
	Head          numbers.Hash
	RepBlock      numbers.Hash
	OpenBlock     numbers.Hash
	Balance       numbers.Amount
	LastBlockTime numbers.ShortTimestamp
	BlockCount    uint64
}

const accountInfoSize = 32 + 32 + 32 + 8 + 4 + 8

func (a AccountInfo) encode() []byte {
	buf := make([]byte, accountInfoSize)
	off := 0
	off += copy(buf[off:], a.Head[:])
	off += copy(buf[off:], a.RepBlock[:])
	off += copy(buf[off:], a.OpenBlock[:])
	a.Balance.PutUint64(buf[off:])
	off += 8
	a.LastBlockTime.PutUint32(buf[off:])
	off += 4
	binary.BigEndian.PutUint64(buf[off:], a.BlockCount)
	return buf
}

func decodeAccountInfo(buf []byte) AccountInfo {
	var a AccountInfo
	off := 0
	copy(a.Head[:], buf[off:off+32])
	off += 32
	copy(a.RepBlock[:], buf[off:off+32])
	off += 32
	copy(a.OpenBlock[:], buf[off:off+32])
	off += 32
	a.Balance = numbers.ParseAmount(buf[off : off+8])
	off += 8
	a.LastBlockTime = numbers.ParseShortTimestamp(buf[off : off+4])
	off += 4
	a.BlockCount = binary.BigEndian.Uint64(buf[off : off+8])
	return a
}

// PendingInfo is the value stored under pending[(destination, sendHash)].
type PendingInfo struct {
	Source numbers.Account
	Amount numbers.Amount
}

func (p PendingInfo) encode() []byte {
	buf := make([]byte, 32+8)
	copy(buf, p.Source[:])
	p.Amount.PutUint64(buf[32:])
	return buf
}

func decodePendingInfo(buf []byte) PendingInfo {
	var p PendingInfo
	copy(p.Source[:], buf[:32])
	p.Amount = numbers.ParseAmount(buf[32:40])
	return p
}

// pendingKey packs (destination, sendHash) into the lexicographically
// ordered composite key used by the pending table.
func pendingKey(destination numbers.Account, sendHash numbers.Hash) []byte {
	buf := make([]byte, 64)
	copy(buf, destination[:])
	copy(buf[32:], sendHash[:])
	return buf
}

func decodePendingKey(buf []byte) (numbers.Account, numbers.Hash) {
	var dest numbers.Account
	var hash numbers.Hash
	copy(dest[:], buf[:32])
	copy(hash[:], buf[32:64])
	return dest, hash
}

// BlocksInfoEntry is the informational cache value (§3.4).
type BlocksInfoEntry struct {
	Account numbers.Account
	Balance numbers.Amount
}

func (b BlocksInfoEntry) encode() []byte {
	buf := make([]byte, 40)
	copy(buf, b.Account[:])
	b.Balance.PutUint64(buf[32:])
	return buf
}

func decodeBlocksInfoEntry(buf []byte) BlocksInfoEntry {
	var b BlocksInfoEntry
	copy(b.Account[:], buf[:32])
	b.Balance = numbers.ParseAmount(buf[32:40])
	return b
}

// StoredBlock pairs a decoded state block with its successor pointer, the
// value half of the state_blocks table (§3.4, §9 "successor pointer stored
// next to the block").
type StoredBlock struct {
	Block     *block.StateBlock
	Successor numbers.Hash
}

func (s StoredBlock) encode() []byte {
	buf := make([]byte, block.Size+32)
	copy(buf, s.Block.Serialize())
	copy(buf[block.Size:], s.Successor[:])
	return buf
}

func decodeStoredBlock(buf []byte) (*StoredBlock, error) {
	blk, err := block.Deserialize(buf[:block.Size])
	if err != nil {
		return nil, err
	}
	var succ numbers.Hash
	copy(succ[:], buf[block.Size:block.Size+32])
	return &StoredBlock{Block: blk, Successor: succ}, nil
}

// ChecksumRegion identifies an XOR accumulator bucket (§3.4).
type ChecksumRegion struct {
	Hi, Lo uint64
}

func (r ChecksumRegion) key() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf, r.Hi)
	binary.BigEndian.PutUint64(buf[8:], r.Lo)
	return buf
}
