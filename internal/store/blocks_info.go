package store

import "mikron/internal/numbers"

// GetBlocksInfo returns the cached (account, balance) pair for hash, if
// present. The table is informational only (§3.4) and never consulted by
// the admission algorithm; it exists so a real node carries the legacy
// every-32nd-block cache forward even though Mikron has no legacy block
// type of its own (see the blocks_info supplement in SPEC_FULL.md).
func (t *Txn) GetBlocksInfo(hash numbers.Hash) (BlocksInfoEntry, bool, error) {
	v, ok, err := t.get(TableBlocksInfo, hash[:])
	if err != nil || !ok {
		return BlocksInfoEntry{}, ok, err
	}
	return decodeBlocksInfoEntry(v), true, nil
}

// PutBlocksInfo caches hash's (account, balance) pair.
func (t *Txn) PutBlocksInfo(hash numbers.Hash, entry BlocksInfoEntry) error {
	return t.put(TableBlocksInfo, hash[:], entry.encode())
}

// DeleteBlocksInfo removes a cache entry. The ledger's rollback does not
// call it.
func (t *Txn) DeleteBlocksInfo(hash numbers.Hash) error {
	return t.del(TableBlocksInfo, hash[:])
}
