package store

import "mikron/internal/numbers"

// GetChecksum returns the XOR accumulator for region, or the zero hash if
// nothing has ever been folded into it.
func (t *Txn) GetChecksum(region ChecksumRegion) (numbers.Hash, error) {
	v, ok, err := t.get(TableChecksum, region.key())
	if err != nil {
		return numbers.Hash{}, err
	}
	var h numbers.Hash
	if ok {
		copy(h[:], v)
	}
	return h, nil
}

// XorChecksum folds delta into region's accumulator (§3.4: "XOR of all head
// hashes in region"). The ledger calls this once with the old head XOR'd
// out and once with the new head XOR'd in on every accounts.head change.
func (t *Txn) XorChecksum(region ChecksumRegion, delta numbers.Hash) error {
	cur, err := t.GetChecksum(region)
	if err != nil {
		return err
	}
	for i := range cur {
		cur[i] ^= delta[i]
	}
	return t.put(TableChecksum, region.key(), cur[:])
}
