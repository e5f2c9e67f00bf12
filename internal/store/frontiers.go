package store

import "mikron/internal/numbers"

// GetFrontier returns the account that owns the legacy head block hash.
// State heads never appear in this table (§3.4); it exists purely to carry
// the legacy on-disk schema forward.
func (t *Txn) GetFrontier(hash numbers.Hash) (numbers.Account, bool, error) {
	v, ok, err := t.get(TableFrontiers, hash[:])
	if err != nil || !ok {
		return numbers.Account{}, ok, err
	}
	var acc numbers.Account
	copy(acc[:], v)
	return acc, true, nil
}

// PutFrontier records hash as a legacy chain head owned by account.
func (t *Txn) PutFrontier(hash numbers.Hash, account numbers.Account) error {
	return t.put(TableFrontiers, hash[:], account[:])
}

// DeleteFrontier removes a legacy frontier entry.
func (t *Txn) DeleteFrontier(hash numbers.Hash) error {
	return t.del(TableFrontiers, hash[:])
}
