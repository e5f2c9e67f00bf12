package store

import "mikron/internal/numbers"

// GetAccount returns the account_info row for account.
func (t *Txn) GetAccount(account numbers.Account) (AccountInfo, bool, error) {
	v, ok, err := t.get(TableAccounts, account[:])
	if err != nil || !ok {
		return AccountInfo{}, ok, err
	}
	return decodeAccountInfo(v), true, nil
}

// PutAccount writes (or overwrites) the account_info row for account.
func (t *Txn) PutAccount(account numbers.Account, info AccountInfo) error {
	return t.put(TableAccounts, account[:], info.encode())
}

// DeleteAccount removes account's row entirely, used when a rollback
// unwinds an account back past its open block (§4.4).
func (t *Txn) DeleteAccount(account numbers.Account) error {
	return t.del(TableAccounts, account[:])
}

// EachAccount iterates every (account, info) pair in account order. fn
// returning false stops iteration early.
func (t *Txn) EachAccount(fn func(numbers.Account, AccountInfo) bool) error {
	return t.cursorEach(TableAccounts, func(k, v []byte) bool {
		var acc numbers.Account
		copy(acc[:], k)
		return fn(acc, decodeAccountInfo(v))
	})
}
