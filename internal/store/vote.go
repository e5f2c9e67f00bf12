package store

import "mikron/internal/numbers"

// GetVote returns the latest packed vote bytes observed from account, as
// produced by vote.Vote.Serialize. The store treats the value as opaque;
// sequence-ordering is enforced by the vote package before calling PutVote.
func (t *Txn) GetVote(account numbers.Account) ([]byte, bool, error) {
	return t.get(TableVote, account[:])
}

// PutVote overwrites the latest vote recorded for account.
func (t *Txn) PutVote(account numbers.Account, packed []byte) error {
	return t.put(TableVote, account[:], packed)
}
