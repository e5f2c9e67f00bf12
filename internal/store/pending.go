package store

import "mikron/internal/numbers"

// GetPending returns the pending entry for a (destination, sendHash) pair.
func (t *Txn) GetPending(destination numbers.Account, sendHash numbers.Hash) (PendingInfo, bool, error) {
	v, ok, err := t.get(TablePending, pendingKey(destination, sendHash))
	if err != nil || !ok {
		return PendingInfo{}, ok, err
	}
	return decodePendingInfo(v), true, nil
}

// PutPending records an outstanding send credited to destination.
func (t *Txn) PutPending(destination numbers.Account, sendHash numbers.Hash, info PendingInfo) error {
	return t.put(TablePending, pendingKey(destination, sendHash), info.encode())
}

// DeletePending removes a pending entry, called when the matching receive
// is admitted (or when a rollback must re-instate an already-consumed one
// is handled by the caller re-calling PutPending).
func (t *Txn) DeletePending(destination numbers.Account, sendHash numbers.Hash) error {
	return t.del(TablePending, pendingKey(destination, sendHash))
}

// EachPendingFor iterates every pending entry credited to destination, in
// send-hash order. fn returning false stops iteration early.
func (t *Txn) EachPendingFor(destination numbers.Account, fn func(sendHash numbers.Hash, info PendingInfo) bool) error {
	return t.cursorFrom(TablePending, destination[:], func(k, v []byte) bool {
		dest, hash := decodePendingKey(k)
		if dest != destination {
			return false
		}
		return fn(hash, decodePendingInfo(v))
	})
}
