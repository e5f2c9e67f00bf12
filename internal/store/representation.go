package store

import "mikron/internal/numbers"

// GetRepresentation returns the total weight delegated to rep.
func (t *Txn) GetRepresentation(rep numbers.Account) (numbers.Amount, error) {
	v, ok, err := t.get(TableRepresentation, rep[:])
	if err != nil || !ok {
		return 0, err
	}
	return numbers.ParseAmount(v), nil
}

// putRepresentation overwrites rep's stored weight, removing the row
// entirely once it drops to zero so the table never accumulates dead
// zero-weight entries.
func (t *Txn) putRepresentation(rep numbers.Account, weight numbers.Amount) error {
	if weight == 0 {
		return t.del(TableRepresentation, rep[:])
	}
	buf := make([]byte, 8)
	weight.PutUint64(buf)
	return t.put(TableRepresentation, rep[:], buf)
}

// AddRepresentation adjusts rep's weight by delta, which may be negative
// (expressed as a separate subtract call since Amount is unsigned).
func (t *Txn) AddRepresentation(rep numbers.Account, delta numbers.Amount) error {
	cur, err := t.GetRepresentation(rep)
	if err != nil {
		return err
	}
	return t.putRepresentation(rep, cur+delta)
}

// SubRepresentation adjusts rep's weight down by delta. Callers must ensure
// delta never exceeds the current weight; the ledger's admission/rollback
// bookkeeping guarantees this (§4.3/§4.4).
func (t *Txn) SubRepresentation(rep numbers.Account, delta numbers.Amount) error {
	cur, err := t.GetRepresentation(rep)
	if err != nil {
		return err
	}
	return t.putRepresentation(rep, cur-delta)
}

// EachRepresentation iterates every (representative, weight) pair.
func (t *Txn) EachRepresentation(fn func(numbers.Account, numbers.Amount) bool) error {
	return t.cursorEach(TableRepresentation, func(k, v []byte) bool {
		var rep numbers.Account
		copy(rep[:], k)
		return fn(rep, numbers.ParseAmount(v))
	})
}
