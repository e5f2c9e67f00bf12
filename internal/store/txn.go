package store

import (
	"fmt"

	"github.com/erigontech/mdbx-go/mdbx"
)

// Txn wraps one MDBX transaction (read-write or read-only) and resolves
// table names to the DBI handles opened by Store.Open.
type Txn struct {
	txn *mdbx.Txn
	s   *Store
}

func (t *Txn) dbi(table string) (mdbx.DBI, error) {
	d, ok := t.s.dbis[table]
	if !ok {
		return 0, fmt.Errorf("store: unknown table %q", table)
	}
	return d, nil
}

// get returns the raw value for key in table, or (nil, false, nil) if the
// key is absent.
func (t *Txn) get(table string, key []byte) ([]byte, bool, error) {
	d, err := t.dbi(table)
	if err != nil {
		return nil, false, err
	}
	v, err := t.txn.Get(d, key)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (t *Txn) put(table string, key, val []byte) error {
	d, err := t.dbi(table)
	if err != nil {
		return err
	}
	return t.txn.Put(d, key, val, 0)
}

func (t *Txn) del(table string, key []byte) error {
	d, err := t.dbi(table)
	if err != nil {
		return err
	}
	err = t.txn.Del(d, key, nil)
	if err != nil && mdbx.IsNotFound(err) {
		return nil
	}
	return err
}

func (t *Txn) has(table string, key []byte) (bool, error) {
	_, ok, err := t.get(table, key)
	return ok, err
}

// cursorEach iterates every (key, value) pair of table in lexicographic key
// order, invoking fn for each. Iteration stops early if fn returns false.
// Cursors are scoped to this call and closed before returning, matching the
// "iterators invalidated by transaction end" contract (§4.2) a level down.
func (t *Txn) cursorEach(table string, fn func(key, val []byte) bool) error {
	d, err := t.dbi(table)
	if err != nil {
		return err
	}
	cur, err := t.txn.OpenCursor(d)
	if err != nil {
		return err
	}
	defer cur.Close()

	k, v, err := cur.Get(nil, nil, mdbx.First)
	for err == nil {
		if !fn(k, v) {
			return nil
		}
		k, v, err = cur.Get(nil, nil, mdbx.Next)
	}
	if mdbx.IsNotFound(err) {
		return nil
	}
	return err
}

// cursorFrom iterates table starting at the first key >= from, in
// lexicographic order.
func (t *Txn) cursorFrom(table string, from []byte, fn func(key, val []byte) bool) error {
	d, err := t.dbi(table)
	if err != nil {
		return err
	}
	cur, err := t.txn.OpenCursor(d)
	if err != nil {
		return err
	}
	defer cur.Close()

	k, v, err := cur.Get(from, nil, mdbx.SetRange)
	for err == nil {
		if !fn(k, v) {
			return nil
		}
		k, v, err = cur.Get(nil, nil, mdbx.Next)
	}
	if mdbx.IsNotFound(err) {
		return nil
	}
	return err
}
