package store

import (
	"encoding/binary"

	"mikron/internal/block"
	"mikron/internal/numbers"
)

// encodeUncheckedList packs a list of dependent blocks behind one key. The
// table is keyed by missing-dependency hash (§3.4) but more than one
// candidate block can be waiting on the same dependency, so the value is a
// count-prefixed sequence of fixed-width blocks rather than a single one.
func encodeUncheckedList(blocks []*block.StateBlock) []byte {
	buf := make([]byte, 4, 4+len(blocks)*block.Size)
	binary.BigEndian.PutUint32(buf, uint32(len(blocks)))
	for _, b := range blocks {
		buf = append(buf, b.Serialize()...)
	}
	return buf
}

func decodeUncheckedList(buf []byte) ([]*block.StateBlock, error) {
	if len(buf) < 4 {
		return nil, nil
	}
	n := binary.BigEndian.Uint32(buf)
	out := make([]*block.StateBlock, 0, n)
	off := 4
	for i := uint32(0); i < n; i++ {
		b, err := block.Deserialize(buf[off : off+block.Size])
		if err != nil {
			return nil, err
		}
		out = append(out, b)
		off += block.Size
	}
	return out, nil
}

// GetUnchecked returns every candidate block waiting on dependency.
func (t *Txn) GetUnchecked(dependency numbers.Hash) ([]*block.StateBlock, error) {
	v, ok, err := t.get(TableUnchecked, dependency[:])
	if err != nil || !ok {
		return nil, err
	}
	return decodeUncheckedList(v)
}

// AddUnchecked appends blk to the set of candidates waiting on dependency.
func (t *Txn) AddUnchecked(dependency numbers.Hash, blk *block.StateBlock) error {
	existing, err := t.GetUnchecked(dependency)
	if err != nil {
		return err
	}
	existing = append(existing, blk)
	return t.put(TableUnchecked, dependency[:], encodeUncheckedList(existing))
}

// DeleteUnchecked removes every candidate waiting on dependency, called
// once the dependency has been admitted and its waiters have been
// requeued into the processor.
func (t *Txn) DeleteUnchecked(dependency numbers.Hash) error {
	return t.del(TableUnchecked, dependency[:])
}
