package store

import (
	"mikron/internal/block"
	"mikron/internal/numbers"
)

// GetStateBlock returns the stored block and its successor pointer.
func (t *Txn) GetStateBlock(hash numbers.Hash) (*StoredBlock, bool, error) {
	v, ok, err := t.get(TableStateBlocks, hash[:])
	if err != nil || !ok {
		return nil, ok, err
	}
	sb, err := decodeStoredBlock(v)
	if err != nil {
		return nil, false, err
	}
	return sb, true, nil
}

func (t *Txn) HasStateBlock(hash numbers.Hash) (bool, error) {
	return t.has(TableStateBlocks, hash[:])
}

// PutStateBlock implements the atomic block_put(hash, block, successor)
// contract of §4.2: the new row is written and, if blk.Previous is
// non-zero, the previous row's successor pointer is patched in the same
// call so no partial visibility is observable across the two writes.
func (t *Txn) PutStateBlock(blk *block.StateBlock) error {
	hash := blk.Hash()
	if err := t.put(TableStateBlocks, hash[:], (&StoredBlock{Block: blk}).encode()); err != nil {
		return err
	}
	if blk.Previous.IsZero() {
		return nil
	}
	prev, ok, err := t.GetStateBlock(blk.Previous)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	prev.Successor = hash
	return t.put(TableStateBlocks, blk.Previous[:], prev.encode())
}

// ClearSuccessor zeroes out hash's successor pointer, used when a rollback
// detaches the block that used to follow it.
func (t *Txn) ClearSuccessor(hash numbers.Hash) error {
	sb, ok, err := t.GetStateBlock(hash)
	if err != nil || !ok {
		return err
	}
	sb.Successor = numbers.Hash{}
	return t.put(TableStateBlocks, hash[:], sb.encode())
}

// DeleteStateBlock removes hash's row, used by rollback (§4.4).
func (t *Txn) DeleteStateBlock(hash numbers.Hash) error {
	return t.del(TableStateBlocks, hash[:])
}

// GetCommentBlock returns the comment record stored under hash.
func (t *Txn) GetCommentBlock(hash numbers.Hash) (*block.CommentBlock, bool, error) {
	v, ok, err := t.get(TableCommentBlocks, hash[:])
	if err != nil || !ok {
		return nil, ok, err
	}
	c, err := block.DeserializeComment(v)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// PutCommentBlock stores c under its own hash.
func (t *Txn) PutCommentBlock(c *block.CommentBlock) error {
	hash := c.Hash()
	return t.put(TableCommentBlocks, hash[:], c.Serialize())
}
