package store

import "encoding/binary"

var metaVersionKey = []byte("version")

// GetMetaVersion returns the on-disk schema version recorded under
// meta["version"], or (0, false) if the store has never been initialized.
func (t *Txn) GetMetaVersion() (uint32, bool, error) {
	v, ok, err := t.get(TableMeta, metaVersionKey)
	if err != nil || !ok {
		return 0, ok, err
	}
	return binary.BigEndian.Uint32(v), true, nil
}

// PutMetaVersion records the schema version.
func (t *Txn) PutMetaVersion(v uint32) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return t.put(TableMeta, metaVersionKey, buf)
}

var metaNodeIDKey = []byte("node_id")

// GetNodeIDSeed returns the persisted Ed25519 seed used to derive this
// node's transport identity keypair (§4.8 node_id_handshake), or
// (nil, false) if none has been generated yet.
func (t *Txn) GetNodeIDSeed() ([]byte, bool, error) {
	return t.get(TableMeta, metaNodeIDKey)
}

// PutNodeIDSeed persists the node's transport identity seed.
func (t *Txn) PutNodeIDSeed(seed []byte) error {
	return t.put(TableMeta, metaNodeIDKey, seed)
}
