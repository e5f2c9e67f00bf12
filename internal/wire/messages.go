package wire

import (
	"encoding/binary"
	"errors"
	"net"

	"mikron/internal/block"
	"mikron/internal/numbers"
)

// BlockType tags the block encoding that follows in publish, confirm_req and
// confirm_ack bodies. Only state blocks exist on this chain; not_a_block is
// the sentinel that closes a bulk stream (§6.2) and marks a hash-only vote.
type BlockType uint8

const (
	BlockTypeNotABlock BlockType = 0x01
	BlockTypeState      BlockType = 0x06
)

// ErrTruncatedBody is returned by every UnmarshalBinary when buf is shorter
// than the message's fixed or declared length.
var ErrTruncatedBody = errors.New("wire: truncated message body")

// Peer is one keepalive slot: an IPv6 address (v4 addresses are carried
// v4-in-v6 mapped, matching how net.IP already stores them) and a port.
// A zero Addr marks an unreachable/unused slot.
type Peer struct {
	Addr net.IP
	Port uint16
}

// KeepalivePeers is the fixed slot count of a keepalive message.
const KeepalivePeers = 8

// Keepalive carries up to KeepalivePeers peer endpoints (§4.6).
type Keepalive struct {
	Peers [KeepalivePeers]Peer
}

func (m *Keepalive) MarshalBinary() []byte {
	buf := make([]byte, 0, KeepalivePeers*18)
	for _, p := range m.Peers {
		var addr [16]byte
		if v6 := p.Addr.To16(); v6 != nil {
			copy(addr[:], v6)
		}
		buf = append(buf, addr[:]...)
		port := make([]byte, 2)
		binary.BigEndian.PutUint16(port, p.Port)
		buf = append(buf, port...)
	}
	return buf
}

func UnmarshalKeepalive(buf []byte) (*Keepalive, error) {
	const want = KeepalivePeers * 18
	if len(buf) < want {
		return nil, ErrTruncatedBody
	}
	m := &Keepalive{}
	for i := 0; i < KeepalivePeers; i++ {
		off := i * 18
		addr := make(net.IP, 16)
		copy(addr, buf[off:off+16])
		port := binary.BigEndian.Uint16(buf[off+16 : off+18])
		m.Peers[i] = Peer{Addr: addr, Port: port}
	}
	return m, nil
}

// Publish carries one freshly-created block for gossip propagation.
type Publish struct {
	BlockType BlockType
	Block     *block.StateBlock
}

func (m *Publish) MarshalBinary() []byte {
	buf := make([]byte, 0, 1+block.Size)
	buf = append(buf, byte(m.BlockType))
	buf = append(buf, m.Block.Serialize()...)
	return buf
}

func UnmarshalPublish(buf []byte) (*Publish, error) {
	if len(buf) < 1+block.Size {
		return nil, ErrTruncatedBody
	}
	blk, err := block.Deserialize(buf[1 : 1+block.Size])
	if err != nil {
		return nil, err
	}
	return &Publish{BlockType: BlockType(buf[0]), Block: blk}, nil
}

// ConfirmReq asks peers to vote on a block, identified the same way Publish
// carries one.
type ConfirmReq struct {
	BlockType BlockType
	Block     *block.StateBlock
}

func (m *ConfirmReq) MarshalBinary() []byte { return (&Publish{m.BlockType, m.Block}).MarshalBinary() }

func UnmarshalConfirmReq(buf []byte) (*ConfirmReq, error) {
	p, err := UnmarshalPublish(buf)
	if err != nil {
		return nil, err
	}
	return &ConfirmReq{BlockType: p.BlockType, Block: p.Block}, nil
}

// ConfirmAck carries a representative's vote, either as a list of bare
// hashes (BlockType == BlockTypeNotABlock) or as exactly one full block.
type ConfirmAck struct {
	BlockType BlockType
	Account   numbers.Account
	Signature numbers.Signature
	Sequence  uint64
	Hashes    []numbers.Hash
	Block     *block.StateBlock
}

const confirmAckVotePreludeSize = 32 + 64 + 8

func (m *ConfirmAck) MarshalBinary() []byte {
	buf := make([]byte, 0, 1+confirmAckVotePreludeSize+len(m.Hashes)*32+block.Size)
	buf = append(buf, byte(m.BlockType))
	buf = append(buf, m.Account[:]...)
	buf = append(buf, m.Signature[:]...)
	seq := make([]byte, 8)
	binary.BigEndian.PutUint64(seq, m.Sequence)
	buf = append(buf, seq...)
	if m.BlockType == BlockTypeNotABlock {
		for _, h := range m.Hashes {
			buf = append(buf, h[:]...)
		}
	} else {
		buf = append(buf, m.Block.Serialize()...)
	}
	return buf
}

func UnmarshalConfirmAck(buf []byte) (*ConfirmAck, error) {
	if len(buf) < 1+confirmAckVotePreludeSize {
		return nil, ErrTruncatedBody
	}
	m := &ConfirmAck{BlockType: BlockType(buf[0])}
	off := 1
	copy(m.Account[:], buf[off:off+32])
	off += 32
	copy(m.Signature[:], buf[off:off+64])
	off += 64
	m.Sequence = binary.BigEndian.Uint64(buf[off : off+8])
	off += 8
	rest := buf[off:]
	if m.BlockType == BlockTypeNotABlock {
		if len(rest)%32 != 0 {
			return nil, ErrTruncatedBody
		}
		m.Hashes = make([]numbers.Hash, len(rest)/32)
		for i := range m.Hashes {
			copy(m.Hashes[i][:], rest[i*32:i*32+32])
		}
		return m, nil
	}
	blk, err := block.Deserialize(rest)
	if err != nil {
		return nil, err
	}
	m.Block = blk
	return m, nil
}

// FrontierReq asks a bootstrap peer for the (account, head) pairs of every
// account it knows starting at Start, no older than Age, up to Count
// entries (§4.6, §4.8 step 3).
type FrontierReq struct {
	Start numbers.Account
	Age   uint32
	Count uint32
}

// MaxFrontierAge/MaxFrontierCount request every frontier regardless of age.
const (
	MaxFrontierAge   uint32 = 0xffffffff
	MaxFrontierCount uint32 = 0xffffffff
)

func (m *FrontierReq) MarshalBinary() []byte {
	buf := make([]byte, 0, 32+4+4)
	buf = append(buf, m.Start[:]...)
	age := make([]byte, 4)
	binary.BigEndian.PutUint32(age, m.Age)
	buf = append(buf, age...)
	count := make([]byte, 4)
	binary.BigEndian.PutUint32(count, m.Count)
	buf = append(buf, count...)
	return buf
}

func UnmarshalFrontierReq(buf []byte) (*FrontierReq, error) {
	if len(buf) < 32+4+4 {
		return nil, ErrTruncatedBody
	}
	m := &FrontierReq{}
	copy(m.Start[:], buf[0:32])
	m.Age = binary.BigEndian.Uint32(buf[32:36])
	m.Count = binary.BigEndian.Uint32(buf[36:40])
	return m, nil
}

// PullMode selects which chain segment bulk_pull_account wants (§4.6).
type PullMode uint8

const (
	PullModeFull PullMode = iota
	PullModePendingOnly
	PullModePendingAddressOnly
)

// BulkPull requests every block in account's chain from Start (a hash, or
// the zero hash for "from the account's head") down to the peer's own
// frontier. Flags bit 0 requests the full chain; a zero End means "to open".
type BulkPull struct {
	Account numbers.Account
	Start   numbers.Hash
	End     numbers.Hash
	Flags   uint8
}

func (m *BulkPull) MarshalBinary() []byte {
	buf := make([]byte, 0, 32+32+32+1)
	buf = append(buf, m.Account[:]...)
	buf = append(buf, m.Start[:]...)
	buf = append(buf, m.End[:]...)
	buf = append(buf, m.Flags)
	return buf
}

func UnmarshalBulkPull(buf []byte) (*BulkPull, error) {
	if len(buf) < 32+32+32+1 {
		return nil, ErrTruncatedBody
	}
	m := &BulkPull{}
	copy(m.Account[:], buf[0:32])
	copy(m.Start[:], buf[32:64])
	copy(m.End[:], buf[64:96])
	m.Flags = buf[96]
	return m, nil
}

// BulkPullAccount requests an account's pending (receivable) entries, or its
// full balance-qualifying chain, filtered by a minimum amount (§4.6).
type BulkPullAccount struct {
	Account   numbers.Account
	MinAmount numbers.Amount
	Mode      PullMode
}

func (m *BulkPullAccount) MarshalBinary() []byte {
	buf := make([]byte, 0, 32+8+1)
	buf = append(buf, m.Account[:]...)
	amt := make([]byte, 8)
	binary.BigEndian.PutUint64(amt, uint64(m.MinAmount))
	buf = append(buf, amt...)
	buf = append(buf, byte(m.Mode))
	return buf
}

func UnmarshalBulkPullAccount(buf []byte) (*BulkPullAccount, error) {
	if len(buf) < 32+8+1 {
		return nil, ErrTruncatedBody
	}
	m := &BulkPullAccount{}
	copy(m.Account[:], buf[0:32])
	m.MinAmount = numbers.Amount(binary.BigEndian.Uint64(buf[32:40]))
	m.Mode = PullMode(buf[40])
	return m, nil
}

// BulkPullBlocks requests a flat range of blocks by hash rather than by
// account chain, used by the legacy-compatible bulk_pull_blocks path.
type BulkPullBlocks struct {
	MinHash numbers.Hash
	MaxHash numbers.Hash
	Mode    PullMode
	MaxCount uint32
}

func (m *BulkPullBlocks) MarshalBinary() []byte {
	buf := make([]byte, 0, 32+32+1+4)
	buf = append(buf, m.MinHash[:]...)
	buf = append(buf, m.MaxHash[:]...)
	buf = append(buf, byte(m.Mode))
	count := make([]byte, 4)
	binary.BigEndian.PutUint32(count, m.MaxCount)
	buf = append(buf, count...)
	return buf
}

func UnmarshalBulkPullBlocks(buf []byte) (*BulkPullBlocks, error) {
	if len(buf) < 32+32+1+4 {
		return nil, ErrTruncatedBody
	}
	m := &BulkPullBlocks{}
	copy(m.MinHash[:], buf[0:32])
	copy(m.MaxHash[:], buf[32:64])
	m.Mode = PullMode(buf[64])
	m.MaxCount = binary.BigEndian.Uint32(buf[65:69])
	return m, nil
}

// NodeIDHandshake exchanges ephemeral node identities over the bootstrap
// socket. Query is present when the header's ExtQuery bit is set; Account
// and Signature answer a peer's query when ExtResponse is set.
type NodeIDHandshake struct {
	Query     *numbers.Hash
	Account   *numbers.Account
	Signature *numbers.Signature
}

func (m *NodeIDHandshake) MarshalBinary() []byte {
	var buf []byte
	if m.Query != nil {
		buf = append(buf, m.Query[:]...)
	}
	if m.Account != nil && m.Signature != nil {
		buf = append(buf, m.Account[:]...)
		buf = append(buf, m.Signature[:]...)
	}
	return buf
}

// UnmarshalNodeIDHandshake decodes the body according to which extension
// bits the enclosing header set.
func UnmarshalNodeIDHandshake(h Header, buf []byte) (*NodeIDHandshake, error) {
	m := &NodeIDHandshake{}
	off := 0
	if h.hasExt(ExtQuery) {
		if len(buf) < off+32 {
			return nil, ErrTruncatedBody
		}
		var q numbers.Hash
		copy(q[:], buf[off:off+32])
		m.Query = &q
		off += 32
	}
	if h.hasExt(ExtResponse) {
		if len(buf) < off+32+64 {
			return nil, ErrTruncatedBody
		}
		var acc numbers.Account
		var sig numbers.Signature
		copy(acc[:], buf[off:off+32])
		off += 32
		copy(sig[:], buf[off:off+64])
		m.Account = &acc
		m.Signature = &sig
	}
	return m, nil
}
