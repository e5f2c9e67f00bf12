package wire

import (
	"crypto/ed25519"
	"net"
	"testing"

	"mikron/internal/block"
	"mikron/internal/numbers"
	"mikron/internal/params"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := NewHeader(params.NetworkTest, MessagePublish)
	h.Extensions = ExtFullNode

	got, err := UnmarshalHeader(h.MarshalBinary())
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestUnmarshalHeaderTruncated(t *testing.T) {
	_, err := UnmarshalHeader([]byte{1, 2, 3})
	if err != ErrTruncatedHeader {
		t.Fatalf("got %v, want ErrTruncatedHeader", err)
	}
}

func TestKeepaliveRoundTrip(t *testing.T) {
	m := &Keepalive{}
	m.Peers[0] = Peer{Addr: net.ParseIP("::1"), Port: 7075}
	m.Peers[3] = Peer{Addr: net.ParseIP("fe80::1"), Port: 54000}

	got, err := UnmarshalKeepalive(m.MarshalBinary())
	if err != nil {
		t.Fatal(err)
	}
	if got.Peers[0].Port != 7075 || !got.Peers[0].Addr.Equal(m.Peers[0].Addr) {
		t.Fatalf("slot 0 mismatch: %+v", got.Peers[0])
	}
	if got.Peers[3].Port != 54000 || !got.Peers[3].Addr.Equal(m.Peers[3].Addr) {
		t.Fatalf("slot 3 mismatch: %+v", got.Peers[3])
	}
	if got.Peers[1].Port != 0 || !got.Peers[1].Addr.Equal(net.IPv6zero) {
		t.Fatalf("expected unused slot zeroed, got %+v", got.Peers[1])
	}
}

func signedBlock(t *testing.T) *block.StateBlock {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	var acc numbers.Account
	copy(acc[:], pub)
	blk := &block.StateBlock{
		Account:        acc,
		CreationTime:   42,
		Representative: acc,
		Balance:        100,
	}
	blk.Sign(priv)
	return blk
}

func TestPublishRoundTrip(t *testing.T) {
	blk := signedBlock(t)
	m := &Publish{BlockType: BlockTypeState, Block: blk}

	got, err := UnmarshalPublish(m.MarshalBinary())
	if err != nil {
		t.Fatal(err)
	}
	if got.Block.Hash() != blk.Hash() {
		t.Fatalf("block hash mismatch after round trip")
	}
}

func TestConfirmAckHashesRoundTrip(t *testing.T) {
	blk := signedBlock(t)
	m := &ConfirmAck{
		BlockType: BlockTypeNotABlock,
		Account:   blk.Account,
		Sequence:  7,
		Hashes:    []numbers.Hash{blk.Hash(), {1, 2, 3}},
	}

	got, err := UnmarshalConfirmAck(m.MarshalBinary())
	if err != nil {
		t.Fatal(err)
	}
	if got.Sequence != 7 || len(got.Hashes) != 2 || got.Hashes[0] != blk.Hash() {
		t.Fatalf("got %+v", got)
	}
}

func TestConfirmAckBlockRoundTrip(t *testing.T) {
	blk := signedBlock(t)
	m := &ConfirmAck{BlockType: BlockTypeState, Account: blk.Account, Sequence: 1, Block: blk}

	got, err := UnmarshalConfirmAck(m.MarshalBinary())
	if err != nil {
		t.Fatal(err)
	}
	if got.Block == nil || got.Block.Hash() != blk.Hash() {
		t.Fatalf("got %+v", got)
	}
}

func TestFrontierReqRoundTrip(t *testing.T) {
	m := &FrontierReq{Start: numbers.Account{9}, Age: MaxFrontierAge, Count: MaxFrontierCount}
	got, err := UnmarshalFrontierReq(m.MarshalBinary())
	if err != nil {
		t.Fatal(err)
	}
	if got.Start != m.Start || got.Age != m.Age || got.Count != m.Count {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestBulkPullAccountRoundTrip(t *testing.T) {
	m := &BulkPullAccount{Account: numbers.Account{1}, MinAmount: 500, Mode: PullModePendingOnly}
	got, err := UnmarshalBulkPullAccount(m.MarshalBinary())
	if err != nil {
		t.Fatal(err)
	}
	if *got != *m {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestNodeIDHandshakeQueryOnly(t *testing.T) {
	h := NewHeader(params.NetworkTest, MessageNodeIDHandshake)
	h.Extensions = ExtQuery
	query := numbers.Hash{5}
	m := &NodeIDHandshake{Query: &query}

	got, err := UnmarshalNodeIDHandshake(h, m.MarshalBinary())
	if err != nil {
		t.Fatal(err)
	}
	if got.Query == nil || *got.Query != query {
		t.Fatalf("got %+v", got)
	}
	if got.Account != nil {
		t.Fatal("expected no account without ExtResponse")
	}
}

func TestNodeIDHandshakeQueryAndResponse(t *testing.T) {
	h := NewHeader(params.NetworkTest, MessageNodeIDHandshake)
	h.Extensions = ExtQuery | ExtResponse
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	var acc numbers.Account
	copy(acc[:], pub)
	query := numbers.Hash{7}
	sig := ed25519.Sign(priv, query[:])
	var sigArr numbers.Signature
	copy(sigArr[:], sig)

	m := &NodeIDHandshake{Query: &query, Account: &acc, Signature: &sigArr}
	got, err := UnmarshalNodeIDHandshake(h, m.MarshalBinary())
	if err != nil {
		t.Fatal(err)
	}
	if got.Account == nil || *got.Account != acc {
		t.Fatalf("got %+v", got)
	}
	if !ed25519.Verify(pub, query[:], got.Signature[:]) {
		t.Fatal("signature does not verify")
	}
}

func TestParseRejectsOversizedDatagram(t *testing.T) {
	buf := make([]byte, MaxDatagram+1)
	_, status := Parse(buf, nil)
	if status != ParseTooLarge {
		t.Fatalf("got %v, want too_large", status)
	}
}

func TestParsePublishHappyPath(t *testing.T) {
	blk := signedBlock(t)
	h := NewHeader(params.NetworkTest, MessagePublish)
	body := (&Publish{BlockType: BlockTypeState, Block: blk}).MarshalBinary()
	buf := append(h.MarshalBinary(), body...)

	msg, status := Parse(buf, nil)
	if status != ParseOK {
		t.Fatalf("got %v, want ok", status)
	}
	if msg.Publish == nil || msg.Publish.Block.Hash() != blk.Hash() {
		t.Fatalf("got %+v", msg)
	}
}

func TestParseInsufficientWorkRejectsPublish(t *testing.T) {
	blk := signedBlock(t)
	h := NewHeader(params.NetworkTest, MessagePublish)
	body := (&Publish{BlockType: BlockTypeState, Block: blk}).MarshalBinary()
	buf := append(h.MarshalBinary(), body...)

	_, status := Parse(buf, func(*block.StateBlock) bool { return false })
	if status != ParseInsufficientWork {
		t.Fatalf("got %v, want insufficient_work", status)
	}
}

func TestParseUnknownMessageType(t *testing.T) {
	h := NewHeader(params.NetworkTest, MessageType(0xff))
	_, status := Parse(h.MarshalBinary(), nil)
	if status != ParseInvalidMessageType {
		t.Fatalf("got %v, want invalid_message_type", status)
	}
}

func TestParseBulkPushBareHeader(t *testing.T) {
	h := NewHeader(params.NetworkTest, MessageBulkPush)
	msg, status := Parse(h.MarshalBinary(), nil)
	if status != ParseOK {
		t.Fatalf("got %v, want ok", status)
	}
	if msg.Publish != nil || msg.BulkPull != nil {
		t.Fatalf("expected bare bulk_push, got %+v", msg)
	}
}
