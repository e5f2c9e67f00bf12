package wire

import "mikron/internal/block"

// ParseStatus classifies the outcome of Parse, mirroring the granularity
// the gossip and bootstrap layers need to decide whether a peer is merely
// behind or actively misbehaving (§4.6).
type ParseStatus uint8

const (
	ParseOK ParseStatus = iota
	ParseTooLarge
	ParseInsufficientWork
	ParseInvalidHeader
	ParseInvalidMessageType
	ParseInvalidBody
)

func (s ParseStatus) String() string {
	switch s {
	case ParseOK:
		return "ok"
	case ParseTooLarge:
		return "too_large"
	case ParseInsufficientWork:
		return "insufficient_work"
	case ParseInvalidHeader:
		return "invalid_header"
	case ParseInvalidMessageType:
		return "invalid_message_type"
	case ParseInvalidBody:
		return "invalid_body"
	default:
		return "unknown"
	}
}

// WorkChecker validates the proof-of-work nonce attached to a block before
// Parse hands it to a caller; generating and scoring that nonce is an
// external collaborator's concern (§1), so Parse only ever calls one it is
// given. A nil checker skips the check entirely, which bootstrap stream
// parsing (blocks carry no live work requirement during a pull) relies on.
type WorkChecker func(blk *block.StateBlock) bool

// Message is the decoded envelope Parse returns: Header plus exactly one
// populated body field selected by Header.MessageType.
type Message struct {
	Header            Header
	Keepalive         *Keepalive
	Publish           *Publish
	ConfirmReq        *ConfirmReq
	ConfirmAck        *ConfirmAck
	FrontierReq       *FrontierReq
	BulkPull          *BulkPull
	BulkPullAccount   *BulkPullAccount
	BulkPullBlocks    *BulkPullBlocks
	NodeIDHandshake   *NodeIDHandshake
}

// Parse decodes a datagram: it enforces the MaxDatagram cap, decodes the
// header, and dispatches to the matching body decoder. bulk_push carries no
// body of its own; it is a bare header that puts the bootstrap stream into
// push mode, so it decodes to a Message with every body field nil. checkWork
// is consulted for publish and confirm_req bodies, the only ones carrying a
// freshly-minted block whose work has not yet been validated by admission;
// pass nil to skip the check (the bootstrap TCP path does, per WorkChecker).
func Parse(buf []byte, checkWork WorkChecker) (*Message, ParseStatus) {
	if len(buf) > MaxDatagram {
		return nil, ParseTooLarge
	}
	h, err := UnmarshalHeader(buf)
	if err != nil {
		return nil, ParseInvalidHeader
	}
	body := buf[HeaderSize:]
	msg := &Message{Header: h}

	switch h.MessageType {
	case MessageKeepalive:
		ka, err := UnmarshalKeepalive(body)
		if err != nil {
			return nil, ParseInvalidBody
		}
		msg.Keepalive = ka
	case MessagePublish:
		p, err := UnmarshalPublish(body)
		if err != nil {
			return nil, ParseInvalidBody
		}
		msg.Publish = p
	case MessageConfirmReq:
		r, err := UnmarshalConfirmReq(body)
		if err != nil {
			return nil, ParseInvalidBody
		}
		msg.ConfirmReq = r
	case MessageConfirmAck:
		a, err := UnmarshalConfirmAck(body)
		if err != nil {
			return nil, ParseInvalidBody
		}
		msg.ConfirmAck = a
	case MessageFrontierReq:
		f, err := UnmarshalFrontierReq(body)
		if err != nil {
			return nil, ParseInvalidBody
		}
		msg.FrontierReq = f
	case MessageBulkPull:
		p, err := UnmarshalBulkPull(body)
		if err != nil {
			return nil, ParseInvalidBody
		}
		msg.BulkPull = p
	case MessageBulkPullAccount:
		p, err := UnmarshalBulkPullAccount(body)
		if err != nil {
			return nil, ParseInvalidBody
		}
		msg.BulkPullAccount = p
	case MessageBulkPullBlocks:
		p, err := UnmarshalBulkPullBlocks(body)
		if err != nil {
			return nil, ParseInvalidBody
		}
		msg.BulkPullBlocks = p
	case MessageBulkPush:
		// bare header, no body.
	case MessageNodeIDHandshake:
		n, err := UnmarshalNodeIDHandshake(h, body)
		if err != nil {
			return nil, ParseInvalidBody
		}
		msg.NodeIDHandshake = n
	default:
		return nil, ParseInvalidMessageType
	}

	if checkWork != nil {
		if msg.Publish != nil && !checkWork(msg.Publish.Block) {
			return nil, ParseInsufficientWork
		}
		if msg.ConfirmReq != nil && !checkWork(msg.ConfirmReq.Block) {
			return nil, ParseInsufficientWork
		}
	}
	return msg, ParseOK
}
