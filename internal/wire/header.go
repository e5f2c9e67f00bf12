// Package wire implements the fixed 8-byte datagram header and the typed
// message bodies carried over both the UDP gossip socket and the TCP
// bootstrap stream (§4.6).
package wire

import (
	"encoding/binary"
	"errors"

	"mikron/internal/params"
)

// MessageType identifies the body that follows a Header.
type MessageType uint8

const (
	MessageKeepalive         MessageType = 0x02
	MessagePublish           MessageType = 0x03
	MessageConfirmReq        MessageType = 0x04
	MessageConfirmAck        MessageType = 0x05
	MessageBulkPull          MessageType = 0x06
	MessageBulkPush          MessageType = 0x07
	MessageFrontierReq       MessageType = 0x08
	MessageBulkPullBlocks    MessageType = 0x09
	MessageNodeIDHandshake   MessageType = 0x0a
	MessageBulkPullAccount   MessageType = 0x0b
)

// Extension bits, packed into the header's 16-bit extensions field.
const (
	ExtQuery          uint16 = 1 << 0
	ExtResponse       uint16 = 1 << 1
	ExtFullNode       uint16 = 1 << 2
	ExtValidatingNode uint16 = 1 << 3
)

// ProtocolVersion is the current protocol version this node speaks.
const ProtocolVersion = 1

// HeaderSize is the fixed on-wire size of Header.
const HeaderSize = 8

// MaxDatagram is the largest UDP payload this implementation will attempt
// to parse; anything larger is dropped before decoding begins (§6.1).
const MaxDatagram = 508

// Header is the 8-byte prelude common to every message (§4.6).
type Header struct {
	Magic         [2]byte
	Version       uint8
	VersionMin    uint8
	VersionMax    uint8
	MessageType   MessageType
	Extensions    uint16
}

// NewHeader builds a header stamped with network's magic and the current
// protocol version range.
func NewHeader(network params.Network, mt MessageType) Header {
	return Header{
		Magic:       network.Magic(),
		Version:     ProtocolVersion,
		VersionMin:  ProtocolVersion,
		VersionMax:  ProtocolVersion,
		MessageType: mt,
	}
}

// MarshalBinary encodes h into its fixed 8-byte wire form.
func (h Header) MarshalBinary() []byte {
	buf := make([]byte, HeaderSize)
	buf[0], buf[1] = h.Magic[0], h.Magic[1]
	buf[2] = h.Version
	buf[3] = h.VersionMin
	buf[4] = h.VersionMax
	buf[5] = byte(h.MessageType)
	binary.BigEndian.PutUint16(buf[6:], h.Extensions)
	return buf
}

// ErrTruncatedHeader is returned when fewer than HeaderSize bytes are given.
var ErrTruncatedHeader = errors.New("wire: truncated header")

// UnmarshalHeader decodes the first HeaderSize bytes of buf.
func UnmarshalHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrTruncatedHeader
	}
	return Header{
		Magic:       [2]byte{buf[0], buf[1]},
		Version:     buf[2],
		VersionMin:  buf[3],
		VersionMax:  buf[4],
		MessageType: MessageType(buf[5]),
		Extensions:  binary.BigEndian.Uint16(buf[6:8]),
	}, nil
}

func (h Header) hasExt(bit uint16) bool { return h.Extensions&bit != 0 }
