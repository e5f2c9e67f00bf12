package gossip

import (
	"net"
	"net/netip"
	"time"

	"github.com/sirupsen/logrus"

	"mikron/internal/block"
	"mikron/internal/diag"
	"mikron/internal/params"
	"mikron/internal/vote"
	"mikron/internal/wire"
)

var log = logrus.WithField("component", "gossip")

// BlockSink receives blocks arriving over publish/confirm_req, handing them
// to the block processor's admission queue (§4.9). Network never calls
// ledger admission itself.
type BlockSink interface {
	Submit(blk *block.StateBlock, arrival time.Time)
}

// VoteSink receives confirm_ack payloads, handing them to the vote manager.
type VoteSink interface {
	Submit(v *vote.Vote) (vote.Code, error)
}

// republishFanout is how many peers a republished block is sent to (§4.7's
// "selects K peers").
const republishFanout = 8

// keepaliveInterval is how often this node floods a keepalive to a sample
// of its peer table (§4.7).
const keepaliveInterval = 15 * time.Second

// Network drives the UDP gossip socket: it floods keepalives, dispatches
// inbound publish/confirm_req to a BlockSink and confirm_ack to a VoteSink,
// and republishes freshly admitted blocks.
type Network struct {
	conn    *net.UDPConn
	network params.Network
	peers   *PeerTable
	blocks  BlockSink
	votes   VoteSink
	self    netip.AddrPort
	metrics *diag.Registry

	stop chan struct{}
	done chan struct{}
}

// NewNetwork binds a UDP socket at listenAddr and wires it to blocks/votes.
// metrics may be nil, in which case the network publishes nothing to
// Prometheus.
func NewNetwork(listenAddr string, p params.Network, peers *PeerTable, blocks BlockSink, votes VoteSink, metrics *diag.Registry) (*Network, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	n := &Network{
		conn:    conn,
		network: p,
		peers:   peers,
		blocks:  blocks,
		votes:   votes,
		metrics: metrics,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if ap, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		if addr, ok := netip.AddrFromSlice(ap.IP); ok {
			n.self = netip.AddrPortFrom(addr, uint16(ap.Port))
		}
	}
	return n, nil
}

// Run drives the receive loop and the keepalive flood until Stop is called.
// It is meant to be launched in its own goroutine.
func (n *Network) Run() {
	defer close(n.done)
	go n.keepaliveLoop()

	buf := make([]byte, wire.MaxDatagram)
	for {
		n.conn.SetReadDeadline(time.Now().Add(time.Second))
		size, addr, err := n.conn.ReadFromUDP(buf)
		select {
		case <-n.stop:
			return
		default:
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			log.WithError(err).Warn("udp read failed")
			continue
		}
		n.handle(buf[:size], addr)
	}
}

// Stop closes the socket and waits for Run to exit.
func (n *Network) Stop() {
	close(n.stop)
	n.conn.Close()
	<-n.done
}

func (n *Network) handle(buf []byte, from *net.UDPAddr) {
	msg, status := wire.Parse(buf, nil)
	if status != wire.ParseOK {
		log.WithField("status", status).Debug("dropping malformed datagram")
		return
	}
	addr, ok := netip.AddrFromSlice(from.IP)
	if !ok {
		return
	}
	endpoint := netip.AddrPortFrom(addr, uint16(from.Port))
	n.peers.Upsert(endpoint, msg.Header.VersionMax, nil)

	switch {
	case msg.Keepalive != nil:
		// peer presence already recorded above; nothing further to do.
	case msg.Publish != nil && n.blocks != nil:
		n.blocks.Submit(msg.Publish.Block, time.Now())
	case msg.ConfirmReq != nil && n.blocks != nil:
		n.blocks.Submit(msg.ConfirmReq.Block, time.Now())
	case msg.ConfirmAck != nil && n.votes != nil:
		v := confirmAckToVote(msg.ConfirmAck)
		if _, err := n.votes.Submit(v); err != nil {
			log.WithError(err).Debug("vote submit failed")
		}
	}
}

func confirmAckToVote(ack *wire.ConfirmAck) *vote.Vote {
	v := &vote.Vote{Account: ack.Account, Signature: ack.Signature, Sequence: ack.Sequence, Hashes: ack.Hashes}
	if ack.Block != nil {
		v.Block = ack.Block
	}
	return v
}

func (n *Network) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			n.floodKeepalive()
			if n.metrics != nil {
				n.metrics.PeerCount.Set(float64(n.peers.Len()))
			}
		}
	}
}

func (n *Network) floodKeepalive() {
	sample := n.peers.Random(republishFanout)
	slots := keepaliveSlots(n.peers.Random(wire.KeepalivePeers))
	body := (&wire.Keepalive{Peers: slots}).MarshalBinary()
	header := wire.NewHeader(n.network, wire.MessageKeepalive)
	payload := append(header.MarshalBinary(), body...)
	for _, p := range sample {
		n.send(payload, p.Endpoint)
	}
}

// RepublishBlock serializes blk and sends it to republishFanout peers
// weighted toward higher rep weight (§4.7).
func (n *Network) RepublishBlock(blk *block.StateBlock) {
	header := wire.NewHeader(n.network, wire.MessagePublish)
	body := (&wire.Publish{BlockType: wire.BlockTypeState, Block: blk}).MarshalBinary()
	payload := append(header.MarshalBinary(), body...)
	for _, p := range n.peers.SampleWeighted(republishFanout) {
		n.send(payload, p.Endpoint)
	}
}

// SendConfirmAck emits a vote to a single peer, e.g. in direct response to a
// confirm_req.
func (n *Network) SendConfirmAck(to netip.AddrPort, v *vote.Vote) {
	header := wire.NewHeader(n.network, wire.MessageConfirmAck)
	ack := &wire.ConfirmAck{Account: v.Account, Signature: v.Signature, Sequence: v.Sequence}
	if v.Block != nil {
		ack.BlockType = wire.BlockTypeState
		if blk, ok := v.Block.(*block.StateBlock); ok {
			ack.Block = blk
		}
	} else {
		ack.BlockType = wire.BlockTypeNotABlock
		ack.Hashes = v.Hashes
	}
	payload := append(header.MarshalBinary(), ack.MarshalBinary()...)
	n.send(payload, to)
}

func (n *Network) send(payload []byte, to netip.AddrPort) {
	addr := net.UDPAddrFromAddrPort(to)
	if _, err := n.conn.WriteToUDP(payload, addr); err != nil {
		log.WithError(err).WithField("peer", to).Debug("send failed")
	}
}
