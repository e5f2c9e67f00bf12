// Package bootstrap implements the TCP frontier_req/bulk_pull/bulk_push
// engine (§4.8), grounded on core/connection_pool.go and core/network.go's
// Dialer, adapted from a generic pooled net.Conn abstraction to a client
// that speaks this chain's own wire framing end to end.
package bootstrap

import (
	"context"
	"fmt"
	"net"
	"time"

	"mikron/internal/block"
	"mikron/internal/numbers"
	"mikron/internal/params"
	"mikron/internal/wire"
)

// Dialer opens outbound bootstrap connections, mirroring
// core/network.go's Dialer but fixed to TCP, which is all the bootstrap
// stream ever uses.
type Dialer struct {
	Timeout   time.Duration
	KeepAlive time.Duration
}

// NewDialer returns a Dialer with the given timeout and TCP keepalive.
func NewDialer(timeout, keepAlive time.Duration) *Dialer {
	return &Dialer{Timeout: timeout, KeepAlive: keepAlive}
}

// Dial connects to address over TCP.
func (d *Dialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: dial %s: %w", address, err)
	}
	return conn, nil
}

// Client owns one TCP connection to a bootstrap peer and tracks the
// throughput the attempt's adaptive pruning needs (§4.8 step 2).
type Client struct {
	conn    net.Conn
	network params.Network

	connectedAt  time.Time
	blocksPulled int
	stop         chan struct{}
	stopped      bool
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, network params.Network) *Client {
	return &Client{conn: conn, network: network, connectedAt: time.Now(), stop: make(chan struct{})}
}

// Stop cooperatively signals the client to wind down; ForceStop additionally
// closes the socket to unblock any in-flight read (§5 cancellation rule).
func (c *Client) Stop() {
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.stop)
}

// ForceStop stops the client and closes its socket immediately.
func (c *Client) ForceStop() {
	c.Stop()
	c.conn.Close()
}

// Elapsed reports how long this client has been connected, used by the
// pool's "warmed up" check (§4.8 step 2).
func (c *Client) Elapsed() time.Duration { return time.Since(c.connectedAt) }

// BlocksPerSecond reports this client's observed throughput.
func (c *Client) BlocksPerSecond() float64 {
	elapsed := c.Elapsed().Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(c.blocksPulled) / elapsed
}

func (c *Client) writeMessage(mt wire.MessageType, body []byte) error {
	header := wire.NewHeader(c.network, mt)
	if _, err := c.conn.Write(header.MarshalBinary()); err != nil {
		return err
	}
	_, err := c.conn.Write(body)
	return err
}

// RequestFrontiers sends a frontier_req and returns a channel yielding
// (account, head) pairs until the peer closes the stream with an all-zero
// (account, head) pair or the client is stopped.
func (c *Client) RequestFrontiers(req *wire.FrontierReq) (<-chan Frontier, error) {
	if err := c.writeMessage(wire.MessageFrontierReq, req.MarshalBinary()); err != nil {
		return nil, err
	}
	out := make(chan Frontier)
	go func() {
		defer close(out)
		buf := make([]byte, 32)
		for {
			select {
			case <-c.stop:
				return
			default:
			}
			if _, err := readFull(c.conn, buf[:32]); err != nil {
				return
			}
			var account numbers.Account
			copy(account[:], buf)
			var head numbers.Hash
			if _, err := readFull(c.conn, head[:]); err != nil {
				return
			}
			if account.IsZero() && head.IsZero() {
				return
			}
			select {
			case out <- Frontier{Account: account, Head: head}:
			case <-c.stop:
				return
			}
		}
	}()
	return out, nil
}

// Frontier is one (account, head) pair reported by a frontier_req response.
type Frontier struct {
	Account numbers.Account
	Head    numbers.Hash
}

// PullAccount requests account's chain from start down to its open block and
// streams back blocks until the peer sends the not_a_block sentinel.
func (c *Client) PullAccount(account numbers.Account, start numbers.Hash) (<-chan *block.StateBlock, error) {
	req := &wire.BulkPull{Account: account, Start: start}
	if err := c.writeMessage(wire.MessageBulkPull, req.MarshalBinary()); err != nil {
		return nil, err
	}
	out := make(chan *block.StateBlock)
	go func() {
		defer close(out)
		for {
			select {
			case <-c.stop:
				return
			default:
			}
			tag := make([]byte, 1)
			if _, err := readFull(c.conn, tag); err != nil {
				return
			}
			if wire.BlockType(tag[0]) == wire.BlockTypeNotABlock {
				return
			}
			raw := make([]byte, block.Size)
			if _, err := readFull(c.conn, raw); err != nil {
				return
			}
			blk, err := block.Deserialize(raw)
			if err != nil {
				return
			}
			c.blocksPulled++
			select {
			case out <- blk:
			case <-c.stop:
				return
			}
		}
	}()
	return out, nil
}

// StartPush opens a bulk_push stream with a single header; every block
// pushed afterward (PushBlock) and the closing sentinel (PushDone) ride the
// same connection without repeating it, per §6.2's "single socket" framing.
func (c *Client) StartPush() error {
	return c.writeMessage(wire.MessageBulkPush, nil)
}

// PushBlock sends one locally-held block to the peer as part of an
// already-opened bulk_push stream (§4.8 step 5).
func (c *Client) PushBlock(blk *block.StateBlock) error {
	_, err := c.conn.Write(append([]byte{byte(wire.BlockTypeState)}, blk.Serialize()...))
	return err
}

// PushDone sends the not_a_block sentinel closing a bulk_push stream.
func (c *Client) PushDone() error {
	_, err := c.conn.Write([]byte{byte(wire.BlockTypeNotABlock)})
	return err
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
