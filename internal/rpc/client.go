package rpc

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"Lingua/internal/network"
	"Lingua/internal/subnet"
)

// defaultCallTimeout caps a call when the caller's context has no deadline.
const defaultCallTimeout = 20 * time.Second

// Client issues miner calls over a QUIC node.
type Client struct {
	node  *network.Node // node owns the cached miner connections
	codec *codec        // codec frames and compresses payloads
}

// NewClient creates a miner RPC client on top of node.
func NewClient(node *network.Node) (*Client, error) {
	c, err := newCodec()
	if err != nil {
		return nil, fmt.Errorf("create codec:\n%w", err)
	}

	return &Client{node: node, codec: c}, nil
}

// Close releases codec resources. The node is owned by the caller.
func (c *Client) Close() {
	c.codec.close()
}

// Generate sends the prompt to a miner and returns its translation.
func (c *Client) Generate(ctx context.Context, miner subnet.Miner, p subnet.Prompt) (string, error) {
	timeout := defaultCallTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	reply, err := c.call(ctx, miner, c.codec.encode(kindGenerate, buildGenerateRequest(p, timeout)))
	if err != nil {
		return "", err
	}

	payload, err := c.codec.decode(reply, kindGenerateResult)
	if err != nil {
		return "", err
	}

	return parseGenerateResponse(payload)
}

// Score reports a miner's score and returns its acknowledgement.
func (c *Client) Score(ctx context.Context, miner subnet.Miner, rec subnet.ScoreRecord) (bool, error) {
	reply, err := c.call(ctx, miner, c.codec.encode(kindScore, buildScoreReport(rec, metricNames(rec))))
	if err != nil {
		return false, err
	}

	payload, err := c.codec.decode(reply, kindScoreAck)
	if err != nil {
		return false, err
	}

	return parseScoreAck(payload)
}

// call dials the miner and performs one request.
// Transport failures evict the connection so the next round redials.
func (c *Client) call(ctx context.Context, miner subnet.Miner, frame []byte) ([]byte, error) {
	peer, err := c.node.Dial(ctx, miner.Address, pinnedKey(miner.Key))
	if err != nil {
		return nil, fmt.Errorf("connect uid %d:\n%w", miner.UID, err)
	}

	reply, err := peer.Request(ctx, frame)
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			c.node.Evict(peer)
		}

		return nil, fmt.Errorf("call uid %d:\n%w", miner.UID, err)
	}

	return reply, nil
}

// pinnedKey returns the miner's ed25519 key when the registry holds a
// hex-encoded one. Other key formats are not pinned.
func pinnedKey(key string) ed25519.PublicKey {
	raw, err := hex.DecodeString(key)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil
	}

	return ed25519.PublicKey(raw)
}

// metricNames returns the record's metric names in a stable order.
func metricNames(rec subnet.ScoreRecord) []string {
	names := make([]string, 0, len(rec.Metrics))
	for name := range rec.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
