package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"Lingua/internal/httpjson"
	"Lingua/internal/logger"
	"Lingua/internal/subnet"
)

// HTTPGateway reaches the ledger through one of several JSON endpoints.
type HTTPGateway struct {
	endpoints []string     // endpoints are the interchangeable ledger nodes
	client    *http.Client // client carries the request timeout

	current int        // current indexes the endpoint in use
	rng     *rand.Rand // rng picks reconnection targets
	mu      sync.Mutex // mu guards current and rng
}

// NewHTTPGateway creates a gateway starting on a random endpoint.
func NewHTTPGateway(endpoints []string, timeout time.Duration) (*HTTPGateway, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("at least one ledger endpoint is required")
	}

	clean := make([]string, len(endpoints))
	for i, e := range endpoints {
		clean[i] = strings.TrimRight(e, "/")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	return &HTTPGateway{
		endpoints: clean,
		client:    &http.Client{Timeout: timeout},
		current:   rng.Intn(len(clean)),
		rng:       rng,
	}, nil
}

// Endpoint returns the endpoint currently in use.
func (g *HTTPGateway) Endpoint() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.endpoints[g.current]
}

// Reconnect switches to a different endpoint when more than one is known
// and drops pooled connections.
func (g *HTTPGateway) Reconnect() error {
	g.mu.Lock()
	if n := len(g.endpoints); n > 1 {
		next := g.rng.Intn(n - 1)
		if next >= g.current {
			next++
		}
		g.current = next
	}
	endpoint := g.endpoints[g.current]
	g.mu.Unlock()

	g.client.CloseIdleConnections()
	logger.Info("ledger connection refreshed", "endpoint", endpoint)

	return nil
}

// moduleInfo is one registry entry as served by the ledger.
type moduleInfo struct {
	UID       uint16  `json:"uid"`
	Address   string  `json:"address"`
	Key       string  `json:"key"`
	Incentive float64 `json:"incentive"`
	Dividends float64 `json:"dividends"`
}

// ListRegisteredMiners calls GET /subnets/{id}/modules.
// Unparseable addresses are left empty so dispatch skips the miner.
func (g *HTTPGateway) ListRegisteredMiners(ctx context.Context, subnetID uint16) ([]subnet.Miner, error) {
	var modules []moduleInfo
	if err := httpjson.Get(ctx, g.client, g.url("/subnets/%d/modules", subnetID), &modules); err != nil {
		return nil, fmt.Errorf("list modules:\n%w", err)
	}

	miners := make([]subnet.Miner, 0, len(modules))

	for _, m := range modules {
		addr, err := subnet.ExtractAddress(m.Address)
		if err != nil {
			logger.Debug("module address unusable", "uid", m.UID, "raw", m.Address)
		}

		miners = append(miners, subnet.Miner{
			UID:       subnet.UID(m.UID),
			Address:   addr,
			Key:       m.Key,
			Incentive: m.Incentive,
			Dividends: m.Dividends,
		})
	}

	return miners, nil
}

// ResolveKeyMap calls GET /subnets/{id}/keys.
func (g *HTTPGateway) ResolveKeyMap(ctx context.Context, subnetID uint16) (map[subnet.UID]string, error) {
	var raw map[string]string
	if err := httpjson.Get(ctx, g.client, g.url("/subnets/%d/keys", subnetID), &raw); err != nil {
		return nil, fmt.Errorf("resolve keys:\n%w", err)
	}

	keys := make(map[subnet.UID]string, len(raw))

	for k, v := range raw {
		uid, err := strconv.ParseUint(k, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid uid %q in key map:\n%w", k, err)
		}

		keys[subnet.UID(uid)] = v
	}

	return keys, nil
}

// voteRequest is the JSON body of a vote submission.
type voteRequest struct {
	UIDs         []subnet.UID `json:"uids"`
	Weights      []uint16     `json:"weights"`
	Voter        string       `json:"voter"`
	Signature    string       `json:"signature"`
	BLSPublicKey string       `json:"bls_public_key"`
	BLSSignature string       `json:"bls_signature"`
}

// SubmitWeightVote calls POST /subnets/{id}/votes.
func (g *HTTPGateway) SubmitWeightVote(ctx context.Context, signer *Signer, uids []subnet.UID, weights []uint16, subnetID uint16) error {
	vote, err := signer.SignVote(subnetID, uids, weights)
	if err != nil {
		return fmt.Errorf("sign vote:\n%w", err)
	}

	body := voteRequest{
		UIDs:         vote.UIDs,
		Weights:      vote.Weights,
		Voter:        hex.EncodeToString(vote.Voter),
		Signature:    hex.EncodeToString(vote.Signature),
		BLSPublicKey: hex.EncodeToString(vote.BLSPublicKey),
		BLSSignature: hex.EncodeToString(vote.BLSSignature),
	}

	if err := httpjson.PostJSON(ctx, g.client, g.url("/subnets/%d/votes", subnetID), body, nil); err != nil {
		return fmt.Errorf("submit vote:\n%w", err)
	}

	return nil
}

// CurrentBlockHeight calls GET /block.
func (g *HTTPGateway) CurrentBlockHeight(ctx context.Context) (uint64, error) {
	var reply struct {
		Height uint64 `json:"height"`
	}

	if err := httpjson.Get(ctx, g.client, g.url("/block"), &reply); err != nil {
		return 0, fmt.Errorf("block height:\n%w", err)
	}

	return reply.Height, nil
}

// url formats a path against the current endpoint.
func (g *HTTPGateway) url(format string, args ...any) string {
	return g.Endpoint() + fmt.Sprintf(format, args...)
}
