// Package ledger talks to the chain that holds the subnet registry and
// receives weight votes.
package ledger

import (
	"context"
	"errors"

	"Lingua/internal/subnet"
)

// ErrVoteFailed is returned when a vote fails after its single retry.
var ErrVoteFailed = errors.New("weight vote failed")

// Gateway is the validator's view of the ledger.
type Gateway interface {
	// ListRegisteredMiners returns every module registered on the subnet.
	ListRegisteredMiners(ctx context.Context, subnetID uint16) ([]subnet.Miner, error)

	// ResolveKeyMap returns the registered key of every uid on the subnet.
	ResolveKeyMap(ctx context.Context, subnetID uint16) (map[subnet.UID]string, error)

	// SubmitWeightVote signs and submits the vote.
	SubmitWeightVote(ctx context.Context, signer *Signer, uids []subnet.UID, weights []uint16, subnetID uint16) error

	// CurrentBlockHeight returns the latest block number.
	CurrentBlockHeight(ctx context.Context) (uint64, error)
}

// Reconnector is implemented by gateways that can switch to a fresh
// connection after a failure.
type Reconnector interface {
	Reconnect() error
}

// SelfUID finds the uid registered under key.
func SelfUID(keyMap map[subnet.UID]string, key string) (subnet.UID, bool) {
	for uid, k := range keyMap {
		if k == key {
			return uid, true
		}
	}

	return 0, false
}
