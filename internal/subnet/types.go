// Package subnet holds the domain types shared by the validator's round engine.
package subnet

import (
	"time"
)

// UID is a miner's slot number in the subnet registry.
type UID uint16

// Miner is a registered module as seen in the ledger directory.
// It is refreshed every round and never persisted on its own.
type Miner struct {
	UID       UID     // UID is the registry slot
	Address   string  // Address is the dialable "ip:port", empty if unusable
	Key       string  // Key is the miner's registered public key
	Incentive float64 // Incentive is the ledger's incentive value for the module
	Dividends float64 // Dividends is the ledger's dividends value for the module
}

// Prompt is the translation task sent to every miner of a round.
type Prompt struct {
	Text           string // Text is the source text to translate
	SourceLanguage string // SourceLanguage is the ISO 639-1 code of Text
	TargetLanguage string // TargetLanguage is the requested output language
}

// Response is one miner's answer to a prompt.
// A zero Response with Received=false is the invalid sentinel.
type Response struct {
	UID      UID           // UID identifies the responding miner
	Answer   string        // Answer is the translated text
	Received bool          // Received is false on timeout, transport or decode failure
	Elapsed  time.Duration // Elapsed is the wall time of the call
}

// ScoreRecord is the scoring outcome for one response.
type ScoreRecord struct {
	UID       UID                // UID identifies the scored miner
	Composite float64            // Composite is the final score in [0,1]
	Metrics   map[string]float64 // Metrics holds the raw metric values by name
}

// UIDs returns the UIDs of the given miners in order.
func UIDs(miners []Miner) []UID {
	uids := make([]UID, len(miners))
	for i, m := range miners {
		uids[i] = m.UID
	}

	return uids
}
