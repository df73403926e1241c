package ledger

import (
	"fmt"

	"Lingua/internal/subnet"
)

// Eligibility decides whether a registered module is evaluated as a miner.
type Eligibility func(subnet.Miner) bool

// EligibleAll accepts every module.
func EligibleAll(subnet.Miner) bool { return true }

// EligibleIncentive accepts modules whose incentive exceeds their dividends.
func EligibleIncentive(m subnet.Miner) bool { return m.Incentive > m.Dividends }

// EligibleIncentiveOrIdle also accepts modules with no incentive and no
// dividends, so newly registered miners get evaluated.
func EligibleIncentiveOrIdle(m subnet.Miner) bool {
	return (m.Incentive == 0 && m.Dividends == 0) || m.Incentive > m.Dividends
}

// ParseEligibility returns the predicate for a policy name.
func ParseEligibility(name string) (Eligibility, error) {
	switch name {
	case "all":
		return EligibleAll, nil
	case "incentive":
		return EligibleIncentive, nil
	case "incentive-or-idle", "":
		return EligibleIncentiveOrIdle, nil
	default:
		return nil, fmt.Errorf("unknown eligibility policy %q", name)
	}
}

// FilterMiners keeps eligible modules other than self, in input order.
func FilterMiners(miners []subnet.Miner, eligible Eligibility, self subnet.UID) []subnet.Miner {
	out := make([]subnet.Miner, 0, len(miners))

	for _, m := range miners {
		if m.UID == self || !eligible(m) {
			continue
		}

		out = append(out, m)
	}

	return out
}
