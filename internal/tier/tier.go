// Package tier maps cumulative reseller commission to a tier and a
// discount. Thresholds are inclusive lower bounds with no gaps, so the
// mapping is monotonic in the commission total.
package tier

import "github.com/pertamax98/bot-vpn/types"

const (
	GoldThreshold     int64 = 50000
	PlatinumThreshold int64 = 80000
)

// Thresholds are the inclusive commission totals at which a reseller moves
// up a tier. Zero or negative fields fall back to the defaults above, so
// the zero value behaves like DefaultThresholds().
type Thresholds struct {
	Gold     int64
	Platinum int64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Gold: GoldThreshold, Platinum: PlatinumThreshold}
}

func (th Thresholds) ForCommission(totalCommission int64) types.Tier {
	if th.Gold <= 0 {
		th.Gold = GoldThreshold
	}
	if th.Platinum <= 0 {
		th.Platinum = PlatinumThreshold
	}
	switch {
	case totalCommission >= th.Platinum:
		return types.TierPlatinum
	case totalCommission >= th.Gold:
		return types.TierGold
	default:
		return types.TierSilver
	}
}

func ForCommission(totalCommission int64) types.Tier {
	return DefaultThresholds().ForCommission(totalCommission)
}

// Discount is the fraction taken off the server's daily price for a
// reseller at the given tier. Non-resellers pay full price.
func Discount(role types.Role, t types.Tier) float64 {
	if role != types.RoleReseller {
		return 0
	}
	switch t {
	case types.TierPlatinum:
		return 0.30
	case types.TierGold:
		return 0.20
	default:
		return 0.10
	}
}

var rank = map[types.Tier]int{
	types.TierSilver:   1,
	types.TierGold:     2,
	types.TierPlatinum: 3,
}

// IsUpgrade reports whether moving from to next is a promotion rather than
// a demotion (a monthly reset drops tiers).
func IsUpgrade(from, to types.Tier) bool {
	return rank[to] > rank[from]
}
