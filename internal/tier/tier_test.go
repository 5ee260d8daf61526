package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pertamax98/bot-vpn/types"
)

func TestForCommissionBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		want  types.Tier
	}{
		{"zero", 0, types.TierSilver},
		{"just below gold", 49999, types.TierSilver},
		{"gold threshold", 50000, types.TierGold},
		{"just below platinum", 79999, types.TierGold},
		{"platinum threshold", 80000, types.TierPlatinum},
		{"far above platinum", 1_000_000, types.TierPlatinum},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ForCommission(tc.total))
		})
	}
}

func TestForCommissionMonotonic(t *testing.T) {
	prev := ForCommission(0)
	for total := int64(0); total <= 100000; total += 500 {
		cur := ForCommission(total)
		assert.False(t, rank[cur] < rank[prev], "tier dropped at total=%d", total)
		prev = cur
	}
}

func TestThresholdsOverride(t *testing.T) {
	th := Thresholds{Gold: 1000, Platinum: 2000}
	assert.Equal(t, types.TierSilver, th.ForCommission(999))
	assert.Equal(t, types.TierGold, th.ForCommission(1000))
	assert.Equal(t, types.TierPlatinum, th.ForCommission(2000))
}

func TestThresholdsZeroValueUsesDefaults(t *testing.T) {
	var th Thresholds
	assert.Equal(t, types.TierSilver, th.ForCommission(GoldThreshold-1))
	assert.Equal(t, types.TierGold, th.ForCommission(GoldThreshold))
	assert.Equal(t, types.TierPlatinum, th.ForCommission(PlatinumThreshold))
}

func TestDiscount(t *testing.T) {
	assert.Equal(t, 0.0, Discount(types.RoleUser, types.TierSilver))
	assert.Equal(t, 0.0, Discount(types.RoleAdmin, types.TierPlatinum))
	assert.Equal(t, 0.10, Discount(types.RoleReseller, types.TierSilver))
	assert.Equal(t, 0.20, Discount(types.RoleReseller, types.TierGold))
	assert.Equal(t, 0.30, Discount(types.RoleReseller, types.TierPlatinum))
}

func TestIsUpgrade(t *testing.T) {
	assert.True(t, IsUpgrade(types.TierSilver, types.TierGold))
	assert.True(t, IsUpgrade(types.TierGold, types.TierPlatinum))
	assert.False(t, IsUpgrade(types.TierPlatinum, types.TierSilver))
	assert.False(t, IsUpgrade(types.TierGold, types.TierGold))
}
