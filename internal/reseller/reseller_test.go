package reseller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pertamax98/bot-vpn/internal/tier"
	"github.com/pertamax98/bot-vpn/store"
	"github.com/pertamax98/bot-vpn/types"
)

func newResellerStore(t *testing.T, id int64) *store.MemStore {
	t.Helper()
	ms := store.NewMemStore()
	ctx := context.Background()
	require.NoError(t, ms.UpsertUser(ctx, id, "agen"))
	require.NoError(t, ms.SetRole(ctx, id, types.RoleReseller, types.TierSilver))
	return ms
}

func TestCommissionRoundsDown(t *testing.T) {
	svc := NewService(nil, nil, nil, 0.10, 50000, tier.DefaultThresholds())
	assert.Equal(t, int64(500), svc.Commission(5000))
	assert.Equal(t, int64(99), svc.Commission(999))
	assert.Equal(t, int64(0), svc.Commission(9))
}

func TestRecordSaleCreditsAndAccumulates(t *testing.T) {
	ms := newResellerStore(t, 10)
	svc := NewService(ms, ms, ms, 0.10, 50000, tier.DefaultThresholds())
	ctx := context.Background()

	res, err := svc.RecordSale(ctx, 10, 10, types.ProtocolSSH, "budi", 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(500), res.Commission)
	assert.Equal(t, int64(500), res.NewBalance)
	assert.Equal(t, int64(500), res.TotalCommission)
	assert.Equal(t, types.TierSilver, res.NewTier)
	assert.False(t, res.Promoted)

	res, err = svc.RecordSale(ctx, 10, 10, types.ProtocolVMess, "sari", 30000)
	require.NoError(t, err)
	assert.Equal(t, int64(3500), res.TotalCommission)
	assert.Len(t, ms.Sales(), 2)
}

func TestRecordSalePromotesOnThreshold(t *testing.T) {
	ms := newResellerStore(t, 10)
	svc := NewService(ms, ms, ms, 0.10, 50000, tier.DefaultThresholds())
	ctx := context.Background()

	// 499990 base -> 49999 commission, one short of gold.
	res, err := svc.RecordSale(ctx, 10, 10, types.ProtocolSSH, "a", 499990)
	require.NoError(t, err)
	assert.Equal(t, types.TierSilver, res.NewTier)

	// One more rupiah of commission crosses the gold threshold.
	res, err = svc.RecordSale(ctx, 10, 10, types.ProtocolSSH, "b", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), res.TotalCommission)
	assert.Equal(t, types.TierSilver, res.OldTier)
	assert.Equal(t, types.TierGold, res.NewTier)
	assert.True(t, res.Promoted)

	u, err := ms.GetUser(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, types.TierGold, u.Tier)
}

func TestRecordSalePromotionHonorsConfiguredThresholds(t *testing.T) {
	ms := newResellerStore(t, 10)
	svc := NewService(ms, ms, ms, 0.10, 50000, tier.Thresholds{Gold: 1000, Platinum: 2000})

	// 10000 base -> 1000 commission, which hits the lowered gold bar.
	res, err := svc.RecordSale(context.Background(), 10, 10, types.ProtocolSSH, "d", 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), res.TotalCommission)
	assert.Equal(t, types.TierGold, res.NewTier)
	assert.True(t, res.Promoted)
}

func TestRecordSaleStraightToPlatinum(t *testing.T) {
	ms := newResellerStore(t, 10)
	svc := NewService(ms, ms, ms, 0.10, 50000, tier.DefaultThresholds())

	res, err := svc.RecordSale(context.Background(), 10, 10, types.ProtocolTrojan, "c", 900000)
	require.NoError(t, err)
	assert.Equal(t, types.TierPlatinum, res.NewTier)
	assert.True(t, res.Promoted)
}

func TestUpgrade(t *testing.T) {
	ms := store.NewMemStore()
	ctx := context.Background()
	require.NoError(t, ms.UpsertUser(ctx, 20, "calon"))
	svc := NewService(ms, ms, ms, 0.10, 50000, tier.DefaultThresholds())

	_, err := svc.Upgrade(ctx, 20)
	assert.ErrorIs(t, err, store.ErrInsufficientFunds)

	_, err = ms.AdjustBalance(ctx, 20, 60000)
	require.NoError(t, err)

	balance, err := svc.Upgrade(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), balance)

	u, err := ms.GetUser(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, types.RoleReseller, u.Role)
	assert.Equal(t, types.TierSilver, u.Tier)

	_, err = svc.Upgrade(ctx, 20)
	assert.ErrorIs(t, err, ErrAlreadyReseller)
}

func TestResetAllDropsTiers(t *testing.T) {
	ms := newResellerStore(t, 10)
	svc := NewService(ms, ms, ms, 0.10, 50000, tier.DefaultThresholds())
	ctx := context.Background()

	_, err := svc.RecordSale(ctx, 10, 10, types.ProtocolSSH, "a", 900000)
	require.NoError(t, err)

	require.NoError(t, svc.ResetAll(ctx))

	sum, err := svc.Summary(ctx, 10, 5)
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
	assert.Equal(t, types.TierSilver, sum.Tier)

	u, err := ms.GetUser(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, types.TierSilver, u.Tier)
}
