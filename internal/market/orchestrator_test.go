package market

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pertamax98/bot-vpn/internal/provision"
	"github.com/pertamax98/bot-vpn/internal/reseller"
	"github.com/pertamax98/bot-vpn/internal/tier"
	"github.com/pertamax98/bot-vpn/internal/validate"
	"github.com/pertamax98/bot-vpn/store"
	"github.com/pertamax98/bot-vpn/types"
)

type fakeProvisioner struct {
	mu    sync.Mutex
	err   error
	calls []provision.Request
}

func (p *fakeProvisioner) Provision(_ context.Context, req provision.Request) (*types.AccountDetails, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)
	if p.err != nil {
		return nil, p.err
	}
	return &types.AccountDetails{
		Username: req.Username,
		Password: req.Password,
		Domain:   req.Server.Domain,
	}, nil
}

type fixture struct {
	ms       *store.MemStore
	prov     *fakeProvisioner
	orch     *Orchestrator
	serverID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ms := store.NewMemStore()
	prov := &fakeProvisioner{}
	res := reseller.NewService(ms, ms, ms, 0.10, 50000, tier.DefaultThresholds())
	orch := NewOrchestrator(ms, ms, ms, ms, ms, ms, res, prov, Config{
		TrialLimitUser:     1,
		TrialLimitReseller: 10,
		TrialMinutes:       60,
		ProvisionTimeout:   time.Second,
	})

	ctx := context.Background()
	id, err := ms.AddServer(ctx, types.Server{
		Name:         "sg-1",
		Domain:       "sg1.example.com",
		AuthSecret:   "rahasia",
		PricePerDay:  1000,
		AccountLimit: 5,
	})
	require.NoError(t, err)
	return &fixture{ms: ms, prov: prov, orch: orch, serverID: id}
}

func (f *fixture) seedUser(t *testing.T, id int64, balance int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.ms.UpsertUser(ctx, id, "budi"))
	if balance > 0 {
		_, err := f.ms.AdjustBalance(ctx, id, balance)
		require.NoError(t, err)
	}
}

func (f *fixture) serverCounter(t *testing.T) int {
	t.Helper()
	srv, err := f.ms.GetServer(context.Background(), f.serverID)
	require.NoError(t, err)
	return srv.AccountsCreated
}

func createReq(f *fixture, userID int64) PurchaseRequest {
	return PurchaseRequest{
		UserID:    userID,
		BuyerName: "budi",
		Action:    types.ActionCreate,
		Protocol:  types.ProtocolSSH,
		ServerID:  f.serverID,
		Username:  "budi123",
		Password:  "rahasia1",
		Days:      5,
	}
}

func TestPurchaseHappyPath(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 7, 10000)
	ctx := context.Background()

	res, err := f.orch.Purchase(ctx, createReq(f, 7))
	require.NoError(t, err)
	assert.Equal(t, int64(5000), res.Price)
	assert.Equal(t, int64(5000), res.BasePrice)
	assert.Equal(t, int64(5000), res.NewBalance)
	assert.Zero(t, res.Commission)
	assert.Equal(t, "budi123", res.Details.Username)

	balance, _ := f.ms.GetBalance(ctx, 7)
	assert.Equal(t, int64(5000), balance)
	assert.Equal(t, 1, f.serverCounter(t))

	invoices := f.ms.Invoices()
	require.Len(t, invoices, 1)
	assert.Equal(t, int64(5000), invoices[0].Price)
	assert.Equal(t, 5, invoices[0].Days)

	active, _ := f.ms.IsActive(ctx, "budi123", types.ProtocolSSH)
	assert.True(t, active)
}

func TestPurchaseResellerDiscountAndCommission(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 7, 10000)
	ctx := context.Background()
	require.NoError(t, f.ms.SetRole(ctx, 7, types.RoleReseller, types.TierSilver))

	res, err := f.orch.Purchase(ctx, createReq(f, 7))
	require.NoError(t, err)
	// 10% off the 1000/day unit, commission 10% of the undiscounted 5000.
	assert.Equal(t, int64(4500), res.Price)
	assert.Equal(t, int64(5000), res.BasePrice)
	assert.Equal(t, int64(500), res.Commission)
	assert.Equal(t, int64(6000), res.NewBalance)

	balance, _ := f.ms.GetBalance(ctx, 7)
	assert.Equal(t, int64(6000), balance)

	sales := f.ms.Sales()
	require.Len(t, sales, 1)
	assert.Equal(t, int64(500), sales[0].Commission)

	// The invoice records what was actually debited, not the list price.
	invoices := f.ms.Invoices()
	require.Len(t, invoices, 1)
	assert.Equal(t, int64(4500), invoices[0].Price)
	assert.Equal(t, int64(500), invoices[0].Commission)
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 7, 4000)

	_, err := f.orch.Purchase(context.Background(), createReq(f, 7))
	assert.ErrorIs(t, err, store.ErrInsufficientFunds)

	balance, _ := f.ms.GetBalance(context.Background(), 7)
	assert.Equal(t, int64(4000), balance)
	assert.Zero(t, f.serverCounter(t))
	assert.Empty(t, f.prov.calls)
}

func TestPurchaseCompensatesOnProvisionFailure(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 7, 10000)
	f.prov.err = provision.ErrProvisioningFailed
	ctx := context.Background()

	_, err := f.orch.Purchase(ctx, createReq(f, 7))
	assert.ErrorIs(t, err, provision.ErrProvisioningFailed)

	balance, _ := f.ms.GetBalance(ctx, 7)
	assert.Equal(t, int64(10000), balance, "debit must be fully reversed")
	assert.Zero(t, f.serverCounter(t), "reserved slot must be released")
	assert.Empty(t, f.ms.Invoices())
	assert.Empty(t, f.ms.Sales())

	active, _ := f.ms.IsActive(ctx, "budi123", types.ProtocolSSH)
	assert.False(t, active)
}

func TestPurchaseServerFull(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 7, 100000)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, f.ms.TryReserveSlot(ctx, f.serverID))
	}

	_, err := f.orch.Purchase(ctx, createReq(f, 7))
	assert.ErrorIs(t, err, store.ErrServerFull)

	balance, _ := f.ms.GetBalance(ctx, 7)
	assert.Equal(t, int64(100000), balance)
	assert.Equal(t, 5, f.serverCounter(t))
	assert.Empty(t, f.prov.calls)
}

func TestRenewRequiresActiveAccount(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 7, 10000)
	ctx := context.Background()

	req := createReq(f, 7)
	req.Action = types.ActionRenew
	req.Password = ""

	_, err := f.orch.Purchase(ctx, req)
	assert.ErrorIs(t, err, ErrAccountNotActive)

	require.NoError(t, f.ms.MarkActive(ctx, "budi123", types.ProtocolSSH))
	res, err := f.orch.Purchase(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), res.Price)
	assert.Zero(t, f.serverCounter(t), "a renewal does not consume a slot")
}

func TestPurchaseRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 7, 10000)
	ctx := context.Background()

	req := createReq(f, 7)
	req.Username = "x"
	_, err := f.orch.Purchase(ctx, req)
	assert.ErrorIs(t, err, validate.ErrInvalidInput)

	req = createReq(f, 7)
	req.Days = 400
	_, err = f.orch.Purchase(ctx, req)
	assert.ErrorIs(t, err, validate.ErrInvalidInput)

	req = createReq(f, 7)
	req.Password = "ab"
	_, err = f.orch.Purchase(ctx, req)
	assert.ErrorIs(t, err, validate.ErrInvalidInput)

	balance, _ := f.ms.GetBalance(ctx, 7)
	assert.Equal(t, int64(10000), balance)
}

func TestTrialDailyLimit(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 7, 0)
	ctx := context.Background()

	details, err := f.orch.Trial(ctx, 7, "budi", types.ProtocolVMess, f.serverID, "coba123")
	require.NoError(t, err)
	assert.Equal(t, "coba123", details.Username)
	require.Len(t, f.prov.calls, 1)
	assert.True(t, f.prov.calls[0].Trial)
	assert.Equal(t, 60, f.prov.calls[0].TrialMinutes)
	assert.Len(t, f.ms.TrialLogs(), 1)

	_, err = f.orch.Trial(ctx, 7, "budi", types.ProtocolVMess, f.serverID, "coba124")
	assert.ErrorIs(t, err, ErrTrialLimit)

	// A stale counter from a previous day does not count against today.
	require.NoError(t, f.ms.ResetTrialCount(ctx, 7, "2000-01-01"))
	require.NoError(t, f.ms.IncrementTrialCount(ctx, 7, "2000-01-01"))
	_, err = f.orch.Trial(ctx, 7, "budi", types.ProtocolVMess, f.serverID, "coba125")
	require.NoError(t, err)
}

func TestTrialFailureKeepsAllowance(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 7, 0)
	f.prov.err = provision.ErrProvisioningFailed
	ctx := context.Background()

	_, err := f.orch.Trial(ctx, 7, "budi", types.ProtocolVMess, f.serverID, "coba123")
	assert.ErrorIs(t, err, provision.ErrProvisioningFailed)
	assert.Empty(t, f.ms.TrialLogs())

	f.prov.err = nil
	_, err = f.orch.Trial(ctx, 7, "budi", types.ProtocolVMess, f.serverID, "coba123")
	require.NoError(t, err)
}

func TestTrialResellerLimit(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 7, 0)
	ctx := context.Background()
	require.NoError(t, f.ms.SetRole(ctx, 7, types.RoleReseller, types.TierSilver))

	for i := 0; i < 10; i++ {
		_, err := f.orch.Trial(ctx, 7, "budi", types.ProtocolSSH, f.serverID, "coba123")
		require.NoError(t, err)
	}
	_, err := f.orch.Trial(ctx, 7, "budi", types.ProtocolSSH, f.serverID, "coba123")
	assert.ErrorIs(t, err, ErrTrialLimit)
}

func TestRecoverStaleRefunds(t *testing.T) {
	ms := store.NewMemStore()
	prov := &fakeProvisioner{}
	res := reseller.NewService(ms, ms, ms, 0.10, 50000, tier.DefaultThresholds())
	orch := NewOrchestrator(ms, ms, ms, ms, ms, ms, res, prov, Config{
		ProvisionTimeout: time.Second,
		StaleAfter:       time.Nanosecond,
	})
	ctx := context.Background()

	require.NoError(t, ms.UpsertUser(ctx, 7, "budi"))
	_, err := ms.AdjustBalance(ctx, 7, 10000)
	require.NoError(t, err)

	// A debit the previous process never resolved.
	_, err = ms.Charge(ctx, types.ProvisionJournal{
		ID:       "dead-journal",
		UserID:   7,
		Amount:   5000,
		Protocol: types.ProtocolSSH,
		Username: "budi123",
		Action:   types.ActionCreate,
	})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, orch.RecoverStale(ctx))

	balance, _ := ms.GetBalance(ctx, 7)
	assert.Equal(t, int64(10000), balance)

	// Sweep again: the row is refunded, not charged, so nothing moves.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, orch.RecoverStale(ctx))
	balance, _ = ms.GetBalance(ctx, 7)
	assert.Equal(t, int64(10000), balance)
}
