package deposit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pertamax98/bot-vpn/internal/payment"
	"github.com/pertamax98/bot-vpn/store"
	"github.com/pertamax98/bot-vpn/types"
)

type fakeGateway struct {
	mu sync.Mutex
	// payments maps provider-facing amount -> reference of a confirmed
	// payment.
	payments map[int64]string
	errs     map[int64]error
	qrErr    error
}

func (g *fakeGateway) GenerateQR(_ context.Context, amount int64) ([]byte, error) {
	if g.qrErr != nil {
		return nil, g.qrErr
	}
	return []byte("png"), nil
}

func (g *fakeGateway) CheckPayment(_ context.Context, _ string, amount int64) (payment.Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.errs[amount]; ok {
		return payment.Status{}, err
	}
	if ref, ok := g.payments[amount]; ok {
		return payment.Status{Paid: true, Reference: ref, Amount: amount}, nil
	}
	return payment.Status{}, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	success  []types.PendingDeposit
	expired  []types.PendingDeposit
	balances []int64
}

func (n *fakeNotifier) TopupSuccess(_ context.Context, d types.PendingDeposit, newBalance int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.success = append(n.success, d)
	n.balances = append(n.balances, newBalance)
}

func (n *fakeNotifier) TopupExpired(_ context.Context, d types.PendingDeposit) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired = append(n.expired, d)
}

func newTestService(ms *store.MemStore, gw payment.Gateway, n *fakeNotifier) *Service {
	return NewService(ms, gw, n, Config{
		MinimumTopup: 5000,
		Expiry:       5 * time.Minute,
		Interval:     10 * time.Second,
	})
}

func TestCreateDepositBelowMinimum(t *testing.T) {
	svc := newTestService(store.NewMemStore(), &fakeGateway{}, &fakeNotifier{})
	_, _, err := svc.CreateDeposit(context.Background(), 7, 100)
	assert.ErrorIs(t, err, ErrAmountTooSmall)
}

func TestCreateDepositSurchargeRange(t *testing.T) {
	ms := store.NewMemStore()
	svc := newTestService(ms, &fakeGateway{}, &fakeNotifier{})

	d, qr, err := svc.CreateDeposit(context.Background(), 7, 50000)
	require.NoError(t, err)
	assert.NotEmpty(t, qr)
	assert.Equal(t, int64(50000), d.Amount)
	assert.Greater(t, d.ProviderAmount, int64(50000))
	assert.LessOrEqual(t, d.ProviderAmount, int64(50099))

	pending, err := ms.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1, "must be durable before the QR is returned")
	assert.Equal(t, d.Code, pending[0].Code)
}

func TestCreateDepositBackToBackSameUser(t *testing.T) {
	ms := store.NewMemStore()
	svc := newTestService(ms, &fakeGateway{}, &fakeNotifier{})
	ctx := context.Background()

	// Issued within the same instant; both must get their own code.
	d1, _, err := svc.CreateDeposit(ctx, 7, 50000)
	require.NoError(t, err)
	d2, _, err := svc.CreateDeposit(ctx, 7, 60000)
	require.NoError(t, err)
	assert.NotEqual(t, d1.Code, d2.Code)

	pending, err := ms.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestCreateDepositExhaustsAttempts(t *testing.T) {
	ms := store.NewMemStore()
	// Occupy every possible provider amount for this base.
	for i := int64(1); i <= 99; i++ {
		require.NoError(t, ms.InsertPending(context.Background(), types.PendingDeposit{
			Code:           fmt.Sprintf("occupied-%d", i),
			UserID:         1,
			Amount:         50000,
			ProviderAmount: 50000 + i,
			CreatedAt:      time.Now(),
		}))
	}
	svc := newTestService(ms, &fakeGateway{}, &fakeNotifier{})

	_, _, err := svc.CreateDeposit(context.Background(), 7, 50000)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestCreateDepositRollsBackOnQRFailure(t *testing.T) {
	ms := store.NewMemStore()
	gw := &fakeGateway{qrErr: errors.New("provider down")}
	svc := newTestService(ms, gw, &fakeNotifier{})

	_, _, err := svc.CreateDeposit(context.Background(), 7, 50000)
	require.Error(t, err)

	pending, err := ms.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending, "reservation must not outlive a failed QR")
}

func TestReconcileCreditsRequestedAmountOnce(t *testing.T) {
	ms := store.NewMemStore()
	gw := &fakeGateway{payments: map[int64]string{}}
	n := &fakeNotifier{}
	svc := newTestService(ms, gw, n)
	ctx := context.Background()

	d, _, err := svc.CreateDeposit(ctx, 7, 50000)
	require.NoError(t, err)
	gw.payments[d.ProviderAmount] = "REF-1"

	svc.ReconcileOnce(ctx)
	// Second pass sees the same provider state.
	svc.ReconcileOnce(ctx)

	balance, err := ms.GetBalance(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), balance, "credit the requested amount, not the provider amount, exactly once")

	assert.Len(t, n.success, 1)
	assert.Len(t, ms.TopupLogs(), 1)

	pending, _ := ms.ListPending(ctx)
	assert.Empty(t, pending)
}

func TestReconcileDuplicateReferenceAcrossDeposits(t *testing.T) {
	ms := store.NewMemStore()
	gw := &fakeGateway{payments: map[int64]string{}}
	n := &fakeNotifier{}
	svc := newTestService(ms, gw, n)
	ctx := context.Background()

	d1, _, err := svc.CreateDeposit(ctx, 7, 50000)
	require.NoError(t, err)
	d2, _, err := svc.CreateDeposit(ctx, 8, 60000)
	require.NoError(t, err)

	// The gateway reports the same reference for both amounts; only the
	// first credit may land.
	gw.payments[d1.ProviderAmount] = "REF-SHARED"
	gw.payments[d2.ProviderAmount] = "REF-SHARED"

	svc.ReconcileOnce(ctx)

	logs := ms.TopupLogs()
	require.Len(t, logs, 1, "a reference is credited at most once")
	b1, _ := ms.GetBalance(ctx, 7)
	b2, _ := ms.GetBalance(ctx, 8)
	assert.Equal(t, logs[0].Amount, b1+b2)
}

func TestReconcileExpiresWithoutCredit(t *testing.T) {
	ms := store.NewMemStore()
	gw := &fakeGateway{payments: map[int64]string{}}
	n := &fakeNotifier{}
	svc := newTestService(ms, gw, n)
	ctx := context.Background()

	stale := types.PendingDeposit{
		Code:           "user-7-old",
		UserID:         7,
		Amount:         50000,
		ProviderAmount: 50042,
		CreatedAt:      time.Now().Add(-10 * time.Minute),
	}
	require.NoError(t, ms.InsertPending(ctx, stale))
	// Even a payment the provider would now confirm is discarded once the
	// window has passed.
	gw.payments[stale.ProviderAmount] = "REF-LATE"

	svc.ReconcileOnce(ctx)

	balance, _ := ms.GetBalance(ctx, 7)
	assert.Zero(t, balance)
	assert.Len(t, n.expired, 1)
	assert.Empty(t, n.success)

	pending, _ := ms.ListPending(ctx)
	assert.Empty(t, pending)
}

func TestReconcileGatewayErrorDoesNotBlockOthers(t *testing.T) {
	ms := store.NewMemStore()
	gw := &fakeGateway{payments: map[int64]string{}, errs: map[int64]error{}}
	n := &fakeNotifier{}
	svc := newTestService(ms, gw, n)
	ctx := context.Background()

	d1, _, err := svc.CreateDeposit(ctx, 7, 50000)
	require.NoError(t, err)
	d2, _, err := svc.CreateDeposit(ctx, 8, 60000)
	require.NoError(t, err)

	gw.errs[d1.ProviderAmount] = payment.ErrGatewayUnavailable
	gw.payments[d2.ProviderAmount] = "REF-2"

	svc.ReconcileOnce(ctx)

	b1, _ := ms.GetBalance(ctx, 7)
	b2, _ := ms.GetBalance(ctx, 8)
	assert.Zero(t, b1, "errored deposit waits for the next tick")
	assert.Equal(t, int64(60000), b2, "healthy deposit still reconciles")

	pending, _ := ms.ListPending(ctx)
	assert.Len(t, pending, 1)
	assert.Equal(t, d1.Code, pending[0].Code)

	// Provider recovers.
	delete(gw.errs, d1.ProviderAmount)
	gw.payments[d1.ProviderAmount] = "REF-1"
	svc.ReconcileOnce(ctx)

	b1, _ = ms.GetBalance(ctx, 7)
	assert.Equal(t, int64(50000), b1)
}

func TestReconcileMismatchedAmountNotTrusted(t *testing.T) {
	ms := store.NewMemStore()
	n := &fakeNotifier{}
	ctx := context.Background()

	d := types.PendingDeposit{
		Code:           "user-7-x",
		UserID:         7,
		Amount:         50000,
		ProviderAmount: 50042,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, ms.InsertPending(ctx, d))

	gw := &mismatchGateway{ref: "REF-BAD", amount: 49999}
	svc := newTestService(ms, gw, n)
	svc.ReconcileOnce(ctx)

	balance, _ := ms.GetBalance(ctx, 7)
	assert.Zero(t, balance)
	pending, _ := ms.ListPending(ctx)
	assert.Len(t, pending, 1)
}

// mismatchGateway claims paid but reports a different amount than asked.
type mismatchGateway struct {
	ref    string
	amount int64
}

func (g *mismatchGateway) GenerateQR(context.Context, int64) ([]byte, error) {
	return []byte("png"), nil
}

func (g *mismatchGateway) CheckPayment(context.Context, string, int64) (payment.Status, error) {
	return payment.Status{Paid: true, Reference: g.ref, Amount: g.amount}, nil
}
