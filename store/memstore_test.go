package store

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pertamax98/bot-vpn/types"
)

func TestAdjustBalanceNeverGoesNegative(t *testing.T) {
	ms := NewMemStore()
	ctx := context.Background()
	require.NoError(t, ms.UpsertUser(ctx, 1, "budi"))

	_, err := ms.AdjustBalance(ctx, 1, 100)
	require.NoError(t, err)

	_, err = ms.AdjustBalance(ctx, 1, -101)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// The failed debit must not have applied partially.
	balance, err := ms.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	balance, err = ms.AdjustBalance(ctx, 1, -100)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestSetBalanceRejectsNegative(t *testing.T) {
	ms := NewMemStore()
	ctx := context.Background()
	require.NoError(t, ms.UpsertUser(ctx, 1, "budi"))
	assert.Error(t, ms.SetBalance(ctx, 1, -1))
	require.NoError(t, ms.SetBalance(ctx, 1, 75000))
	balance, _ := ms.GetBalance(ctx, 1)
	assert.Equal(t, int64(75000), balance)
}

// Concurrent adjustments must conserve money: the final balance equals the
// initial amount plus the sum of every delta that was accepted.
func TestAdjustBalanceConservesUnderConcurrency(t *testing.T) {
	ms := NewMemStore()
	ctx := context.Background()
	require.NoError(t, ms.UpsertUser(ctx, 1, "budi"))

	const initial = int64(1_000_000)
	_, err := ms.AdjustBalance(ctx, 1, initial)
	require.NoError(t, err)

	const workers = 16
	const opsPerWorker = 200

	var mu sync.Mutex
	var applied int64

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < opsPerWorker; i++ {
				delta := rng.Int63n(2001) - 1000 // [-1000, 1000]
				if _, err := ms.AdjustBalance(ctx, 1, delta); err == nil {
					mu.Lock()
					applied += delta
					mu.Unlock()
				}
			}
		}(int64(w))
	}
	wg.Wait()

	balance, err := ms.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, initial+applied, balance)
	assert.GreaterOrEqual(t, balance, int64(0))
}

func TestTryReserveSlotStopsAtLimit(t *testing.T) {
	ms := NewMemStore()
	ctx := context.Background()
	id, err := ms.AddServer(ctx, types.Server{Name: "sg-1", Domain: "sg1.example.com", AccountLimit: 3})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- ms.TryReserveSlot(ctx, id)
		}()
	}
	wg.Wait()
	close(errs)

	var ok, full int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case err == ErrServerFull:
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, 7, full)

	srv, err := ms.GetServer(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, srv.AccountsCreated)
}

func TestInsertPendingRejectsDuplicateAmount(t *testing.T) {
	ms := NewMemStore()
	ctx := context.Background()
	d := types.PendingDeposit{Code: "a", UserID: 1, Amount: 50000, ProviderAmount: 50042}
	require.NoError(t, ms.InsertPending(ctx, d))

	d2 := types.PendingDeposit{Code: "b", UserID: 2, Amount: 50000, ProviderAmount: 50042}
	assert.ErrorIs(t, ms.InsertPending(ctx, d2), ErrAmountTaken)

	d2.ProviderAmount = 50043
	assert.NoError(t, ms.InsertPending(ctx, d2))
}
