package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pertamax98/bot-vpn/store"
	"github.com/pertamax98/bot-vpn/types"
)

func TestAuthorize(t *testing.T) {
	ms := store.NewMemStore()
	ctx := context.Background()
	require.NoError(t, ms.UpsertUser(ctx, 2, "agen"))
	require.NoError(t, ms.SetRole(ctx, 2, types.RoleReseller, types.TierSilver))
	require.NoError(t, ms.UpsertUser(ctx, 3, "budi"))

	a := New([]int64{1}, ms)

	assert.True(t, a.IsAdmin(1))
	assert.False(t, a.IsAdmin(2))

	// Configured admin id wins even without a matching user row.
	role, err := a.RoleOf(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, role)

	assert.True(t, a.Authorize(ctx, 1, types.RoleAdmin))
	assert.True(t, a.Authorize(ctx, 1, types.RoleReseller))
	assert.False(t, a.Authorize(ctx, 2, types.RoleAdmin))
	assert.True(t, a.Authorize(ctx, 2, types.RoleReseller))
	assert.False(t, a.Authorize(ctx, 3, types.RoleReseller))
	assert.True(t, a.Authorize(ctx, 3, types.RoleUser))

	// Unknown users are plain users.
	assert.False(t, a.Authorize(ctx, 99, types.RoleReseller))
	assert.True(t, a.Authorize(ctx, 99, types.RoleUser))
}
