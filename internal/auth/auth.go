// Package auth is the single authorization point: handlers ask it once per
// request instead of re-checking roles ad hoc.
package auth

import (
	"context"

	"github.com/pertamax98/bot-vpn/types"
)

type Authorizer struct {
	adminIDs map[int64]struct{}
	users    types.UserStore
}

func New(adminIDs []int64, users types.UserStore) *Authorizer {
	m := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		m[id] = struct{}{}
	}
	return &Authorizer{adminIDs: m, users: users}
}

func (a *Authorizer) IsAdmin(userID int64) bool {
	_, ok := a.adminIDs[userID]
	return ok
}

// RoleOf resolves the effective role: configured admin ids outrank whatever
// the user row says.
func (a *Authorizer) RoleOf(ctx context.Context, userID int64) (types.Role, error) {
	if a.IsAdmin(userID) {
		return types.RoleAdmin, nil
	}
	u, err := a.users.GetUser(ctx, userID)
	if err != nil {
		return types.RoleUser, nil
	}
	return u.Role, nil
}

func (a *Authorizer) Authorize(ctx context.Context, userID int64, required types.Role) bool {
	role, _ := a.RoleOf(ctx, userID)
	switch required {
	case types.RoleAdmin:
		return role == types.RoleAdmin
	case types.RoleReseller:
		return role == types.RoleReseller || role == types.RoleAdmin
	default:
		return true
	}
}
