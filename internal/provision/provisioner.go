// Package provision creates, renews and trials VPN accounts on remote VPS
// hosts. The transport is an SSH exec of a protocol-specific script; the
// rest of the bot only sees the Provisioner interface and treats every call
// as at-most-once: a failure is compensated by the caller, never retried
// blindly.
package provision

import (
	"context"
	"errors"

	"github.com/pertamax98/bot-vpn/types"
)

var ErrProvisioningFailed = errors.New("provisioning failed")

type Request struct {
	Action       types.PurchaseAction
	Protocol     types.Protocol
	Server       types.Server
	Username     string
	Password     string // SSH create only
	DurationDays int
	Trial        bool
	TrialMinutes int
}

type Provisioner interface {
	Provision(ctx context.Context, req Request) (*types.AccountDetails, error)
}
