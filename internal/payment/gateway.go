// Package payment talks to the QRIS provider: it renders payment QR codes
// for a given amount and polls the merchant mutation feed for confirmed
// incoming payments.
package payment

import (
	"context"
	"errors"
)

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Status is the provider's answer for one checked amount. Reference is the
// provider-side transaction id and is the dedup key for crediting.
type Status struct {
	Paid      bool
	Reference string
	Amount    int64
}

type Gateway interface {
	// GenerateQR renders a PNG QR carrying the exact provider-facing
	// amount.
	GenerateQR(ctx context.Context, amount int64) ([]byte, error)
	// CheckPayment reports whether a confirmed incoming payment matches
	// the given provider-facing amount.
	CheckPayment(ctx context.Context, code string, amount int64) (Status, error)
}
