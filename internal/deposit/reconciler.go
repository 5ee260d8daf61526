// Package deposit owns the QRIS top-up lifecycle: it issues unique-amount
// payment requests and reconciles pending deposits against the payment
// provider until each one is either credited or expired.
package deposit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/pertamax98/bot-vpn/internal/payment"
	"github.com/pertamax98/bot-vpn/store"
	"github.com/pertamax98/bot-vpn/types"
)

var (
	ErrAmountTooSmall  = errors.New("top-up amount below minimum")
	ErrTooManyAttempts = errors.New("could not find a free provider amount")
)

// Notifier delivers reconciliation outcomes back to the chat. Failures to
// notify never affect ledger state.
type Notifier interface {
	TopupSuccess(ctx context.Context, d types.PendingDeposit, newBalance int64)
	TopupExpired(ctx context.Context, d types.PendingDeposit)
}

type Config struct {
	MinimumTopup      int64
	Expiry            time.Duration
	Interval          time.Duration
	MaxAmountAttempts int
}

type Service struct {
	deposits types.DepositStore
	gateway  payment.Gateway
	notifier Notifier
	cfg      Config
}

func NewService(deposits types.DepositStore, gateway payment.Gateway, notifier Notifier, cfg Config) *Service {
	if cfg.MaxAmountAttempts <= 0 {
		cfg.MaxAmountAttempts = 10
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = 5 * time.Minute
	}
	return &Service{deposits: deposits, gateway: gateway, notifier: notifier, cfg: cfg}
}

// CreateDeposit persists a pending deposit and returns it together with the
// QR image. The provider-facing amount is the requested amount plus a
// random surcharge in [1,99], retried until it collides with no other
// pending deposit: the payment channel only reports amounts, so the amount
// is the payer's identity. The row is durable before the QR ever leaves
// this process.
func (s *Service) CreateDeposit(ctx context.Context, userID int64, amount int64) (*types.PendingDeposit, []byte, error) {
	if amount < s.cfg.MinimumTopup {
		return nil, nil, fmt.Errorf("%w: minimum is %d", ErrAmountTooSmall, s.cfg.MinimumTopup)
	}

	// The random suffix keeps two deposits by the same user in the same
	// instant from colliding on the primary key.
	d := types.PendingDeposit{
		Code:      fmt.Sprintf("user-%d-%s", userID, uuid.NewString()),
		UserID:    userID,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}

	inserted := false
	for attempt := 0; attempt < s.cfg.MaxAmountAttempts; attempt++ {
		d.ProviderAmount = amount + 1 + rand.Int63n(99)
		err := s.deposits.InsertPending(ctx, d)
		if err == nil {
			inserted = true
			break
		}
		if !errors.Is(err, store.ErrAmountTaken) {
			return nil, nil, err
		}
	}
	if !inserted {
		return nil, nil, ErrTooManyAttempts
	}

	qr, err := s.gateway.GenerateQR(ctx, d.ProviderAmount)
	if err != nil {
		// The QR never reached the user; drop the reservation.
		if _, delErr := s.deposits.DeletePending(ctx, d.Code); delErr != nil {
			log.Printf("Deposit %s: failed to roll back after QR error: %v", d.Code, delErr)
		}
		return nil, nil, err
	}
	return &d, qr, nil
}

func (s *Service) AttachQRMessage(ctx context.Context, code string, messageID int) {
	if err := s.deposits.UpdateQRMessageID(ctx, code, messageID); err != nil {
		log.Printf("Deposit %s: failed to store QR message id: %v", code, err)
	}
}

// Run polls the provider on a fixed interval until the context ends.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	log.Printf("Deposit reconciler started, interval %s", s.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("Deposit reconciler stopped")
			return
		case <-ticker.C:
			s.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce walks every pending deposit exactly once. Expiry is decided
// before the provider is consulted, so a deposit the gateway never answered
// for still dies on time. One deposit's gateway failure only skips that
// deposit. Re-running against the same provider state can never credit a
// payment twice: CreditDeposit refuses both a processed reference and a
// missing pending row.
func (s *Service) ReconcileOnce(ctx context.Context) {
	pending, err := s.deposits.ListPending(ctx)
	if err != nil {
		log.Printf("Reconcile: failed to list pending deposits: %v", err)
		return
	}

	now := time.Now()
	for _, d := range pending {
		if now.After(d.CreatedAt.Add(s.cfg.Expiry)) {
			existed, err := s.deposits.DeletePending(ctx, d.Code)
			if err != nil {
				log.Printf("Reconcile: failed to expire deposit %s: %v", d.Code, err)
				continue
			}
			if existed {
				log.Printf("Deposit %s expired, amount %d, no credit", d.Code, d.Amount)
				s.notifier.TopupExpired(ctx, d)
			}
			continue
		}

		st, err := s.gateway.CheckPayment(ctx, d.Code, d.ProviderAmount)
		if err != nil {
			// Transient; the next tick retries. Never surfaced to the user
			// unless the deposit later expires.
			log.Printf("Reconcile: gateway check for %s failed: %v", d.Code, err)
			continue
		}
		if !st.Paid {
			continue
		}
		if st.Amount != d.ProviderAmount {
			log.Printf("Reconcile: %s reported amount %d, expected %d, ignoring", d.Code, st.Amount, d.ProviderAmount)
			continue
		}

		outcome, err := s.deposits.CreditDeposit(ctx, d, st.Reference)
		if err != nil {
			log.Printf("Reconcile: failed to credit deposit %s: %v", d.Code, err)
			continue
		}
		if !outcome.Credited {
			// Reference already processed or row already gone; a duplicate
			// provider report, not an error.
			continue
		}
		log.Printf("Deposit %s credited: user %d amount %d balance %d reference %s",
			d.Code, d.UserID, d.Amount, outcome.NewBalance, st.Reference)
		s.notifier.TopupSuccess(ctx, d, outcome.NewBalance)
	}
}
