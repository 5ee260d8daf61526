// Package reseller keeps the commission ledger and the tier state machine
// in step. Every completed sale by a reseller goes through RecordSale so
// the commission credit, the sale record and any tier transition happen in
// one place.
package reseller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pertamax98/bot-vpn/internal/tier"
	"github.com/pertamax98/bot-vpn/types"
)

var ErrAlreadyReseller = errors.New("user is already a reseller")

type Service struct {
	users  types.UserStore
	ledger types.Ledger
	sales  types.SaleStore

	rate        float64
	upgradeCost int64
	thresholds  tier.Thresholds
}

func NewService(users types.UserStore, ledger types.Ledger, sales types.SaleStore, rate float64, upgradeCost int64, thresholds tier.Thresholds) *Service {
	return &Service{
		users:       users,
		ledger:      ledger,
		sales:       sales,
		rate:        rate,
		upgradeCost: upgradeCost,
		thresholds:  thresholds,
	}
}

// Commission is the reseller's cut of one sale, computed on the
// undiscounted base price and rounded down.
func (s *Service) Commission(basePrice int64) int64 {
	return int64(float64(basePrice) * s.rate)
}

// SaleResult reports what RecordSale changed.
type SaleResult struct {
	Commission      int64
	NewBalance      int64
	TotalCommission int64
	OldTier         types.Tier
	NewTier         types.Tier
	Promoted        bool
}

// RecordSale appends the sale, credits the commission back to the reseller
// and re-derives the tier from the new cumulative total. basePrice is the
// full, undiscounted order price.
func (s *Service) RecordSale(ctx context.Context, resellerID, buyerID int64, protocol types.Protocol, username string, basePrice int64) (*SaleResult, error) {
	commission := s.Commission(basePrice)

	err := s.sales.AppendSale(ctx, types.SaleRecord{
		ResellerID: resellerID,
		BuyerID:    buyerID,
		Protocol:   protocol,
		Username:   username,
		Commission: commission,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("append sale: %w", err)
	}

	balance, err := s.ledger.AdjustBalance(ctx, resellerID, commission)
	if err != nil {
		return nil, fmt.Errorf("credit commission: %w", err)
	}

	total, err := s.sales.TotalCommission(ctx, resellerID)
	if err != nil {
		return nil, fmt.Errorf("total commission: %w", err)
	}

	user, err := s.users.GetUser(ctx, resellerID)
	if err != nil {
		return nil, err
	}

	result := &SaleResult{
		Commission:      commission,
		NewBalance:      balance,
		TotalCommission: total,
		OldTier:         user.Tier,
		NewTier:         s.thresholds.ForCommission(total),
	}
	if result.NewTier != result.OldTier {
		if err := s.users.SetTier(ctx, resellerID, result.NewTier); err != nil {
			return nil, fmt.Errorf("set tier: %w", err)
		}
		result.Promoted = tier.IsUpgrade(result.OldTier, result.NewTier)
		log.Printf("Reseller %d moved %s -> %s at total commission %d",
			resellerID, result.OldTier, result.NewTier, total)
	}
	return result, nil
}

// Upgrade turns a plain user into a silver reseller for a fixed fee. The
// debit and the role change are not atomic across stores; the debit comes
// first so a crash in between leaves a paid, not-yet-promoted user an admin
// can fix, never a free reseller.
func (s *Service) Upgrade(ctx context.Context, userID int64) (int64, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user.Role != types.RoleUser {
		return 0, ErrAlreadyReseller
	}

	balance, err := s.ledger.AdjustBalance(ctx, userID, -s.upgradeCost)
	if err != nil {
		return 0, err
	}
	if err := s.users.SetRole(ctx, userID, types.RoleReseller, types.TierSilver); err != nil {
		return 0, fmt.Errorf("set role: %w", err)
	}
	if err := s.sales.AppendUpgradeLog(ctx, userID, s.upgradeCost); err != nil {
		log.Printf("Upgrade log for %d failed: %v", userID, err)
	}
	log.Printf("User %d upgraded to reseller, paid %d", userID, s.upgradeCost)
	return balance, nil
}

// Summary is what the commission report command shows.
type Summary struct {
	Total  int64
	Tier   types.Tier
	Recent []types.SaleRecord
}

func (s *Service) Summary(ctx context.Context, resellerID int64, recentLimit int) (*Summary, error) {
	total, err := s.sales.TotalCommission(ctx, resellerID)
	if err != nil {
		return nil, err
	}
	recent, err := s.sales.RecentSales(ctx, resellerID, recentLimit)
	if err != nil {
		return nil, err
	}
	return &Summary{Total: total, Tier: s.thresholds.ForCommission(total), Recent: recent}, nil
}

// ResetAll wipes every sale record and drops all resellers back to silver.
func (s *Service) ResetAll(ctx context.Context) error {
	if err := s.sales.ResetAllSales(ctx); err != nil {
		return err
	}
	log.Println("All reseller commissions reset")
	return nil
}

// RunMonthlyReset fires ResetAll on the first day of each month. Checked
// hourly; lastReset keeps a restart on day one from resetting twice within
// the same process run, and a second run only deletes what is already gone.
func (s *Service) RunMonthlyReset(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	lastReset := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			month := now.Format("2006-01")
			if now.Day() != 1 || lastReset == month {
				continue
			}
			if err := s.ResetAll(ctx); err != nil {
				log.Printf("Monthly commission reset failed: %v", err)
				continue
			}
			lastReset = month
		}
	}
}
