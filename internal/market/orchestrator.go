// Package market drives a purchase end to end: pricing, the balance debit,
// slot reservation, remote provisioning and the compensation path when the
// remote side fails. Money moves before the SSH call, so every debit is
// journaled and reversed if delivery does not happen.
package market

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/pertamax98/bot-vpn/internal/provision"
	"github.com/pertamax98/bot-vpn/internal/reseller"
	"github.com/pertamax98/bot-vpn/internal/tier"
	"github.com/pertamax98/bot-vpn/internal/validate"
	"github.com/pertamax98/bot-vpn/types"
)

var (
	ErrAccountNotActive = errors.New("account is not active on this bot")
	ErrTrialLimit       = errors.New("daily trial limit reached")
)

type Config struct {
	TrialLimitUser     int
	TrialLimitReseller int
	TrialMinutes       int
	ProvisionTimeout   time.Duration
	// StaleAfter is how old a charged journal row must be before the
	// startup sweep treats its provisioning as dead and refunds it.
	StaleAfter time.Duration
}

type Orchestrator struct {
	users       types.UserStore
	ledger      types.Ledger
	servers     types.ServerStore
	sales       types.SaleStore
	accounts    types.AccountStore
	journal     types.JournalStore
	resellers   *reseller.Service
	provisioner provision.Provisioner
	cfg         Config
}

func NewOrchestrator(users types.UserStore, ledger types.Ledger, servers types.ServerStore,
	sales types.SaleStore, accounts types.AccountStore, journal types.JournalStore,
	resellers *reseller.Service, provisioner provision.Provisioner, cfg Config) *Orchestrator {
	if cfg.ProvisionTimeout <= 0 {
		cfg.ProvisionTimeout = 35 * time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 2 * cfg.ProvisionTimeout
	}
	if cfg.TrialMinutes <= 0 {
		cfg.TrialMinutes = 60
	}
	return &Orchestrator{
		users:       users,
		ledger:      ledger,
		servers:     servers,
		sales:       sales,
		accounts:    accounts,
		journal:     journal,
		resellers:   resellers,
		provisioner: provisioner,
		cfg:         cfg,
	}
}

type PurchaseRequest struct {
	UserID    int64
	BuyerName string
	Action    types.PurchaseAction
	Protocol  types.Protocol
	ServerID  int64
	Username  string
	Password  string // SSH create only
	Days      int
}

type PurchaseResult struct {
	Details    *types.AccountDetails
	BasePrice  int64 // full price before any reseller discount
	Price      int64 // what was actually debited
	Commission int64 // credited back, resellers only
	NewBalance int64
	Sale       *reseller.SaleResult // nil for plain users
}

// Purchase runs a paid create or renew. On any failure after the debit the
// buyer is refunded and, for a create, the reserved server slot released;
// the caller never has to clean up money.
func (o *Orchestrator) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	if err := validate.Username(req.Username); err != nil {
		return nil, err
	}
	if req.Action == types.ActionCreate && req.Protocol == types.ProtocolSSH {
		if err := validate.Password(req.Password); err != nil {
			return nil, err
		}
	}
	if err := validate.DurationDays(req.Days); err != nil {
		return nil, err
	}

	user, err := o.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	srv, err := o.servers.GetServer(ctx, req.ServerID)
	if err != nil {
		return nil, err
	}

	if req.Action == types.ActionRenew {
		active, err := o.accounts.IsActive(ctx, req.Username, req.Protocol)
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, ErrAccountNotActive
		}
	}

	basePrice := srv.PricePerDay * int64(req.Days)
	unit := int64(math.Floor(float64(srv.PricePerDay) * (1 - tier.Discount(user.Role, user.Tier))))
	price := unit * int64(req.Days)

	j := types.ProvisionJournal{
		ID:       uuid.NewString(),
		UserID:   req.UserID,
		Amount:   price,
		Protocol: req.Protocol,
		Username: req.Username,
		Action:   req.Action,
	}
	balance, err := o.journal.Charge(ctx, j)
	if err != nil {
		return nil, err
	}

	slotReserved := false
	fail := func(cause error) error {
		if refundErr := o.journal.Refund(ctx, j.ID); refundErr != nil {
			// Startup sweep will catch the still-charged row.
			log.Printf("Purchase %s: refund failed, journal row left charged: %v", j.ID, refundErr)
		}
		if slotReserved {
			if relErr := o.servers.ReleaseSlot(ctx, req.ServerID); relErr != nil {
				log.Printf("Purchase %s: slot release failed on server %d: %v", j.ID, req.ServerID, relErr)
			}
		}
		return cause
	}

	if req.Action == types.ActionCreate {
		if err := o.servers.TryReserveSlot(ctx, req.ServerID); err != nil {
			return nil, fail(err)
		}
		slotReserved = true
	}

	provCtx, cancel := context.WithTimeout(ctx, o.cfg.ProvisionTimeout)
	defer cancel()
	details, err := o.provisioner.Provision(provCtx, provision.Request{
		Action:       req.Action,
		Protocol:     req.Protocol,
		Server:       *srv,
		Username:     req.Username,
		Password:     req.Password,
		DurationDays: req.Days,
	})
	if err != nil {
		log.Printf("Purchase %s: provisioning %s/%s on %s failed: %v",
			j.ID, req.Protocol, req.Username, srv.Domain, err)
		return nil, fail(err)
	}

	if err := o.journal.Settle(ctx, j.ID); err != nil {
		// The account exists and the money moved; do not unwind delivery
		// over a bookkeeping error.
		log.Printf("Purchase %s: settle failed: %v", j.ID, err)
	}

	result := &PurchaseResult{
		Details:    details,
		BasePrice:  basePrice,
		Price:      price,
		NewBalance: balance,
	}

	if req.Action == types.ActionCreate {
		if err := o.accounts.MarkActive(ctx, req.Username, req.Protocol); err != nil {
			log.Printf("Purchase %s: mark active failed: %v", j.ID, err)
		}
	}

	if user.Role == types.RoleReseller {
		sale, err := o.resellers.RecordSale(ctx, req.UserID, req.UserID, req.Protocol, req.Username, basePrice)
		if err != nil {
			log.Printf("Purchase %s: commission credit failed: %v", j.ID, err)
		} else {
			result.Sale = sale
			result.Commission = sale.Commission
			result.NewBalance = sale.NewBalance
		}
	}

	err = o.sales.AppendInvoice(ctx, types.Invoice{
		UserID:     req.UserID,
		BuyerName:  req.BuyerName,
		Protocol:   req.Protocol,
		Username:   req.Username,
		Days:       req.Days,
		Price:      price,
		Commission: result.Commission,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Printf("Purchase %s: invoice append failed: %v", j.ID, err)
	}

	log.Printf("Purchase %s done: user %d %s %s/%s %dd price %d",
		j.ID, req.UserID, req.Action, req.Protocol, req.Username, req.Days, price)
	return result, nil
}

func (o *Orchestrator) trialLimit(role types.Role) int {
	switch role {
	case types.RoleAdmin:
		return -1
	case types.RoleReseller:
		return o.cfg.TrialLimitReseller
	default:
		return o.cfg.TrialLimitUser
	}
}

// Trial provisions a short-lived free account. The daily counter resets when
// the stored date is not today and only moves after the remote side
// succeeded, so a failed trial does not burn the allowance.
func (o *Orchestrator) Trial(ctx context.Context, userID int64, buyerName string, protocol types.Protocol, serverID int64, username string) (*types.AccountDetails, error) {
	if err := validate.Username(username); err != nil {
		return nil, err
	}

	user, err := o.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := time.Now().Format("2006-01-02")
	count := user.TrialCountToday
	if user.LastTrialDate != today {
		if err := o.users.ResetTrialCount(ctx, userID, today); err != nil {
			return nil, err
		}
		count = 0
	}
	if limit := o.trialLimit(user.Role); limit >= 0 && count >= limit {
		return nil, fmt.Errorf("%w: %d today", ErrTrialLimit, count)
	}

	srv, err := o.servers.GetServer(ctx, serverID)
	if err != nil {
		return nil, err
	}

	provCtx, cancel := context.WithTimeout(ctx, o.cfg.ProvisionTimeout)
	defer cancel()
	details, err := o.provisioner.Provision(provCtx, provision.Request{
		Action:       types.ActionCreate,
		Protocol:     protocol,
		Server:       *srv,
		Username:     username,
		Trial:        true,
		TrialMinutes: o.cfg.TrialMinutes,
	})
	if err != nil {
		return nil, err
	}

	if err := o.users.IncrementTrialCount(ctx, userID, today); err != nil {
		log.Printf("Trial: counter update for user %d failed: %v", userID, err)
	}
	err = o.sales.AppendTrialLog(ctx, types.TrialLog{
		UserID:    userID,
		Username:  buyerName,
		Protocol:  protocol,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("Trial: log append for user %d failed: %v", userID, err)
	}
	return details, nil
}

// RecoverStale refunds journal rows that are still charged long past the
// provisioning timeout. Run once at startup: such rows mean the previous
// process died between the debit and the verdict.
func (o *Orchestrator) RecoverStale(ctx context.Context) error {
	rows, err := o.journal.StaleCharged(ctx, o.cfg.StaleAfter)
	if err != nil {
		return err
	}
	for _, j := range rows {
		if err := o.journal.Refund(ctx, j.ID); err != nil {
			log.Printf("Recovery: refund of journal %s failed: %v", j.ID, err)
			continue
		}
		log.Printf("Recovery: refunded %d to user %d for interrupted %s %s/%s",
			j.Amount, j.UserID, j.Action, j.Protocol, j.Username)
	}
	if len(rows) > 0 {
		log.Printf("Recovery: %d interrupted purchase(s) refunded", len(rows))
	}
	return nil
}
