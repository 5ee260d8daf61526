package types

import (
	"context"
	"time"
)

// Ledger owns balance storage. All mutations are serialized per account by
// the implementation; a debit that would push the balance below zero fails
// without applying anything.
type Ledger interface {
	GetBalance(ctx context.Context, userID int64) (int64, error)
	AdjustBalance(ctx context.Context, userID int64, delta int64) (int64, error)
	SetBalance(ctx context.Context, userID int64, value int64) error
}

type UserStore interface {
	UpsertUser(ctx context.Context, userID int64, username string) error
	GetUser(ctx context.Context, userID int64) (*User, error)
	SetRole(ctx context.Context, userID int64, role Role, tier Tier) error
	SetTier(ctx context.Context, userID int64, tier Tier) error

	// ResetTrialCount zeroes the daily counter and stamps today; used when
	// the stored last_trial_date differs from the current date.
	ResetTrialCount(ctx context.Context, userID int64, today string) error
	IncrementTrialCount(ctx context.Context, userID int64, today string) error
}

type ServerStore interface {
	AddServer(ctx context.Context, s Server) (int64, error)
	GetServer(ctx context.Context, id int64) (*Server, error)
	ListServers(ctx context.Context) ([]Server, error)
	UpdatePrice(ctx context.Context, id int64, price int64) error
	DeleteServer(ctx context.Context, id int64) error

	// TryReserveSlot increments accounts_created only while it is still
	// below the account limit. Zero rows affected is reported as
	// ErrServerFull by the implementation.
	TryReserveSlot(ctx context.Context, id int64) error
	ReleaseSlot(ctx context.Context, id int64) error
}

// CreditOutcome reports what a CreditDeposit call actually did. Credited is
// false when the provider reference was already processed or the pending
// row had already been removed; both are harmless no-ops.
type CreditOutcome struct {
	Credited   bool
	NewBalance int64
}

type DepositStore interface {
	// InsertPending persists the deposit before any QR is issued. It fails
	// with ErrAmountTaken when another pending deposit already carries the
	// same provider-facing amount.
	InsertPending(ctx context.Context, d PendingDeposit) error
	ListPending(ctx context.Context) ([]PendingDeposit, error)
	// UpdateQRMessageID remembers the chat message carrying the QR so it
	// can be deleted when the deposit resolves.
	UpdateQRMessageID(ctx context.Context, code string, messageID int) error
	// DeletePending removes the row and reports whether it still existed.
	DeletePending(ctx context.Context, code string) (bool, error)
	// CreditDeposit atomically marks the provider reference processed,
	// removes the pending row, credits the requested amount and appends the
	// top-up log entry.
	CreditDeposit(ctx context.Context, d PendingDeposit, reference string) (CreditOutcome, error)
}

type SaleStore interface {
	AppendSale(ctx context.Context, s SaleRecord) error
	TotalCommission(ctx context.Context, resellerID int64) (int64, error)
	RecentSales(ctx context.Context, resellerID int64, limit int) ([]SaleRecord, error)
	// ResetAllSales deletes every sale record and drops every reseller back
	// to the base tier in a single transaction.
	ResetAllSales(ctx context.Context) error

	AppendInvoice(ctx context.Context, inv Invoice) error
	AppendTrialLog(ctx context.Context, l TrialLog) error
	// AppendUpgradeLog records a paid user-to-reseller upgrade.
	AppendUpgradeLog(ctx context.Context, userID int64, amount int64) error
}

type AccountStore interface {
	MarkActive(ctx context.Context, username string, protocol Protocol) error
	IsActive(ctx context.Context, username string, protocol Protocol) (bool, error)
}

type JournalStore interface {
	// Charge debits the buyer and writes the journal row in one
	// transaction so a crash between debit and delivery is recoverable.
	Charge(ctx context.Context, j ProvisionJournal) (newBalance int64, err error)
	// Refund reverses the debit and marks the row refunded; calling it for
	// a row that is no longer charged is a no-op.
	Refund(ctx context.Context, journalID string) error
	Settle(ctx context.Context, journalID string) error
	StaleCharged(ctx context.Context, olderThan time.Duration) ([]ProvisionJournal, error)
}

type SessionStore interface {
	GetSession(userID int64) (*Session, error)
	SaveSession(s *Session) error
	DeleteSession(userID int64) error
}
