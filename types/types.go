package types

import "time"

// User is one Telegram identity known to the store. Balance is kept in the
// smallest currency unit (rupiah) and is only ever changed through the
// Ledger operations.
type User struct {
	UserID         int64
	Username       string
	Balance        int64
	Role           Role
	Tier           Tier
	TrialCountToday int
	LastTrialDate  string // YYYY-MM-DD, empty until first trial
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Server is one remote VPS accounts are provisioned on.
type Server struct {
	ID           int64
	Name         string
	Domain       string
	AuthSecret   string // root password used for the provisioning SSH session
	PricePerDay  int64
	QuotaGB      int
	IPLimit      int
	AccountLimit int
	AccountsCreated int
}

// PendingDeposit is a QRIS top-up waiting for the payment provider to
// confirm it. ProviderAmount = Amount + surcharge and must be unique among
// pending deposits, since the provider reports amounts, not payers.
type PendingDeposit struct {
	Code           string
	UserID         int64
	Amount         int64
	ProviderAmount int64
	QRMessageID    int
	CreatedAt      time.Time
}

// SaleRecord is an append-only row crediting a reseller's commission.
type SaleRecord struct {
	ID         int64
	ResellerID int64
	BuyerID    int64
	Protocol   Protocol
	Username   string
	Commission int64
	CreatedAt  time.Time
}

// Invoice is the audit record of a completed purchase or renewal.
type Invoice struct {
	ID         int64
	UserID     int64
	BuyerName  string
	Protocol   Protocol
	Username   string
	Days       int
	Price      int64
	Commission int64
	CreatedAt  time.Time
}

type TopupLog struct {
	ID        int64
	UserID    int64
	Username  string
	Amount    int64
	Reference string
	CreatedAt time.Time
}

type TrialLog struct {
	ID        int64
	UserID    int64
	Username  string
	Protocol  Protocol
	CreatedAt time.Time
}

// ProvisionJournal records a debit whose remote provisioning may still be in
// flight. A row stuck in JournalCharged past the provisioning timeout means
// the process died between debit and delivery and the buyer must be
// refunded.
type ProvisionJournal struct {
	ID        string
	UserID    int64
	Amount    int64
	Protocol  Protocol
	Username  string
	Action    PurchaseAction
	Status    JournalStatus
	CreatedAt time.Time
}

// AccountDetails is what the remote host reports back after provisioning.
type AccountDetails struct {
	Username   string
	Password   string
	UUID       string
	Domain     string
	IP         string
	City       string
	PublicKey  string
	Expiration string
	Ports      map[string]string
}

// Session is the per-chat wizard state kept in Redis while a user walks
// through the top-up or purchase dialog.
type Session struct {
	UserID    int64          `json:"user_id"`
	ChatID    int64          `json:"chat_id"`
	State     string         `json:"state"`
	Action    PurchaseAction `json:"action,omitempty"`
	Protocol  Protocol       `json:"protocol,omitempty"`
	ServerID  int64          `json:"server_id,omitempty"`
	Username  string         `json:"username,omitempty"`
	Password  string         `json:"password,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

const (
	SessionIdle          = "idle"
	SessionTopupAmount   = "topup_amount"
	SessionBuyUsername   = "buy_username"
	SessionBuyPassword   = "buy_password"
	SessionBuyDuration   = "buy_duration"
	SessionTrialUsername = "trial_username"
)
