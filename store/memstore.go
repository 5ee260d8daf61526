package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pertamax98/bot-vpn/types"
)

// MemStore is an in-memory implementation of the store interfaces with the
// same semantics as PostgresStore. It backs the service tests and local
// development without a database.
type MemStore struct {
	mu sync.Mutex

	users     map[int64]*types.User
	servers   map[int64]*types.Server
	nextSrvID int64

	deposits      map[string]types.PendingDeposit
	processedRefs map[string]struct{}

	sales     []types.SaleRecord
	invoices  []types.Invoice
	topups    []types.TopupLog
	trials    []types.TrialLog
	upgrades  []upgradeEntry
	active    map[string]struct{}
	journal   map[string]*types.ProvisionJournal
	nextRowID int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:         make(map[int64]*types.User),
		servers:       make(map[int64]*types.Server),
		nextSrvID:     1,
		deposits:      make(map[string]types.PendingDeposit),
		processedRefs: make(map[string]struct{}),
		active:        make(map[string]struct{}),
		journal:       make(map[string]*types.ProvisionJournal),
		nextRowID:     1,
	}
}

func (s *MemStore) ensureUser(userID int64) *types.User {
	u, ok := s.users[userID]
	if !ok {
		u = &types.User{
			UserID:    userID,
			Role:      types.RoleUser,
			Tier:      types.TierSilver,
			CreatedAt: time.Now().UTC(),
		}
		s.users[userID] = u
	}
	return u
}

func (s *MemStore) UpsertUser(_ context.Context, userID int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureUser(userID)
	u.Username = username
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemStore) GetUser(_ context.Context, userID int64) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *MemStore) GetBalance(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		return u.Balance, nil
	}
	return 0, nil
}

func (s *MemStore) AdjustBalance(_ context.Context, userID int64, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustLocked(userID, delta)
}

func (s *MemStore) adjustLocked(userID int64, delta int64) (int64, error) {
	u := s.ensureUser(userID)
	if u.Balance+delta < 0 {
		return 0, ErrInsufficientFunds
	}
	u.Balance += delta
	u.UpdatedAt = time.Now().UTC()
	return u.Balance, nil
}

func (s *MemStore) SetBalance(_ context.Context, userID int64, value int64) error {
	if value < 0 {
		return ErrInsufficientFunds
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureUser(userID).Balance = value
	return nil
}

func (s *MemStore) SetRole(_ context.Context, userID int64, role types.Role, tier types.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureUser(userID)
	u.Role = role
	u.Tier = tier
	return nil
}

func (s *MemStore) SetTier(_ context.Context, userID int64, tier types.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureUser(userID).Tier = tier
	return nil
}

func (s *MemStore) ResetTrialCount(_ context.Context, userID int64, today string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureUser(userID)
	u.TrialCountToday = 0
	u.LastTrialDate = today
	return nil
}

func (s *MemStore) IncrementTrialCount(_ context.Context, userID int64, today string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureUser(userID)
	u.TrialCountToday++
	u.LastTrialDate = today
	return nil
}

func (s *MemStore) AddServer(_ context.Context, srv types.Server) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv.ID = s.nextSrvID
	s.nextSrvID++
	s.servers[srv.ID] = &srv
	return srv.ID, nil
}

func (s *MemStore) GetServer(_ context.Context, id int64) (*types.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[id]
	if !ok {
		return nil, ErrServerNotFound
	}
	copied := *srv
	return &copied, nil
}

func (s *MemStore) ListServers(_ context.Context) ([]types.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var servers []types.Server
	for _, srv := range s.servers {
		servers = append(servers, *srv)
	}
	sort.Slice(servers, func(i, j int) bool { return servers[i].ID < servers[j].ID })
	return servers, nil
}

func (s *MemStore) UpdatePrice(_ context.Context, id int64, price int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[id]
	if !ok {
		return ErrServerNotFound
	}
	srv.PricePerDay = price
	return nil
}

func (s *MemStore) DeleteServer(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[id]; !ok {
		return ErrServerNotFound
	}
	delete(s.servers, id)
	return nil
}

func (s *MemStore) TryReserveSlot(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[id]
	if !ok || srv.AccountsCreated >= srv.AccountLimit {
		return ErrServerFull
	}
	srv.AccountsCreated++
	return nil
}

func (s *MemStore) ReleaseSlot(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if srv, ok := s.servers[id]; ok && srv.AccountsCreated > 0 {
		srv.AccountsCreated--
	}
	return nil
}

func (s *MemStore) InsertPending(_ context.Context, d types.PendingDeposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.deposits {
		if existing.ProviderAmount == d.ProviderAmount {
			return ErrAmountTaken
		}
	}
	s.deposits[d.Code] = d
	return nil
}

func (s *MemStore) ListPending(_ context.Context) ([]types.PendingDeposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deposits []types.PendingDeposit
	for _, d := range s.deposits {
		deposits = append(deposits, d)
	}
	sort.Slice(deposits, func(i, j int) bool { return deposits[i].CreatedAt.Before(deposits[j].CreatedAt) })
	return deposits, nil
}

func (s *MemStore) UpdateQRMessageID(_ context.Context, code string, messageID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.deposits[code]; ok {
		d.QRMessageID = messageID
		s.deposits[code] = d
	}
	return nil
}

func (s *MemStore) DeletePending(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deposits[code]; !ok {
		return false, nil
	}
	delete(s.deposits, code)
	return true, nil
}

func (s *MemStore) CreditDeposit(_ context.Context, d types.PendingDeposit, reference string) (types.CreditOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.processedRefs[reference]; done {
		return types.CreditOutcome{Credited: false}, nil
	}
	if _, ok := s.deposits[d.Code]; !ok {
		return types.CreditOutcome{Credited: false}, nil
	}
	s.processedRefs[reference] = struct{}{}
	delete(s.deposits, d.Code)
	newBalance, err := s.adjustLocked(d.UserID, d.Amount)
	if err != nil {
		return types.CreditOutcome{}, err
	}
	s.topups = append(s.topups, types.TopupLog{
		ID:        s.nextRowID,
		UserID:    d.UserID,
		Amount:    d.Amount,
		Reference: reference,
		CreatedAt: time.Now().UTC(),
	})
	s.nextRowID++
	return types.CreditOutcome{Credited: true, NewBalance: newBalance}, nil
}

func (s *MemStore) AppendSale(_ context.Context, sale types.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale.ID = s.nextRowID
	s.nextRowID++
	sale.CreatedAt = time.Now().UTC()
	s.sales = append(s.sales, sale)
	return nil
}

func (s *MemStore) TotalCommission(_ context.Context, resellerID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, sale := range s.sales {
		if sale.ResellerID == resellerID {
			total += sale.Commission
		}
	}
	return total, nil
}

func (s *MemStore) RecentSales(_ context.Context, resellerID int64, limit int) ([]types.SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sales []types.SaleRecord
	for i := len(s.sales) - 1; i >= 0 && len(sales) < limit; i-- {
		if s.sales[i].ResellerID == resellerID {
			sales = append(sales, s.sales[i])
		}
	}
	return sales, nil
}

func (s *MemStore) ResetAllSales(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = nil
	for _, u := range s.users {
		if u.Role == types.RoleReseller {
			u.Tier = types.TierSilver
		}
	}
	return nil
}

func (s *MemStore) AppendInvoice(_ context.Context, inv types.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ID = s.nextRowID
	s.nextRowID++
	inv.CreatedAt = time.Now().UTC()
	s.invoices = append(s.invoices, inv)
	return nil
}

func (s *MemStore) AppendTrialLog(_ context.Context, l types.TrialLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.nextRowID
	s.nextRowID++
	l.CreatedAt = time.Now().UTC()
	s.trials = append(s.trials, l)
	return nil
}

type upgradeEntry struct {
	UserID    int64
	Amount    int64
	CreatedAt time.Time
}

func (s *MemStore) AppendUpgradeLog(_ context.Context, userID int64, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upgrades = append(s.upgrades, upgradeEntry{
		UserID:    userID,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func activeKey(username string, protocol types.Protocol) string {
	return username + "|" + string(protocol)
}

func (s *MemStore) MarkActive(_ context.Context, username string, protocol types.Protocol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[activeKey(username, protocol)] = struct{}{}
	return nil
}

func (s *MemStore) IsActive(_ context.Context, username string, protocol types.Protocol) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[activeKey(username, protocol)]
	return ok, nil
}

func (s *MemStore) Charge(_ context.Context, j types.ProvisionJournal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	newBalance, err := s.adjustLocked(j.UserID, -j.Amount)
	if err != nil {
		return 0, err
	}
	j.Status = types.JournalCharged
	j.CreatedAt = time.Now().UTC()
	copied := j
	s.journal[j.ID] = &copied
	return newBalance, nil
}

func (s *MemStore) Refund(_ context.Context, journalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.journal[journalID]
	if !ok || j.Status != types.JournalCharged {
		return nil
	}
	j.Status = types.JournalRefunded
	_, err := s.adjustLocked(j.UserID, j.Amount)
	return err
}

func (s *MemStore) Settle(_ context.Context, journalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.journal[journalID]
	if !ok || j.Status != types.JournalCharged {
		return ErrJournalNotFound
	}
	j.Status = types.JournalSettled
	return nil
}

func (s *MemStore) StaleCharged(_ context.Context, olderThan time.Duration) ([]types.ProvisionJournal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var entries []types.ProvisionJournal
	for _, j := range s.journal {
		if j.Status == types.JournalCharged && j.CreatedAt.Before(cutoff) {
			entries = append(entries, *j)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

// Invoices, TopupLogs and TrialLogs expose copies for assertions and stats.
func (s *MemStore) Invoices() []types.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Invoice(nil), s.invoices...)
}

func (s *MemStore) TopupLogs() []types.TopupLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.TopupLog(nil), s.topups...)
}

func (s *MemStore) TrialLogs() []types.TrialLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.TrialLog(nil), s.trials...)
}

func (s *MemStore) Sales() []types.SaleRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.SaleRecord(nil), s.sales...)
}
