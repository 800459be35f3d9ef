// Package memory implements the storage interfaces in process. It is safe
// for concurrent use and is primarily intended for tests and local
// development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/secretlease/marketplace/internal/app/domain/account"
	"github.com/secretlease/marketplace/internal/app/domain/admin"
	"github.com/secretlease/marketplace/internal/app/domain/adminconfig"
	"github.com/secretlease/marketplace/internal/app/domain/listing"
	"github.com/secretlease/marketplace/internal/app/domain/payment"
	"github.com/secretlease/marketplace/internal/app/storage"
)

// Store is the in-memory implementation of every storage interface. A single
// mutex guards all record types so cross-entity mutations commit atomically.
type Store struct {
	mu sync.RWMutex

	accounts     map[string]account.Account
	accountOrder []string
	emailIndex   map[string]string

	transactions map[string]payment.Transaction
	txOrder      []string

	listings     map[string]listing.Listing
	listingOrder []string

	config *adminconfig.Config
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.TransactionStore = (*Store)(nil)
var _ storage.ListingStore = (*Store)(nil)
var _ storage.ConfigStore = (*Store)(nil)
var _ storage.StatsStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts:     make(map[string]account.Account),
		emailIndex:   make(map[string]string),
		transactions: make(map[string]payment.Transaction),
		listings:     make(map[string]listing.Listing),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountStore implementation ------------------------------------------------

func (s *Store) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(acct.Email)
	if _, exists := s.emailIndex[key]; exists {
		return account.Account{}, storage.ErrConflict
	}
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	} else if _, exists := s.accounts[acct.ID]; exists {
		return account.Account{}, storage.ErrConflict
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	acct.Favorites = cloneStrings(acct.Favorites)

	s.accounts[acct.ID] = acct
	s.accountOrder = append(s.accountOrder, acct.ID)
	s.emailIndex[key] = acct.ID
	return cloneAccount(acct), nil
}

func (s *Store) UpdateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.accounts[acct.ID]
	if !ok {
		return account.Account{}, storage.ErrNotFound
	}

	acct.Email = original.Email
	acct.CreatedAt = original.CreatedAt
	acct.UpdatedAt = time.Now().UTC()
	acct.Favorites = cloneStrings(acct.Favorites)

	s.accounts[acct.ID] = acct
	return cloneAccount(acct), nil
}

func (s *Store) GetAccount(_ context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, storage.ErrNotFound
	}
	return cloneAccount(acct), nil
}

func (s *Store) GetAccountByEmail(_ context.Context, email string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emailIndex[normalizeEmail(email)]
	if !ok {
		return account.Account{}, storage.ErrNotFound
	}
	return cloneAccount(s.accounts[id]), nil
}

func (s *Store) ListAccounts(_ context.Context) ([]account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]account.Account, 0, len(s.accountOrder))
	for i := len(s.accountOrder) - 1; i >= 0; i-- {
		if acct, ok := s.accounts[s.accountOrder[i]]; ok {
			result = append(result, cloneAccount(acct))
		}
	}
	return result, nil
}

func (s *Store) ListPendingAccounts(_ context.Context) ([]account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []account.Account
	for i := len(s.accountOrder) - 1; i >= 0; i-- {
		acct, ok := s.accounts[s.accountOrder[i]]
		if ok && acct.Role == account.RoleUser && !acct.IsApproved {
			result = append(result, cloneAccount(acct))
		}
	}
	return result, nil
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.accounts, id)
	delete(s.emailIndex, normalizeEmail(acct.Email))
	return nil
}

func (s *Store) ApproveAccount(_ context.Context, id string) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, storage.ErrNotFound
	}
	if acct.IsApproved {
		return account.Account{}, storage.ErrInvalidState
	}

	acct.IsApproved = true
	acct.HasPaid = true
	acct.UpdatedAt = time.Now().UTC()
	s.accounts[id] = acct
	return cloneAccount(acct), nil
}

// TransactionStore implementation --------------------------------------------

func (s *Store) CreateTransaction(_ context.Context, tx payment.Transaction) (payment.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[tx.AccountID]; !ok {
		return payment.Transaction{}, storage.ErrNotFound
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Status == "" {
		tx.Status = payment.StatusPending
	}

	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	s.transactions[tx.ID] = tx
	s.txOrder = append(s.txOrder, tx.ID)
	return tx, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (payment.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return payment.Transaction{}, storage.ErrNotFound
	}
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, accountID string) ([]payment.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []payment.Transaction
	for i := len(s.txOrder) - 1; i >= 0; i-- {
		tx := s.transactions[s.txOrder[i]]
		if accountID == "" || tx.AccountID == accountID {
			result = append(result, tx)
		}
	}
	return result, nil
}

// CompleteTransaction flips the transaction to completed and the owning
// account to paid under one lock hold, so no reader observes a partial
// commit and concurrent approvals serialize.
func (s *Store) CompleteTransaction(_ context.Context, id string) (payment.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return payment.Transaction{}, storage.ErrNotFound
	}
	if tx.Resolved() {
		return payment.Transaction{}, storage.ErrInvalidState
	}

	now := time.Now().UTC()
	tx.Status = payment.StatusCompleted
	tx.UpdatedAt = now
	s.transactions[id] = tx

	if acct, ok := s.accounts[tx.AccountID]; ok {
		acct.HasPaid = true
		acct.UpdatedAt = now
		s.accounts[acct.ID] = acct
	}
	return tx, nil
}

func (s *Store) RejectTransaction(_ context.Context, id string) (payment.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return payment.Transaction{}, storage.ErrNotFound
	}
	if tx.Resolved() {
		return payment.Transaction{}, storage.ErrInvalidState
	}

	tx.Status = payment.StatusRejected
	tx.UpdatedAt = time.Now().UTC()
	s.transactions[id] = tx
	return tx, nil
}

// ListingStore implementation ------------------------------------------------

func (s *Store) CreateListing(_ context.Context, l listing.Listing) (listing.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = uuid.NewString()
	} else if _, exists := s.listings[l.ID]; exists {
		return listing.Listing{}, storage.ErrConflict
	}

	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now
	l.Amenities = cloneStrings(l.Amenities)

	s.listings[l.ID] = l
	s.listingOrder = append(s.listingOrder, l.ID)
	return cloneListing(l), nil
}

func (s *Store) UpdateListing(_ context.Context, l listing.Listing) (listing.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.listings[l.ID]
	if !ok {
		return listing.Listing{}, storage.ErrNotFound
	}

	l.CreatedAt = original.CreatedAt
	l.UpdatedAt = time.Now().UTC()
	l.Amenities = cloneStrings(l.Amenities)

	s.listings[l.ID] = l
	return cloneListing(l), nil
}

func (s *Store) GetListing(_ context.Context, id string) (listing.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return listing.Listing{}, storage.ErrNotFound
	}
	return cloneListing(l), nil
}

func (s *Store) DeleteListing(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.listings, id)
	return nil
}

func (s *Store) SearchListings(_ context.Context, q storage.ListingQuery) ([]listing.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// newest first by insertion order, then re-sorted if a price sort applies
	var result []listing.Listing
	for i := len(s.listingOrder) - 1; i >= 0; i-- {
		l, ok := s.listings[s.listingOrder[i]]
		if !ok {
			continue
		}
		if q.ActiveOnly && !l.Active {
			continue
		}
		if q.City != "" && l.City != q.City {
			continue
		}
		if q.MaxPrice > 0 && l.Price > q.MaxPrice {
			continue
		}
		result = append(result, cloneListing(l))
	}

	switch q.Sort {
	case listing.SortPriceLow:
		sort.SliceStable(result, func(i, j int) bool { return result[i].Price < result[j].Price })
	case listing.SortPriceHigh:
		sort.SliceStable(result, func(i, j int) bool { return result[i].Price > result[j].Price })
	}

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

// ConfigStore implementation -------------------------------------------------

func (s *Store) GetConfig(_ context.Context) (adminconfig.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil {
		cfg := adminconfig.Default()
		cfg.ID = uuid.NewString()
		now := time.Now().UTC()
		cfg.CreatedAt = now
		cfg.UpdatedAt = now
		s.config = &cfg
	}
	return *s.config, nil
}

func (s *Store) UpsertConfig(_ context.Context, cfg adminconfig.Config) (adminconfig.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if s.config == nil {
		cfg.ID = uuid.NewString()
		cfg.CreatedAt = now
	} else {
		cfg.ID = s.config.ID
		cfg.CreatedAt = s.config.CreatedAt
	}
	cfg.UpdatedAt = now
	s.config = &cfg
	return cfg, nil
}

// StatsStore implementation --------------------------------------------------

func (s *Store) GatherStats(_ context.Context) (admin.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats admin.Stats
	for _, acct := range s.accounts {
		stats.TotalUsers++
		if acct.HasPaid {
			stats.PaidUsers++
		}
		if acct.Role == account.RoleUser && !acct.IsApproved {
			stats.PendingSignups++
		}
	}
	for _, l := range s.listings {
		if l.Active {
			stats.ActiveListings++
		}
	}
	for _, tx := range s.transactions {
		switch tx.Status {
		case payment.StatusPending:
			stats.PendingTransactions++
		case payment.StatusCompleted:
			stats.CompletedTransactions++
			stats.TotalRevenue += tx.Amount
		}
	}
	if stats.TotalUsers > 0 {
		stats.ConversionRate = int(float64(stats.PaidUsers)/float64(stats.TotalUsers)*100 + 0.5)
	}
	return stats, nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneAccount(acct account.Account) account.Account {
	acct.Favorites = cloneStrings(acct.Favorites)
	return acct
}

func cloneListing(l listing.Listing) listing.Listing {
	l.Amenities = cloneStrings(l.Amenities)
	return l
}
