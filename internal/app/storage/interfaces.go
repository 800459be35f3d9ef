package storage

import (
	"context"
	"errors"

	"github.com/secretlease/marketplace/internal/app/domain/account"
	"github.com/secretlease/marketplace/internal/app/domain/admin"
	"github.com/secretlease/marketplace/internal/app/domain/adminconfig"
	"github.com/secretlease/marketplace/internal/app/domain/listing"
	"github.com/secretlease/marketplace/internal/app/domain/payment"
)

// Sentinel errors returned by stores. Services translate these into the
// caller-visible taxonomy.
var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("record already exists")
	ErrInvalidState = errors.New("illegal state transition")
)

// ListingQuery filters and orders a catalog search.
type ListingQuery struct {
	City       listing.City
	MaxPrice   int
	Sort       string
	ActiveOnly bool
	Limit      int
}

// AccountStore persists account records.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	GetAccount(ctx context.Context, id string) (account.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (account.Account, error)
	ListAccounts(ctx context.Context) ([]account.Account, error)
	ListPendingAccounts(ctx context.Context) ([]account.Account, error)
	DeleteAccount(ctx context.Context, id string) error

	// ApproveAccount flips IsApproved and HasPaid together. The state check
	// and the update are atomic: a second approval observes ErrInvalidState.
	ApproveAccount(ctx context.Context, id string) (account.Account, error)
}

// TransactionStore persists payment transactions. Resolution methods carry
// the atomic dual-write guarantee: CompleteTransaction commits the status
// change and the owning account's HasPaid flag in one unit, and only the
// first resolution of a pending transaction succeeds.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx payment.Transaction) (payment.Transaction, error)
	GetTransaction(ctx context.Context, id string) (payment.Transaction, error)
	ListTransactions(ctx context.Context, accountID string) ([]payment.Transaction, error)
	CompleteTransaction(ctx context.Context, id string) (payment.Transaction, error)
	RejectTransaction(ctx context.Context, id string) (payment.Transaction, error)
}

// ListingStore persists the catalog.
type ListingStore interface {
	CreateListing(ctx context.Context, l listing.Listing) (listing.Listing, error)
	UpdateListing(ctx context.Context, l listing.Listing) (listing.Listing, error)
	GetListing(ctx context.Context, id string) (listing.Listing, error)
	DeleteListing(ctx context.Context, id string) error
	SearchListings(ctx context.Context, q ListingQuery) ([]listing.Listing, error)
}

// ConfigStore persists the singleton admin configuration.
type ConfigStore interface {
	// GetConfig returns the configuration, creating the default row when
	// none exists.
	GetConfig(ctx context.Context) (adminconfig.Config, error)
	UpsertConfig(ctx context.Context, cfg adminconfig.Config) (adminconfig.Config, error)
}

// StatsStore computes dashboard aggregates.
type StatsStore interface {
	GatherStats(ctx context.Context) (admin.Stats, error)
}
