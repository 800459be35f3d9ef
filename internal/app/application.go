package app

import (
	"github.com/secretlease/marketplace/internal/app/services/accounts"
	"github.com/secretlease/marketplace/internal/app/services/adminops"
	"github.com/secretlease/marketplace/internal/app/services/listings"
	"github.com/secretlease/marketplace/internal/app/services/workflow"
	"github.com/secretlease/marketplace/internal/app/storage"
	"github.com/secretlease/marketplace/internal/app/storage/memory"
	"github.com/secretlease/marketplace/internal/auth"
	"github.com/secretlease/marketplace/internal/kv"
	"github.com/secretlease/marketplace/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Accounts     storage.AccountStore
	Transactions storage.TransactionStore
	Listings     storage.ListingStore
	Config       storage.ConfigStore
	Stats        storage.StatsStore
}

// Application ties the domain services together.
type Application struct {
	log *logger.Logger

	Accounts *accounts.Service
	Workflow *workflow.Service
	Listings *listings.Service
	AdminOps *adminops.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, issuer *auth.Issuer, revoker kv.TokenRevoker, log *logger.Logger) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if revoker == nil {
		revoker = kv.NewMemoryRevoker()
	}

	mem := memory.New()
	if stores.Accounts == nil {
		stores.Accounts = mem
	}
	if stores.Transactions == nil {
		stores.Transactions = mem
	}
	if stores.Listings == nil {
		stores.Listings = mem
	}
	if stores.Config == nil {
		stores.Config = mem
	}
	if stores.Stats == nil {
		stores.Stats = mem
	}

	return &Application{
		log:      log,
		Accounts: accounts.New(stores.Accounts, stores.Listings, issuer, revoker, log),
		Workflow: workflow.New(stores.Accounts, stores.Transactions, log),
		Listings: listings.New(stores.Listings, log),
		AdminOps: adminops.New(stores.Stats, stores.Config, log),
	}
}
