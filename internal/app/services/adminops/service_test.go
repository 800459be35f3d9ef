package adminops

import (
	"context"
	"testing"

	"github.com/secretlease/marketplace/internal/app/domain/account"
	"github.com/secretlease/marketplace/internal/app/domain/listing"
	"github.com/secretlease/marketplace/internal/app/domain/payment"
	"github.com/secretlease/marketplace/internal/app/storage/memory"
	svcerr "github.com/secretlease/marketplace/internal/errors"
)

func TestStats(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	paid, _ := store.CreateAccount(ctx, account.Account{Email: "paid@example.com", Role: account.RoleUser})
	if _, err := store.ApproveAccount(ctx, paid.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := store.CreateAccount(ctx, account.Account{Email: "pending@example.com", Role: account.RoleUser}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateAccount(ctx, account.Account{Email: "admin@example.com", Role: account.RoleAdmin}); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	if _, err := store.CreateListing(ctx, listing.Listing{City: listing.CityNY, Title: "A", Price: 1000, Active: true}); err != nil {
		t.Fatalf("listing: %v", err)
	}
	if _, err := store.CreateListing(ctx, listing.Listing{City: listing.CityLA, Title: "B", Price: 1200, Active: false}); err != nil {
		t.Fatalf("listing: %v", err)
	}

	tx, _ := store.CreateTransaction(ctx, payment.Transaction{AccountID: paid.ID, AccountEmail: paid.Email, Amount: 60, Method: account.MethodPayPal})
	if _, err := store.CompleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := store.CreateTransaction(ctx, payment.Transaction{AccountID: paid.ID, AccountEmail: paid.Email, Amount: 60, Method: account.MethodBTC}); err != nil {
		t.Fatalf("create tx: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalUsers != 3 {
		t.Fatalf("total users = %d, want 3", stats.TotalUsers)
	}
	if stats.PaidUsers != 1 {
		t.Fatalf("paid users = %d, want 1", stats.PaidUsers)
	}
	if stats.PendingSignups != 1 {
		t.Fatalf("pending signups = %d, want 1", stats.PendingSignups)
	}
	if stats.ActiveListings != 1 {
		t.Fatalf("active listings = %d, want 1", stats.ActiveListings)
	}
	if stats.PendingTransactions != 1 || stats.CompletedTransactions != 1 {
		t.Fatalf("transaction counts = %d/%d, want 1/1", stats.PendingTransactions, stats.CompletedTransactions)
	}
	if stats.TotalRevenue != 60 {
		t.Fatalf("revenue = %v, want 60", stats.TotalRevenue)
	}
	// 1 paid of 3 total rounds to 33.
	if stats.ConversionRate != 33 {
		t.Fatalf("conversion rate = %d, want 33", stats.ConversionRate)
	}
}

func TestStatsEmptyStore(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ConversionRate != 0 {
		t.Fatalf("conversion rate with no users = %d, want 0", stats.ConversionRate)
	}
}

func TestConfigDefaultsAndUpdate(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	cfg, err := svc.GetConfig(ctx)
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg.PriceUSD != 60 {
		t.Fatalf("default price = %v, want 60", cfg.PriceUSD)
	}
	if cfg.PayPalEmail == "" || cfg.BTCAddress == "" || cfg.USDTAddress == "" {
		t.Fatalf("defaults incomplete: %+v", cfg)
	}

	cfg.PriceUSD = 75
	cfg.PayPalEmail = "billing@example.com"
	updated, err := svc.UpdateConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("update config: %v", err)
	}
	if updated.PriceUSD != 75 {
		t.Fatalf("price not updated: %v", updated.PriceUSD)
	}

	again, err := svc.GetConfig(ctx)
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if again.PayPalEmail != "billing@example.com" {
		t.Fatalf("update not persisted: %+v", again)
	}

	bad := again
	bad.PriceUSD = 0
	_, err = svc.UpdateConfig(ctx, bad)
	if se := svcerr.GetServiceError(err); se == nil || se.Code != svcerr.CodeValidation {
		t.Fatalf("zero price err = %v, want validation", err)
	}
}
