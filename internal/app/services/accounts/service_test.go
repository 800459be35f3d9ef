package accounts

import (
	"context"
	"testing"

	"github.com/secretlease/marketplace/internal/app/domain/account"
	"github.com/secretlease/marketplace/internal/app/domain/listing"
	"github.com/secretlease/marketplace/internal/app/storage/memory"
	"github.com/secretlease/marketplace/internal/auth"
	svcerr "github.com/secretlease/marketplace/internal/errors"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	issuer, err := auth.NewIssuer("test-secret", 0)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return New(store, store, issuer, nil, nil), store
}

func validInput() RegisterInput {
	return RegisterInput{
		Email:          "alice@example.com",
		Password:       "hunter22",
		PaymentMethod:  account.MethodPayPal,
		PaymentEmail:   "alice@example.com",
		TransactionRef: "PP-12345",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)

	acct, token, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a token")
	}
	if acct.IsApproved || acct.HasPaid {
		t.Fatalf("new accounts must start unapproved and unpaid")
	}
	if acct.FullAccess() {
		t.Fatalf("new account must not have full access")
	}

	if _, _, err := svc.Login(context.Background(), "ALICE@example.com ", "hunter22"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newService(t)

	cases := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }},
		{"short password", func(in *RegisterInput) { in.Password = "12345" }},
		{"unknown method", func(in *RegisterInput) { in.PaymentMethod = "venmo" }},
		{"paypal without payment email", func(in *RegisterInput) { in.PaymentEmail = "" }},
		{"missing tx ref", func(in *RegisterInput) { in.TransactionRef = "  " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, _, err := svc.Register(context.Background(), in)
			se := svcerr.GetServiceError(err)
			if se == nil || se.Code != svcerr.CodeValidation {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}

	btc := validInput()
	btc.PaymentMethod = account.MethodBTC
	btc.PaymentEmail = ""
	if _, _, err := svc.Register(context.Background(), btc); err == nil {
		t.Fatalf("btc without wallet address must fail")
	}
	btc.WalletAddress = "bc1qexample"
	if _, _, err := svc.Register(context.Background(), btc); err != nil {
		t.Fatalf("btc with wallet address: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newService(t)

	if _, _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("register: %v", err)
	}
	in := validInput()
	in.Email = "Alice@Example.COM"
	_, _, err := svc.Register(context.Background(), in)
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodeConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newService(t)
	if _, _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, unknownErr := svc.Login(context.Background(), "nobody@example.com", "hunter22")
	_, _, badPassErr := svc.Login(context.Background(), "alice@example.com", "wrong-pass")

	for _, err := range []error{unknownErr, badPassErr} {
		se := svcerr.GetServiceError(err)
		if se == nil || se.Code != svcerr.CodeUnauthorized {
			t.Fatalf("err = %v, want unauthorized", err)
		}
	}
	if svcerr.GetServiceError(unknownErr).Message != svcerr.GetServiceError(badPassErr).Message {
		t.Fatalf("unknown-email and bad-password responses must match")
	}
}

func TestFavorites(t *testing.T) {
	svc, store := newService(t)
	acct, _, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	l, err := store.CreateListing(context.Background(), listing.Listing{
		City: listing.CityNY, Title: "Sunny studio", Price: 1800, Active: true,
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}

	if _, err := svc.AddFavorite(context.Background(), acct.ID, l.ID); err != nil {
		t.Fatalf("add favorite: %v", err)
	}
	_, err = svc.AddFavorite(context.Background(), acct.ID, l.ID)
	if se := svcerr.GetServiceError(err); se == nil || se.Code != svcerr.CodeInvalidState {
		t.Fatalf("double add err = %v, want invalid state", err)
	}

	favs, err := svc.ListFavorites(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if len(favs) != 1 || favs[0].ID != l.ID {
		t.Fatalf("unexpected favorites: %+v", favs)
	}

	// A deleted listing disappears from the resolved list but its id can
	// still be removed without error.
	if err := store.DeleteListing(context.Background(), l.ID); err != nil {
		t.Fatalf("delete listing: %v", err)
	}
	favs, err = svc.ListFavorites(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("list favorites after delete: %v", err)
	}
	if len(favs) != 0 {
		t.Fatalf("stale favorite not skipped: %+v", favs)
	}
	if _, err := svc.RemoveFavorite(context.Background(), acct.ID, l.ID); err != nil {
		t.Fatalf("remove favorite: %v", err)
	}
	if _, err := svc.RemoveFavorite(context.Background(), acct.ID, "never-existed"); err != nil {
		t.Fatalf("removing an absent favorite must be a no-op: %v", err)
	}
}
