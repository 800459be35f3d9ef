// Package accounts implements registration, authentication and the member
// profile operations.
package accounts

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/secretlease/marketplace/internal/app/domain/account"
	"github.com/secretlease/marketplace/internal/app/domain/listing"
	"github.com/secretlease/marketplace/internal/app/storage"
	"github.com/secretlease/marketplace/internal/auth"
	svcerr "github.com/secretlease/marketplace/internal/errors"
	"github.com/secretlease/marketplace/internal/kv"
	"github.com/secretlease/marketplace/pkg/logger"
)

const minPasswordLength = 6

// RegisterInput carries the signup payload including the payment attestation.
type RegisterInput struct {
	Email          string
	Password       string
	PaymentMethod  account.PaymentMethod
	PaymentEmail   string
	WalletAddress  string
	TransactionRef string
}

// Service wires account storage with token issuance and revocation.
type Service struct {
	store    storage.AccountStore
	listings storage.ListingStore
	issuer   *auth.Issuer
	revoker  kv.TokenRevoker
	log      *logger.Logger
}

// New constructs the accounts service.
func New(store storage.AccountStore, listings storage.ListingStore, issuer *auth.Issuer, revoker kv.TokenRevoker, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	if revoker == nil {
		revoker = kv.NewMemoryRevoker()
	}
	return &Service{store: store, listings: listings, issuer: issuer, revoker: revoker, log: log}
}

// Register validates the signup payload, creates the account in the
// not-approved/not-paid state and issues a session token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (account.Account, string, error) {
	if err := validateRegister(in); err != nil {
		return account.Account{}, "", err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return account.Account{}, "", svcerr.Internal("hash password", err)
	}

	acct, err := s.store.CreateAccount(ctx, account.Account{
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:   hash,
		Role:           account.RoleUser,
		PaymentMethod:  in.PaymentMethod,
		PaymentEmail:   strings.TrimSpace(in.PaymentEmail),
		WalletAddress:  strings.TrimSpace(in.WalletAddress),
		TransactionRef: strings.TrimSpace(in.TransactionRef),
		Favorites:      []string{},
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return account.Account{}, "", svcerr.Conflict("an account with this email already exists")
		}
		return account.Account{}, "", svcerr.Internal("create account", err)
	}

	token, err := s.issuer.Issue(acct.ID, string(acct.Role))
	if err != nil {
		return account.Account{}, "", svcerr.Internal("issue token", err)
	}

	s.log.WithField("account_id", acct.ID).Info("account registered")
	return acct, token, nil
}

// Login authenticates by email and password. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (account.Account, string, error) {
	acct, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return account.Account{}, "", svcerr.Unauthorized("invalid email or password")
		}
		return account.Account{}, "", svcerr.Internal("lookup account", err)
	}
	if !auth.CheckPassword(acct.PasswordHash, password) {
		return account.Account{}, "", svcerr.Unauthorized("invalid email or password")
	}

	token, err := s.issuer.Issue(acct.ID, string(acct.Role))
	if err != nil {
		return account.Account{}, "", svcerr.Internal("issue token", err)
	}
	return acct, token, nil
}

// Get returns the account by id.
func (s *Service) Get(ctx context.Context, id string) (account.Account, error) {
	acct, err := s.store.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return account.Account{}, svcerr.NotFound("account not found")
		}
		return account.Account{}, svcerr.Internal("lookup account", err)
	}
	return acct, nil
}

// Logout places the presented token on the revocation list for the remainder
// of its lifetime.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.revoker.Revoke(ctx, token, s.issuer.TTL()); err != nil {
		return svcerr.Internal("revoke token", err)
	}
	return nil
}

// AddFavorite records a listing on the account's favorites list.
func (s *Service) AddFavorite(ctx context.Context, accountID, listingID string) (account.Account, error) {
	if _, err := s.listings.GetListing(ctx, listingID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return account.Account{}, svcerr.NotFound("listing not found")
		}
		return account.Account{}, svcerr.Internal("lookup listing", err)
	}

	acct, err := s.Get(ctx, accountID)
	if err != nil {
		return account.Account{}, err
	}
	if acct.HasFavorite(listingID) {
		return account.Account{}, svcerr.InvalidState("listing already in favorites")
	}

	acct.Favorites = append(acct.Favorites, listingID)
	updated, err := s.store.UpdateAccount(ctx, acct)
	if err != nil {
		return account.Account{}, svcerr.Internal("update favorites", err)
	}
	return updated, nil
}

// RemoveFavorite drops a listing from the favorites list. Removing an id that
// is not present is a no-op.
func (s *Service) RemoveFavorite(ctx context.Context, accountID, listingID string) (account.Account, error) {
	acct, err := s.Get(ctx, accountID)
	if err != nil {
		return account.Account{}, err
	}

	kept := acct.Favorites[:0]
	for _, id := range acct.Favorites {
		if id != listingID {
			kept = append(kept, id)
		}
	}
	acct.Favorites = kept

	updated, err := s.store.UpdateAccount(ctx, acct)
	if err != nil {
		return account.Account{}, svcerr.Internal("update favorites", err)
	}
	return updated, nil
}

// ListFavorites resolves the favorites list against the catalog. Ids whose
// listing has since been deleted are skipped.
func (s *Service) ListFavorites(ctx context.Context, accountID string) ([]listing.Listing, error) {
	acct, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	result := make([]listing.Listing, 0, len(acct.Favorites))
	for _, id := range acct.Favorites {
		l, err := s.listings.GetListing(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, svcerr.Internal("lookup listing", err)
		}
		result = append(result, l)
	}
	return result, nil
}

func validateRegister(in RegisterInput) error {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return svcerr.Validation("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return svcerr.Validation("email is not a valid address")
	}
	if len(in.Password) < minPasswordLength {
		return svcerr.Validation("password must be at least 6 characters")
	}
	if !account.ValidMethod(in.PaymentMethod) {
		return svcerr.Validation("payment method must be paypal, btc or usdt")
	}
	switch in.PaymentMethod {
	case account.MethodPayPal:
		if strings.TrimSpace(in.PaymentEmail) == "" {
			return svcerr.Validation("payment email is required for paypal")
		}
	case account.MethodBTC, account.MethodUSDT:
		if strings.TrimSpace(in.WalletAddress) == "" {
			return svcerr.Validation("wallet address is required for crypto payments")
		}
	}
	if strings.TrimSpace(in.TransactionRef) == "" {
		return svcerr.Validation("transaction reference is required")
	}
	return nil
}
