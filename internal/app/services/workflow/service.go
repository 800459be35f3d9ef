// Package workflow implements the access-state machine: payment attestation,
// transaction resolution and signup approval.
package workflow

import (
	"context"
	"errors"

	"github.com/secretlease/marketplace/internal/app/domain/account"
	"github.com/secretlease/marketplace/internal/app/domain/payment"
	"github.com/secretlease/marketplace/internal/app/storage"
	svcerr "github.com/secretlease/marketplace/internal/errors"
	"github.com/secretlease/marketplace/pkg/logger"
)

// Service coordinates accounts and transactions through the approval
// workflow. All state transitions happen in the store so concurrent admin
// actions cannot race.
type Service struct {
	accounts     storage.AccountStore
	transactions storage.TransactionStore
	log          *logger.Logger
}

// New constructs the workflow service.
func New(accounts storage.AccountStore, transactions storage.TransactionStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("workflow")
	}
	return &Service{accounts: accounts, transactions: transactions, log: log}
}

// SubmitPayment records a pending transaction attesting that the member has
// sent the membership fee. The account email is snapshotted so the record
// survives account deletion.
func (s *Service) SubmitPayment(ctx context.Context, accountID string, amount float64, method account.PaymentMethod) (payment.Transaction, error) {
	if amount <= 0 {
		return payment.Transaction{}, svcerr.Validation("amount must be positive")
	}
	if !account.ValidMethod(method) {
		return payment.Transaction{}, svcerr.Validation("payment method must be paypal, btc or usdt")
	}

	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return payment.Transaction{}, svcerr.NotFound("account not found")
		}
		return payment.Transaction{}, svcerr.Internal("lookup account", err)
	}

	tx, err := s.transactions.CreateTransaction(ctx, payment.Transaction{
		AccountID:    acct.ID,
		AccountEmail: acct.Email,
		Amount:       amount,
		Method:       method,
		Status:       payment.StatusPending,
	})
	if err != nil {
		return payment.Transaction{}, svcerr.Internal("create transaction", err)
	}

	s.log.WithField("transaction_id", tx.ID).WithField("account_id", acct.ID).Info("payment submitted")
	return tx, nil
}

// ApproveTransaction marks a pending transaction completed and flips the
// owner's paid flag in the same store commit. Of two concurrent approvals
// exactly one succeeds; the other observes an invalid-state error.
func (s *Service) ApproveTransaction(ctx context.Context, txID string) (payment.Transaction, error) {
	tx, err := s.transactions.CompleteTransaction(ctx, txID)
	if err != nil {
		return payment.Transaction{}, translateResolution(err)
	}
	s.log.WithField("transaction_id", tx.ID).Info("transaction approved")
	return tx, nil
}

// RejectTransaction marks a pending transaction rejected. The owning account
// is untouched.
func (s *Service) RejectTransaction(ctx context.Context, txID string) (payment.Transaction, error) {
	tx, err := s.transactions.RejectTransaction(ctx, txID)
	if err != nil {
		return payment.Transaction{}, translateResolution(err)
	}
	s.log.WithField("transaction_id", tx.ID).Info("transaction rejected")
	return tx, nil
}

// ApproveSignup grants a pending account both approval and paid status in one
// step. Approving an already approved account fails.
func (s *Service) ApproveSignup(ctx context.Context, accountID string) (account.Account, error) {
	acct, err := s.accounts.ApproveAccount(ctx, accountID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return account.Account{}, svcerr.NotFound("account not found")
		case errors.Is(err, storage.ErrInvalidState):
			return account.Account{}, svcerr.InvalidState("account is already approved")
		}
		return account.Account{}, svcerr.Internal("approve account", err)
	}
	s.log.WithField("account_id", acct.ID).Info("signup approved")
	return acct, nil
}

// RejectSignup removes the account record entirely.
func (s *Service) RejectSignup(ctx context.Context, accountID string) error {
	if err := s.accounts.DeleteAccount(ctx, accountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return svcerr.NotFound("account not found")
		}
		return svcerr.Internal("delete account", err)
	}
	s.log.WithField("account_id", accountID).Info("signup rejected")
	return nil
}

// PendingSignups lists unapproved member accounts, newest first.
func (s *Service) PendingSignups(ctx context.Context) ([]account.Account, error) {
	accts, err := s.accounts.ListPendingAccounts(ctx)
	if err != nil {
		return nil, svcerr.Internal("list pending accounts", err)
	}
	return accts, nil
}

// ListAccounts returns every account, newest first.
func (s *Service) ListAccounts(ctx context.Context) ([]account.Account, error) {
	accts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, svcerr.Internal("list accounts", err)
	}
	return accts, nil
}

// ListTransactions returns transactions newest first: all of them when
// accountID is empty, otherwise only the account's own.
func (s *Service) ListTransactions(ctx context.Context, accountID string) ([]payment.Transaction, error) {
	txs, err := s.transactions.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, svcerr.Internal("list transactions", err)
	}
	return txs, nil
}

// PendingTransactions filters the ledger to unresolved rows, scoped the same
// way as ListTransactions.
func (s *Service) PendingTransactions(ctx context.Context, accountID string) ([]payment.Transaction, error) {
	txs, err := s.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	pending := txs[:0]
	for _, tx := range txs {
		if tx.Status == payment.StatusPending {
			pending = append(pending, tx)
		}
	}
	return pending, nil
}

func translateResolution(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return svcerr.NotFound("transaction not found")
	case errors.Is(err, storage.ErrInvalidState):
		return svcerr.InvalidState("transaction has already been resolved")
	}
	return svcerr.Internal("resolve transaction", err)
}
