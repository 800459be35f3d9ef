package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/secretlease/marketplace/internal/app/domain/account"
	"github.com/secretlease/marketplace/internal/app/storage"
)

var txColumnNames = []string{
	"id", "account_id", "account_email", "amount", "method", "status", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func txRows(id, accountID, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(txColumnNames).
		AddRow(id, accountID, "user@example.com", 60.0, "paypal", status, now, now)
}

func TestCompleteTransactionDualWrite(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE transactions`).
		WithArgs("tx-1", sqlmock.AnyArg()).
		WillReturnRows(txRows("tx-1", "acct-1", "completed"))
	mock.ExpectExec(`UPDATE accounts`).
		WithArgs("acct-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := store.CompleteTransaction(context.Background(), "tx-1")
	if err != nil {
		t.Fatalf("CompleteTransaction: %v", err)
	}
	if tx.AccountID != "acct-1" {
		t.Fatalf("account id = %q, want acct-1", tx.AccountID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompleteTransactionAlreadyResolved(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE transactions`).
		WithArgs("tx-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(txColumnNames))
	// The conditional update matched nothing; the store re-reads to decide
	// between not-found and invalid-state.
	mock.ExpectQuery(`SELECT .+ FROM transactions`).
		WithArgs("tx-1").
		WillReturnRows(txRows("tx-1", "acct-1", "completed"))
	mock.ExpectRollback()

	_, err := store.CompleteTransaction(context.Background(), "tx-1")
	if !errors.Is(err, storage.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestRejectTransactionUnknownID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE transactions`).
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(txColumnNames))
	mock.ExpectQuery(`SELECT .+ FROM transactions`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(txColumnNames))

	_, err := store.RejectTransaction(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO accounts`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateAccount(context.Background(), account.Account{
		Email:        "Dup@Example.com",
		PasswordHash: "hash",
		Role:         account.RoleUser,
	})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestApproveAccountSecondApproval(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	accountRow := sqlmock.NewRows([]string{
		"id", "email", "password_hash", "role", "is_approved", "has_paid",
		"payment_method", "payment_email", "wallet_address", "transaction_ref",
		"favorites", "created_at", "updated_at",
	}).AddRow("acct-1", "user@example.com", "hash", "user", true, true,
		"paypal", "user@example.com", "", "ref-1", []byte(`[]`), now, now)

	mock.ExpectExec(`UPDATE accounts`).
		WithArgs("acct-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM accounts`).
		WithArgs("acct-1").
		WillReturnRows(accountRow)

	_, err := store.ApproveAccount(context.Background(), "acct-1")
	if !errors.Is(err, storage.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}
