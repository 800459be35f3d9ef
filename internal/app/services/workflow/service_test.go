package workflow

import (
	"context"
	"sync"
	"testing"

	"github.com/secretlease/marketplace/internal/app/domain/account"
	"github.com/secretlease/marketplace/internal/app/domain/payment"
	"github.com/secretlease/marketplace/internal/app/storage/memory"
	svcerr "github.com/secretlease/marketplace/internal/errors"
)

func seedAccount(t *testing.T, store *memory.Store) account.Account {
	t.Helper()
	acct, err := store.CreateAccount(context.Background(), account.Account{
		Email:        "member@example.com",
		PasswordHash: "hash",
		Role:         account.RoleUser,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acct
}

func TestApproveTransactionDualWrite(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	acct := seedAccount(t, store)

	tx, err := svc.SubmitPayment(context.Background(), acct.ID, 60, account.MethodPayPal)
	if err != nil {
		t.Fatalf("submit payment: %v", err)
	}
	if tx.Status != payment.StatusPending {
		t.Fatalf("status = %s, want pending", tx.Status)
	}
	if tx.AccountEmail != acct.Email {
		t.Fatalf("email not snapshotted: %q", tx.AccountEmail)
	}

	approved, err := svc.ApproveTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != payment.StatusCompleted {
		t.Fatalf("status = %s, want completed", approved.Status)
	}

	refreshed, err := store.GetAccount(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if !refreshed.HasPaid {
		t.Fatalf("account paid flag not set with transaction completion")
	}

	_, err = svc.ApproveTransaction(context.Background(), tx.ID)
	if se := svcerr.GetServiceError(err); se == nil || se.Code != svcerr.CodeInvalidState {
		t.Fatalf("second approve err = %v, want invalid state", err)
	}
}

func TestConcurrentApprovalsExactlyOneSucceeds(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	acct := seedAccount(t, store)

	tx, err := svc.SubmitPayment(context.Background(), acct.ID, 60, account.MethodBTC)
	if err != nil {
		t.Fatalf("submit payment: %v", err)
	}

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApproveTransaction(context.Background(), tx.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		se := svcerr.GetServiceError(err)
		if se == nil || se.Code != svcerr.CodeInvalidState {
			t.Fatalf("loser err = %v, want invalid state", err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
}

func TestRejectTransactionLeavesAccountUnpaid(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	acct := seedAccount(t, store)

	tx, err := svc.SubmitPayment(context.Background(), acct.ID, 60, account.MethodUSDT)
	if err != nil {
		t.Fatalf("submit payment: %v", err)
	}
	rejected, err := svc.RejectTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != payment.StatusRejected {
		t.Fatalf("status = %s, want rejected", rejected.Status)
	}

	refreshed, _ := store.GetAccount(context.Background(), acct.ID)
	if refreshed.HasPaid {
		t.Fatalf("reject must not mark the account paid")
	}

	_, err = svc.ApproveTransaction(context.Background(), tx.ID)
	if se := svcerr.GetServiceError(err); se == nil || se.Code != svcerr.CodeInvalidState {
		t.Fatalf("approve after reject err = %v, want invalid state", err)
	}
}

func TestSubmitPaymentValidation(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	acct := seedAccount(t, store)

	if _, err := svc.SubmitPayment(context.Background(), acct.ID, 0, account.MethodPayPal); err == nil {
		t.Fatalf("zero amount must fail")
	}
	if _, err := svc.SubmitPayment(context.Background(), acct.ID, 60, "cash"); err == nil {
		t.Fatalf("unknown method must fail")
	}
	_, err := svc.SubmitPayment(context.Background(), "missing", 60, account.MethodPayPal)
	if se := svcerr.GetServiceError(err); se == nil || se.Code != svcerr.CodeNotFound {
		t.Fatalf("unknown account err = %v, want not found", err)
	}
}

func TestApproveSignupFusesApprovalAndPayment(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	acct := seedAccount(t, store)

	approved, err := svc.ApproveSignup(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("approve signup: %v", err)
	}
	if !approved.IsApproved || !approved.HasPaid {
		t.Fatalf("approve signup must set both flags: %+v", approved)
	}
	if !approved.FullAccess() {
		t.Fatalf("approved member must have full access")
	}

	_, err = svc.ApproveSignup(context.Background(), acct.ID)
	if se := svcerr.GetServiceError(err); se == nil || se.Code != svcerr.CodeInvalidState {
		t.Fatalf("second approve err = %v, want invalid state", err)
	}
}

func TestRejectSignupDeletesAccount(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	acct := seedAccount(t, store)

	if err := svc.RejectSignup(context.Background(), acct.ID); err != nil {
		t.Fatalf("reject signup: %v", err)
	}
	if _, err := store.GetAccount(context.Background(), acct.ID); err == nil {
		t.Fatalf("account record must be gone")
	}
	err := svc.RejectSignup(context.Background(), acct.ID)
	if se := svcerr.GetServiceError(err); se == nil || se.Code != svcerr.CodeNotFound {
		t.Fatalf("second reject err = %v, want not found", err)
	}
}

func TestRejectSignupKeepsTransactionHistory(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	acct := seedAccount(t, store)

	tx, err := svc.SubmitPayment(context.Background(), acct.ID, 60, account.MethodPayPal)
	if err != nil {
		t.Fatalf("submit payment: %v", err)
	}
	if err := svc.RejectSignup(context.Background(), acct.ID); err != nil {
		t.Fatalf("reject signup: %v", err)
	}

	kept, err := store.GetTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("transaction must survive account deletion: %v", err)
	}
	if kept.AccountEmail != acct.Email {
		t.Fatalf("snapshotted email lost: %q", kept.AccountEmail)
	}
}

func TestPendingSignupsNewestFirst(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	first, _ := store.CreateAccount(context.Background(), account.Account{Email: "a@example.com", Role: account.RoleUser})
	second, _ := store.CreateAccount(context.Background(), account.Account{Email: "b@example.com", Role: account.RoleUser})
	if _, err := store.CreateAccount(context.Background(), account.Account{Email: "admin@example.com", Role: account.RoleAdmin}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if _, err := svc.ApproveSignup(context.Background(), first.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	pending, err := svc.PendingSignups(context.Background())
	if err != nil {
		t.Fatalf("pending signups: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Fatalf("unexpected pending set: %+v", pending)
	}
}

func TestListTransactionsScoping(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	alice := seedAccount(t, store)
	bob, _ := store.CreateAccount(context.Background(), account.Account{Email: "bob@example.com", Role: account.RoleUser})

	if _, err := svc.SubmitPayment(context.Background(), alice.ID, 60, account.MethodPayPal); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.SubmitPayment(context.Background(), bob.ID, 60, account.MethodBTC); err != nil {
		t.Fatalf("submit: %v", err)
	}

	all, err := svc.ListTransactions(context.Background(), "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin view = %d rows, want 2", len(all))
	}

	own, err := svc.ListTransactions(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("list own: %v", err)
	}
	if len(own) != 1 || own[0].AccountID != alice.ID {
		t.Fatalf("member view leaked rows: %+v", own)
	}
}

func TestPendingTransactionsFilter(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	alice := seedAccount(t, store)
	bob, _ := store.CreateAccount(context.Background(), account.Account{Email: "bob@example.com", Role: account.RoleUser})

	resolved, err := svc.SubmitPayment(context.Background(), alice.ID, 60, account.MethodPayPal)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.ApproveTransaction(context.Background(), resolved.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	open, err := svc.SubmitPayment(context.Background(), bob.ID, 60, account.MethodBTC)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	pending, err := svc.PendingTransactions(context.Background(), "")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != open.ID {
		t.Fatalf("unexpected pending set: %+v", pending)
	}

	scoped, err := svc.PendingTransactions(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("pending scoped: %v", err)
	}
	if len(scoped) != 0 {
		t.Fatalf("alice has no pending rows, got %+v", scoped)
	}
}
