package migrations

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestApplyExecutesAllMigrations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	for range statements {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	if err := Apply(context.Background(), db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

// Transaction rows are a payment trail that must outlive the owning account,
// so the schema must not couple them to accounts with a foreign key.
func TestTransactionRowsNotCoupledToAccounts(t *testing.T) {
	for i, stmt := range statements {
		if !strings.Contains(stmt, "transactions") {
			continue
		}
		if strings.Contains(stmt, "REFERENCES") || strings.Contains(stmt, "CASCADE") {
			t.Fatalf("migration %d ties transactions to accounts: %s", i, stmt)
		}
	}
}
