// Package payment defines the membership payment transaction model.
package payment

import (
	"time"

	"github.com/secretlease/marketplace/internal/app/domain/account"
)

// Status is a transaction's adjudication state. Once completed or rejected a
// transaction is immutable.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// Transaction is a user-submitted payment attestation awaiting admin review.
// AccountEmail snapshots the submitter's email at submission time for audit.
type Transaction struct {
	ID           string                `json:"id"`
	AccountID    string                `json:"userId"`
	AccountEmail string                `json:"userEmail"`
	Amount       float64               `json:"amount"`
	Method       account.PaymentMethod `json:"method"`
	Status       Status                `json:"status"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// Resolved reports whether the transaction has reached a terminal status.
func (t Transaction) Resolved() bool {
	return t.Status != StatusPending
}
