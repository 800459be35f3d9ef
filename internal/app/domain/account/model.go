// Package account defines the account model and its access rules.
package account

import "time"

// Role distinguishes regular members from the operator.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// PaymentMethod identifies how the membership fee was attested.
type PaymentMethod string

const (
	MethodPayPal PaymentMethod = "paypal"
	MethodBTC    PaymentMethod = "btc"
	MethodUSDT   PaymentMethod = "usdt"
)

// ValidMethod reports whether m is a recognised payment method.
func ValidMethod(m PaymentMethod) bool {
	switch m {
	case MethodPayPal, MethodBTC, MethodUSDT:
		return true
	}
	return false
}

// Account is a user or admin identity with credential, approval and payment
// state. PasswordHash is never serialized.
type Account struct {
	ID             string        `json:"id"`
	Email          string        `json:"email"`
	PasswordHash   string        `json:"-"`
	Role           Role          `json:"role"`
	IsApproved     bool          `json:"isApproved"`
	HasPaid        bool          `json:"hasPaid"`
	PaymentMethod  PaymentMethod `json:"paymentMethod,omitempty"`
	PaymentEmail   string        `json:"paymentEmail,omitempty"`
	WalletAddress  string        `json:"walletAddress,omitempty"`
	TransactionRef string        `json:"transactionRef,omitempty"`
	Favorites      []string      `json:"favorites"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// FullAccess reports whether the account may see unredacted listing detail.
// Admin accounts bypass the approval machine entirely.
func (a Account) FullAccess() bool {
	return a.Role == RoleAdmin || (a.IsApproved && a.HasPaid)
}

// HasFavorite reports whether the listing id is already favorited.
func (a Account) HasFavorite(listingID string) bool {
	for _, id := range a.Favorites {
		if id == listingID {
			return true
		}
	}
	return false
}
