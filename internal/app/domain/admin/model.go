// Package admin provides administrative dashboard types.
package admin

// Stats is the operator dashboard aggregate.
type Stats struct {
	TotalUsers            int     `json:"totalUsers"`
	PaidUsers             int     `json:"paidUsers"`
	PendingSignups        int     `json:"pendingSignups"`
	ActiveListings        int     `json:"totalListings"`
	PendingTransactions   int     `json:"pendingTransactions"`
	CompletedTransactions int     `json:"completedTransactions"`
	TotalRevenue          float64 `json:"totalRevenue"`
	ConversionRate        int     `json:"conversionRate"`
}
