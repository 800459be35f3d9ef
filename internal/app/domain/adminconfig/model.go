// Package adminconfig defines the singleton payment-destination record.
package adminconfig

import "time"

// Config holds the membership price and the destinations shown to users on
// the payment screen. Exactly one row exists at any time.
type Config struct {
	ID          string    `json:"id"`
	PayPalEmail string    `json:"paypalEmail"`
	BTCAddress  string    `json:"btcAddress"`
	USDTAddress string    `json:"usdtAddress"`
	PriceUSD    float64   `json:"priceUsd"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Default is the configuration created when none exists yet.
func Default() Config {
	return Config{
		PayPalEmail: "payments@secretlease.com",
		BTCAddress:  "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh",
		USDTAddress: "TJsH5K8xxxTRC20xxxADDRESSxxx7Y3z",
		PriceUSD:    60,
	}
}
