// Package seed populates a store with the demo dataset: the admin account,
// a few members in different workflow states and a deterministic catalog.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/secretlease/marketplace/internal/app/domain/account"
	"github.com/secretlease/marketplace/internal/app/domain/adminconfig"
	"github.com/secretlease/marketplace/internal/app/domain/listing"
	"github.com/secretlease/marketplace/internal/app/domain/payment"
	"github.com/secretlease/marketplace/internal/app/storage"
	"github.com/secretlease/marketplace/internal/auth"
	"github.com/secretlease/marketplace/pkg/logger"
)

var neighborhoods = map[listing.City][]string{
	listing.CityNY: {"Bushwick", "Astoria", "Ridgewood", "Harlem", "Washington Heights", "Crown Heights", "Bed-Stuy", "Sunnyside", "Flatbush", "Inwood", "East Village", "LES", "Greenpoint"},
	listing.CityLA: {"Koreatown", "Echo Park", "Silver Lake", "North Hollywood", "Highland Park", "Westlake", "Palms", "Boyle Heights", "Van Nuys", "Culver City", "Eagle Rock", "Los Feliz"},
}

var (
	unitTypes  = []string{"Studio", "Private Room", "1 Bed Apt", "Basement Unit", "Shared Loft", "Micro-Unit"}
	adjectives = []string{"Cozy", "Spacious", "Sunny", "Renovated", "Quiet", "Charming", "Hidden Gem", "Modern", "Vintage", "Clean"}
	streets    = []string{"Maple", "Oak", "Washington", "Main", "Broadway", "High", "Market", "Park"}

	imageURLs = []string{
		"https://images.unsplash.com/photo-1522708323590-d24dbb6b0267?w=800",
		"https://images.unsplash.com/photo-1502672260266-1c1ef2d93688?w=800",
		"https://images.unsplash.com/photo-1560448204-e02f11c3d0e2?w=800",
		"https://images.unsplash.com/photo-1484154218962-a197022b5858?w=800",
		"https://images.unsplash.com/photo-1536376072261-38c75010e6c9?w=800",
		"https://images.unsplash.com/photo-1493809842364-78817add7ffb?w=800",
		"https://images.unsplash.com/photo-1494526585095-c41746248156?w=800",
		"https://images.unsplash.com/photo-1513584684374-8bab748fbf90?w=800",
		"https://images.unsplash.com/photo-1556020685-ae41abfc9365?w=800",
		"https://images.unsplash.com/photo-1600596542815-ffad4c1539a9?w=800",
	}

	amenitiesPool = [][]string{
		{"WiFi", "Heating", "Kitchen", "Laundry", "Parking", "Pet Friendly"},
		{"WiFi", "AC", "Dishwasher", "Gym Access", "Balcony", "Hardwood Floors"},
		{"WiFi", "Heating", "Kitchen", "Elevator", "Doorman", "Storage"},
		{"WiFi", "AC", "Washer/Dryer", "Rooftop Access", "Bike Storage", "Package Room"},
		{"WiFi", "Heating", "Renovated Kitchen", "High Ceilings", "Natural Light", "Near Subway"},
	}
)

// Params controls the seeded dataset.
type Params struct {
	ListingCount  int     `yaml:"listingCount"`
	AdminEmail    string  `yaml:"adminEmail"`
	AdminPassword string  `yaml:"adminPassword"`
	PriceUSD      float64 `yaml:"priceUsd"`
}

// DefaultParams mirrors the demo dataset shipped with the original deploy.
func DefaultParams() Params {
	return Params{
		ListingCount:  800,
		AdminEmail:    "admin@secretlease.com",
		AdminPassword: "admin123",
		PriceUSD:      60,
	}
}

// LoadParams reads overrides from a YAML file, falling back to defaults for
// absent fields.
func LoadParams(path string) (Params, error) {
	params := DefaultParams()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("read params: %w", err)
	}
	if err := yaml.Unmarshal(raw, &params); err != nil {
		return Params{}, fmt.Errorf("parse params: %w", err)
	}
	if params.ListingCount <= 0 {
		params.ListingCount = DefaultParams().ListingCount
	}
	return params, nil
}

// Stores is the subset of storage the seeder writes to.
type Stores struct {
	Accounts     storage.AccountStore
	Transactions storage.TransactionStore
	Listings     storage.ListingStore
	Config       storage.ConfigStore
}

// Run populates the stores with the demo dataset.
func Run(ctx context.Context, stores Stores, params Params, log *logger.Logger) error {
	if log == nil {
		log = logger.NewDefault("seed")
	}

	log.Info("seeding payment configuration")
	if _, err := stores.Config.UpsertConfig(ctx, adminconfig.Config{
		PayPalEmail: "payments@secretlease.com",
		BTCAddress:  "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh",
		USDTAddress: "TJsH5K8xxxTRC20xxxADDRESSxxx7Y3z",
		PriceUSD:    params.PriceUSD,
	}); err != nil {
		return fmt.Errorf("seed config: %w", err)
	}

	log.Info("seeding accounts")
	if _, err := createAccount(ctx, stores.Accounts, params.AdminEmail, params.AdminPassword, account.RoleAdmin, true, true); err != nil {
		return err
	}

	john, err := createAccount(ctx, stores.Accounts, "john@example.com", "password", account.RoleUser, true, true)
	if err != nil {
		return err
	}
	if _, err := createAccount(ctx, stores.Accounts, "sarah@example.com", "password", account.RoleUser, true, false); err != nil {
		return err
	}
	peter, err := createAccount(ctx, stores.Accounts, "peter@example.com", "password", account.RoleUser, false, false)
	if err != nil {
		return err
	}

	log.WithField("count", params.ListingCount).Info("seeding listings")
	for i := 0; i < params.ListingCount; i++ {
		if _, err := stores.Listings.CreateListing(ctx, generateListing(i)); err != nil {
			return fmt.Errorf("seed listing %d: %w", i, err)
		}
	}

	log.Info("seeding transactions")
	completed, err := stores.Transactions.CreateTransaction(ctx, payment.Transaction{
		AccountID:    john.ID,
		AccountEmail: john.Email,
		Amount:       params.PriceUSD,
		Method:       account.MethodPayPal,
		Status:       payment.StatusPending,
	})
	if err != nil {
		return fmt.Errorf("seed transaction: %w", err)
	}
	if _, err := stores.Transactions.CompleteTransaction(ctx, completed.ID); err != nil {
		return fmt.Errorf("complete seeded transaction: %w", err)
	}
	if _, err := stores.Transactions.CreateTransaction(ctx, payment.Transaction{
		AccountID:    peter.ID,
		AccountEmail: peter.Email,
		Amount:       params.PriceUSD,
		Method:       account.MethodBTC,
		Status:       payment.StatusPending,
	}); err != nil {
		return fmt.Errorf("seed transaction: %w", err)
	}

	log.Info("seed complete")
	return nil
}

func createAccount(ctx context.Context, store storage.AccountStore, email, password string, role account.Role, approved, paid bool) (account.Account, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return account.Account{}, fmt.Errorf("hash password for %s: %w", email, err)
	}
	acct, err := store.CreateAccount(ctx, account.Account{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsApproved:   approved,
		HasPaid:      paid,
		Favorites:    []string{},
	})
	if err != nil {
		return account.Account{}, fmt.Errorf("seed account %s: %w", email, err)
	}
	return acct, nil
}

// generateListing derives every attribute from the index so reseeding yields
// an identical catalog.
func generateListing(i int) listing.Listing {
	city := listing.CityNY
	if i%2 == 1 {
		city = listing.CityLA
	}
	hoods := neighborhoods[city]
	hood := hoods[(i*7+3)%len(hoods)]
	unitType := unitTypes[(i*13)%len(unitTypes)]
	adj := adjectives[(i*5)%len(adjectives)]

	basePrice := 1100
	switch {
	case strings.Contains(unitType, "Room"):
		basePrice = 500
	case strings.Contains(unitType, "Studio"):
		basePrice = 800
	}
	basePrice += (i * 19) % 600
	if i%50 == 0 {
		basePrice = basePrice * 7 / 10
	}

	beds := 1
	if strings.Contains(unitType, "Studio") || strings.Contains(unitType, "Room") {
		beds = 0
	}

	return listing.Listing{
		City:      city,
		Title:     fmt.Sprintf("%s %s in %s", adj, unitType, hood),
		Area:      hood,
		Price:     basePrice / 10 * 10,
		Beds:      beds,
		Baths:     1,
		Sqft:      150 + (i*23)%500,
		Type:      unitType,
		Address:   fmt.Sprintf("%d %s St", (i*37)%900+100, streets[i%len(streets)]),
		ImageURL:  imageURLs[i%len(imageURLs)],
		Amenities: amenitiesPool[i%len(amenitiesPool)],
		Contact:   fmt.Sprintf("landlord%d@rentals.com", i%20),
		Active:    true,
	}
}
