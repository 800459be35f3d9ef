package listings

import (
	"context"
	"testing"

	"github.com/secretlease/marketplace/internal/app/domain/account"
	"github.com/secretlease/marketplace/internal/app/domain/listing"
	"github.com/secretlease/marketplace/internal/app/storage/memory"
	svcerr "github.com/secretlease/marketplace/internal/errors"
)

func seedCatalog(t *testing.T, store *memory.Store) []listing.Listing {
	t.Helper()
	fixtures := []listing.Listing{
		{City: listing.CityNY, Title: "Soho loft", Area: "Soho", Price: 3200, Beds: 1, Baths: 1, Sqft: 700,
			Type: "apartment", Address: "12 Greene St", Contact: "agent-1@example.com", Active: true},
		{City: listing.CityNY, Title: "Harlem 2BR", Area: "Harlem", Price: 2100, Beds: 2, Baths: 1, Sqft: 850,
			Type: "apartment", Address: "300 W 125th St", Contact: "agent-2@example.com", Active: true},
		{City: listing.CityLA, Title: "Venice bungalow", Area: "Venice", Price: 2800, Beds: 2, Baths: 2, Sqft: 1100,
			Type: "house", Address: "55 Ocean Ave", Contact: "agent-3@example.com", Active: true},
		{City: listing.CityLA, Title: "Inactive unit", Area: "Downtown", Price: 1500, Beds: 1, Baths: 1, Sqft: 600,
			Type: "apartment", Active: false},
	}
	out := make([]listing.Listing, 0, len(fixtures))
	for _, f := range fixtures {
		created, err := store.CreateListing(context.Background(), f)
		if err != nil {
			t.Fatalf("seed listing: %v", err)
		}
		out = append(out, created)
	}
	return out
}

func TestSearchFiltersAndSorts(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	seedCatalog(t, store)

	results, err := svc.Search(context.Background(), SearchQuery{}, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("active listings = %d, want 3", len(results))
	}

	ny, err := svc.Search(context.Background(), SearchQuery{City: "ny"}, nil)
	if err != nil {
		t.Fatalf("search city: %v", err)
	}
	if len(ny) != 2 {
		t.Fatalf("NY listings = %d, want 2", len(ny))
	}

	cheap, err := svc.Search(context.Background(), SearchQuery{MaxBudget: 2500, SortBy: listing.SortPriceLow}, nil)
	if err != nil {
		t.Fatalf("search budget: %v", err)
	}
	if len(cheap) != 1 || cheap[0].Title != "Harlem 2BR" {
		t.Fatalf("unexpected budget results: %+v", cheap)
	}

	high, err := svc.Search(context.Background(), SearchQuery{SortBy: listing.SortPriceHigh}, nil)
	if err != nil {
		t.Fatalf("search sorted: %v", err)
	}
	if high[0].Price < high[len(high)-1].Price {
		t.Fatalf("price-high not descending: %+v", high)
	}

	if _, err := svc.Search(context.Background(), SearchQuery{SortBy: "cheapest"}, nil); err == nil {
		t.Fatalf("unknown sort must fail")
	}
}

func TestSearchRedactsWithoutFullAccess(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	seeded := seedCatalog(t, store)

	anon, err := svc.Search(context.Background(), SearchQuery{}, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, l := range anon {
		if l.Address != "" || l.Contact != "" {
			t.Fatalf("gated fields leaked to anonymous viewer: %+v", l)
		}
		if l.Title == "" || l.Price == 0 {
			t.Fatalf("headline facts must stay visible: %+v", l)
		}
	}

	unpaid := &account.Account{Role: account.RoleUser, IsApproved: true, HasPaid: false}
	partial, _ := svc.Search(context.Background(), SearchQuery{}, unpaid)
	for _, l := range partial {
		if l.Contact != "" {
			t.Fatalf("approved-but-unpaid viewer must not see contact")
		}
	}

	member := &account.Account{Role: account.RoleUser, IsApproved: true, HasPaid: true}
	full, _ := svc.Search(context.Background(), SearchQuery{City: "NY"}, member)
	for _, l := range full {
		if l.Contact == "" {
			t.Fatalf("full-access member must see contact: %+v", l)
		}
	}

	adminAcct := &account.Account{Role: account.RoleAdmin}
	got, err := svc.Get(context.Background(), seeded[0].ID, adminAcct)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Address == "" {
		t.Fatalf("admin bypasses redaction")
	}
}

func TestAdminCRUD(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	_, err := svc.Create(context.Background(), listing.Listing{Title: "No city", Price: 1000})
	if se := svcerr.GetServiceError(err); se == nil || se.Code != svcerr.CodeValidation {
		t.Fatalf("invalid city err = %v, want validation", err)
	}

	created, err := svc.Create(context.Background(), listing.Listing{
		City: listing.CityLA, Title: "Silver Lake duplex", Price: 2600, Active: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	created.Price = 2500
	updated, err := svc.Update(context.Background(), created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != 2500 {
		t.Fatalf("price not updated: %d", updated.Price)
	}

	// Deactivating through Update hides the listing from search.
	updated.Active = false
	hidden, err := svc.Update(context.Background(), updated)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if hidden.Active {
		t.Fatalf("listing still active")
	}
	results, _ := svc.Search(context.Background(), SearchQuery{}, nil)
	if len(results) != 0 {
		t.Fatalf("inactive listing appeared in search")
	}

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err = svc.Delete(context.Background(), created.ID)
	if se := svcerr.GetServiceError(err); se == nil || se.Code != svcerr.CodeNotFound {
		t.Fatalf("second delete err = %v, want not found", err)
	}
}
