// Package listings implements the catalog: member search with redaction and
// the operator CRUD surface.
package listings

import (
	"context"
	"errors"
	"strings"

	"github.com/secretlease/marketplace/internal/app/domain/account"
	"github.com/secretlease/marketplace/internal/app/domain/listing"
	"github.com/secretlease/marketplace/internal/app/storage"
	svcerr "github.com/secretlease/marketplace/internal/errors"
	"github.com/secretlease/marketplace/pkg/logger"
)

// Search results are capped regardless of filters.
const maxSearchResults = 60

// SearchQuery carries the member-facing catalog filters.
type SearchQuery struct {
	City      string
	MaxBudget int
	SortBy    string
}

// Service exposes catalog reads to members and writes to the operator.
type Service struct {
	store storage.ListingStore
	log   *logger.Logger
}

// New constructs the listings service.
func New(store storage.ListingStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("listings")
	}
	return &Service{store: store, log: log}
}

// Search returns active listings matching the query. Contact and location
// detail is cleared unless the viewer has full access; the server is the only
// authority on redaction.
func (s *Service) Search(ctx context.Context, q SearchQuery, viewer *account.Account) ([]listing.Listing, error) {
	sort := q.SortBy
	switch sort {
	case "", listing.SortNewest, listing.SortPriceLow, listing.SortPriceHigh:
	default:
		return nil, svcerr.Validation("sortBy must be newest, price-low or price-high")
	}
	if q.MaxBudget < 0 {
		return nil, svcerr.Validation("maxBudget must not be negative")
	}

	results, err := s.store.SearchListings(ctx, storage.ListingQuery{
		City:       listing.City(strings.ToUpper(strings.TrimSpace(q.City))),
		MaxPrice:   q.MaxBudget,
		Sort:       sort,
		ActiveOnly: true,
		Limit:      maxSearchResults,
	})
	if err != nil {
		return nil, svcerr.Internal("search listings", err)
	}

	if !fullAccess(viewer) {
		for i := range results {
			results[i] = results[i].Redacted()
		}
	}
	return results, nil
}

// Get returns one listing, redacted for viewers without full access.
func (s *Service) Get(ctx context.Context, id string, viewer *account.Account) (listing.Listing, error) {
	l, err := s.store.GetListing(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return listing.Listing{}, svcerr.NotFound("listing not found")
		}
		return listing.Listing{}, svcerr.Internal("lookup listing", err)
	}
	if !fullAccess(viewer) {
		l = l.Redacted()
	}
	return l, nil
}

// Create adds a listing to the catalog.
func (s *Service) Create(ctx context.Context, l listing.Listing) (listing.Listing, error) {
	if err := validateListing(l); err != nil {
		return listing.Listing{}, err
	}
	created, err := s.store.CreateListing(ctx, l)
	if err != nil {
		return listing.Listing{}, svcerr.Internal("create listing", err)
	}
	s.log.WithField("listing_id", created.ID).Info("listing created")
	return created, nil
}

// Update replaces a listing's attributes.
func (s *Service) Update(ctx context.Context, l listing.Listing) (listing.Listing, error) {
	if err := validateListing(l); err != nil {
		return listing.Listing{}, err
	}
	updated, err := s.store.UpdateListing(ctx, l)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return listing.Listing{}, svcerr.NotFound("listing not found")
		}
		return listing.Listing{}, svcerr.Internal("update listing", err)
	}
	return updated, nil
}

// Delete removes a listing from the catalog.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteListing(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return svcerr.NotFound("listing not found")
		}
		return svcerr.Internal("delete listing", err)
	}
	s.log.WithField("listing_id", id).Info("listing deleted")
	return nil
}

func fullAccess(viewer *account.Account) bool {
	return viewer != nil && viewer.FullAccess()
}

func validateListing(l listing.Listing) error {
	if strings.TrimSpace(l.Title) == "" {
		return svcerr.Validation("title is required")
	}
	if l.City != listing.CityNY && l.City != listing.CityLA {
		return svcerr.Validation("city must be NY or LA")
	}
	if l.Price <= 0 {
		return svcerr.Validation("price must be positive")
	}
	return nil
}
