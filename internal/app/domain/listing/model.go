// Package listing defines the rental listing catalog model.
package listing

import "time"

// City is a supported market.
type City string

const (
	CityNY City = "NY"
	CityLA City = "LA"
)

// Listing is an off-market rental record. Contact details are the gated part
// of the catalog.
type Listing struct {
	ID          string    `json:"id"`
	City        City      `json:"city"`
	Title       string    `json:"title"`
	Area        string    `json:"area"`
	Price       int       `json:"price"`
	Beds        int       `json:"beds"`
	Baths       int       `json:"baths"`
	Sqft        int       `json:"sqft"`
	Type        string    `json:"type"`
	Address     string    `json:"address,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Description string    `json:"description,omitempty"`
	Amenities   []string  `json:"amenities,omitempty"`
	Contact     string    `json:"contact,omitempty"`
	Active      bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Redacted returns a copy with the gated fields cleared. Headline facts
// (title, area, price, layout) stay visible so non-members can evaluate the
// catalog.
func (l Listing) Redacted() Listing {
	l.Address = ""
	l.ImageURL = ""
	l.Description = ""
	l.Amenities = nil
	l.Contact = ""
	return l
}

// Sort orders accepted by the search operation.
const (
	SortNewest    = "newest"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
)
