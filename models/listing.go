package models

import "time"

// SellerSignals holds what the listing page reveals about the poster.
// Numeric fields are nil when the page did not expose them.
type SellerSignals struct {
	ID              string   `json:"sellerId,omitempty"`
	Name            string   `json:"name,omitempty"`
	ProfileURL      string   `json:"profileUrl,omitempty"`
	JoinedYear      *int     `json:"joinedYear"`
	ListingCount    *int     `json:"listingCount"`
	Rating          *float64 `json:"rating"`
	HasProfilePhoto bool     `json:"hasProfilePhoto"`
}

// ListingSignals is the extracted view of a single listing page.
// It is produced once per page visit and never mutated afterwards.
type ListingSignals struct {
	URL         string        `json:"url,omitempty"`
	Title       string        `json:"title"`
	Price       string        `json:"price,omitempty"`
	Description string        `json:"description"`
	Location    string        `json:"location,omitempty"`
	Seller      SellerSignals `json:"seller"`
	ExtractedAt time.Time     `json:"extractedAt"`
}

// IntPtr and FloatPtr build optional numeric fields.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
