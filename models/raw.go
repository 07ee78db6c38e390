package models

import "time"

// RawListing holds unprocessed text pulled straight from the page, before
// any parsing. Empty strings mean the field was not found.
type RawListing struct {
	URL              string
	Title            string
	RawPrice         string
	Description      string
	Location         string
	SellerName       string
	SellerProfileURL string
	RawRating        string
	HasProfilePhoto  bool
	BodyText         string
	ScrapedAt        time.Time
}
