package models

import (
	"strings"
	"time"
)

// RiskThreshold holds the inclusive upper bounds of the low and medium bands.
type RiskThreshold struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
}

// Settings is the persisted user configuration.
type Settings struct {
	Enabled       bool          `json:"enabled"`
	AutoScan      bool          `json:"autoScan"`
	ShowBadge     bool          `json:"showBadge"`
	RiskThreshold RiskThreshold `json:"riskThreshold"`
}

// DefaultSettings mirrors the values written on first install.
func DefaultSettings() Settings {
	return Settings{
		Enabled:       true,
		AutoScan:      true,
		ShowBadge:     true,
		RiskThreshold: RiskThreshold{Low: 3, Medium: 6},
	}
}

// Stats counts scans across sessions.
type Stats struct {
	ListingsScanned int `json:"listingsScanned"`
	ScamsDetected   int `json:"scamsDetected"`
}

// CachedSeller is a seller record kept in the seller cache.
// CachedAt is unix milliseconds.
type CachedSeller struct {
	SellerID        string   `json:"sellerId"`
	Name            string   `json:"name,omitempty"`
	ProfileURL      string   `json:"profileUrl,omitempty"`
	JoinedYear      *int     `json:"joinedYear"`
	ListingCount    *int     `json:"listingCount"`
	Rating          *float64 `json:"rating"`
	HasProfilePhoto bool     `json:"hasProfilePhoto"`
	CachedAt        int64    `json:"cachedAt"`
}

// CachedSellerFrom copies the cacheable subset of a seller.
func CachedSellerFrom(s SellerSignals) CachedSeller {
	return CachedSeller{
		SellerID:        s.ID,
		Name:            s.Name,
		ProfileURL:      s.ProfileURL,
		JoinedYear:      s.JoinedYear,
		ListingCount:    s.ListingCount,
		Rating:          s.Rating,
		HasProfilePhoto: s.HasProfilePhoto,
	}
}

// ScanRecord is one row of the scan log.
type ScanRecord struct {
	URL        string
	Title      string
	SellerID   string
	Score      int
	Level      RiskLevel
	Reasons    []string
	AnalyzedAt time.Time
}

// ScanRecordFrom flattens an assessment for the scan log.
func ScanRecordFrom(s *ListingSignals, a RiskAssessment) ScanRecord {
	reasons := make([]string, 0, len(a.TriggeredRules))
	for _, r := range a.TriggeredRules {
		reasons = append(reasons, string(r.ID))
	}
	return ScanRecord{
		URL:        s.URL,
		Title:      s.Title,
		SellerID:   s.Seller.ID,
		Score:      a.Score,
		Level:      a.Level,
		Reasons:    reasons,
		AnalyzedAt: a.AnalyzedAt,
	}
}

// JoinedReasons renders the reasons column.
func (r ScanRecord) JoinedReasons() string {
	return strings.Join(r.Reasons, ";")
}
