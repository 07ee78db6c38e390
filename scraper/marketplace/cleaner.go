package marketplace

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"trust-checker/models"
	"trust-checker/utils"
)

var (
	// joinedRegexp captures the first 19xx/20xx year after "Joined" or
	// "Member since" on the same line.
	joinedRegexp = regexp.MustCompile(`(?i)(?:joined|member since)[^\n]*?((?:19|20)\d{2})`)
	// listingsRegexp captures "N listing" or "N listings"
	listingsRegexp = regexp.MustCompile(`(?i)(\d+)\s*listings?`)
	// ratingRegexp captures a standalone numeric rating in the 0.0–5.0 range
	ratingRegexp = regexp.MustCompile(`(?:^|[^\d.])([0-5](?:\.\d{1,2})?)(?:$|[^\d.])`)
	// profileIDRegexp captures the seller id segment of a profile URL
	profileIDRegexp = regexp.MustCompile(`/marketplace/profile/([^/?#]+)`)
)

// Cleaner turns a RawListing into ListingSignals. Anything that does not
// parse is left absent.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean parses raw into signals.
func (c *Cleaner) Clean(raw *models.RawListing) *models.ListingSignals {
	s := &models.ListingSignals{
		URL:         strings.TrimSpace(raw.URL),
		Title:       normaliseText(raw.Title),
		Price:       normaliseText(raw.RawPrice),
		Description: strings.TrimSpace(raw.Description),
		Location:    normaliseText(raw.Location),
		Seller: models.SellerSignals{
			ID:              parseSellerID(raw.SellerProfileURL),
			Name:            normaliseText(raw.SellerName),
			ProfileURL:      strings.TrimSpace(raw.SellerProfileURL),
			JoinedYear:      c.parseJoinedYear(raw.BodyText),
			ListingCount:    c.parseListingCount(raw.BodyText),
			Rating:          c.parseRating(raw.RawRating),
			HasProfilePhoto: raw.HasProfilePhoto,
		},
		ExtractedAt: raw.ScrapedAt,
	}

	c.logger.Debug("[cleaner] seller=%q joined=%s listings=%s rating=%s",
		s.Seller.ID, fmtInt(s.Seller.JoinedYear), fmtInt(s.Seller.ListingCount), fmtFloat(s.Seller.Rating))
	return s
}

func (c *Cleaner) parseJoinedYear(text string) *int {
	match := joinedRegexp.FindStringSubmatch(text)
	if len(match) < 2 {
		return nil
	}
	year, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}
	return &year
}

func (c *Cleaner) parseListingCount(text string) *int {
	match := listingsRegexp.FindStringSubmatch(text)
	if len(match) < 2 {
		return nil
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		c.logger.Debug("[cleaner] Listing count %q out of range", match[1])
		return nil
	}
	return &n
}

// parseRating extracts a 0.0–5.0 numeric rating from a raw string.
func (c *Cleaner) parseRating(raw string) *float64 {
	match := ratingRegexp.FindStringSubmatch(raw)
	if len(match) < 2 {
		return nil
	}
	val, err := strconv.ParseFloat(match[1], 64)
	if err != nil || val < 0 || val > 5 {
		return nil
	}
	return &val
}

func parseSellerID(profileURL string) string {
	match := profileIDRegexp.FindStringSubmatch(profileURL)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func fmtInt(p *int) string {
	if p == nil {
		return "?"
	}
	return strconv.Itoa(*p)
}

func fmtFloat(p *float64) string {
	if p == nil {
		return "?"
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
