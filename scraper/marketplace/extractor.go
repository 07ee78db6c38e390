package marketplace

import (
	"fmt"
	"time"

	"trust-checker/models"
	"trust-checker/scraper"
	"trust-checker/utils"
)

// Selector strategies, tried in order. The first non-empty match wins.
var (
	titleSelectors = []string{
		`h1 span`,
		`[data-testid="marketplace_listing_title"]`,
	}
	priceSelectors = []string{
		`[data-testid="marketplace_listing_price"]`,
	}
	descriptionSelectors = []string{
		`[data-testid="marketplace_listing_body"]`,
	}
	locationSelectors = []string{
		`[data-testid="marketplace_listing_location"]`,
	}
	sellerLinkSelectors = []string{
		`a[href*="/marketplace/profile/"]`,
	}
	ratingSelectors = []string{
		`[data-testid="seller_rating"]`,
		`[aria-label*="rating"]`,
	}
	profilePhotoSelectors = []string{
		`a[href*="/marketplace/profile/"] img`,
		`[data-testid="seller_profile_photo"]`,
	}
)

// TitleSelector is what the watcher waits for before extracting.
var TitleSelector = titleSelectors[0]

// Extractor reads listing signals from a Document.
type Extractor struct {
	logger  *utils.Logger
	cleaner *Cleaner
	now     func() time.Time
}

// NewExtractor creates an Extractor with the given logger.
func NewExtractor(logger *utils.Logger) *Extractor {
	return &Extractor{logger: logger, cleaner: NewCleaner(logger), now: time.Now}
}

// Extract never fails: a missing element leaves its field absent, and a
// failing document is logged and yields whatever was read before it failed.
func (e *Extractor) Extract(doc scraper.Document, pageURL string) *models.ListingSignals {
	e.logger.Info("[extractor] Extracting listing data from %s", pageURL)

	raw := &models.RawListing{URL: pageURL, ScrapedAt: e.now()}
	if err := e.scrape(doc, raw); err != nil {
		e.logger.Error("[extractor] Error extracting data: %v", err)
	}

	signals := e.cleaner.Clean(raw)
	e.logger.Debug("[extractor] Extracted %q (seller %q)", signals.Title, signals.Seller.Name)
	return signals
}

func (e *Extractor) scrape(doc scraper.Document, raw *models.RawListing) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract: panic: %v", r)
		}
	}()

	if raw.Title, _, err = firstText(doc, titleSelectors); err != nil {
		return err
	}
	if raw.RawPrice, _, err = firstText(doc, priceSelectors); err != nil {
		return err
	}
	if raw.Description, _, err = firstText(doc, descriptionSelectors); err != nil {
		return err
	}
	if raw.Location, _, err = firstText(doc, locationSelectors); err != nil {
		return err
	}

	var seller scraper.Element
	if seller, err = firstMatch(doc, sellerLinkSelectors); err != nil {
		return err
	}
	raw.SellerName = seller.Text
	raw.SellerProfileURL = seller.Href

	if raw.RawRating, _, err = firstText(doc, ratingSelectors); err != nil {
		return err
	}
	if raw.HasProfilePhoto, err = anyExists(doc, profilePhotoSelectors); err != nil {
		return err
	}

	if raw.BodyText, err = doc.BodyText(); err != nil {
		return fmt.Errorf("extract: body text: %w", err)
	}
	return nil
}

// firstText returns the text of the first selector with non-empty text.
func firstText(doc scraper.Document, selectors []string) (string, string, error) {
	for _, sel := range selectors {
		el, ok, err := doc.Query(sel)
		if err != nil {
			return "", "", fmt.Errorf("extract: query %s: %w", sel, err)
		}
		if ok && el.Text != "" {
			return el.Text, sel, nil
		}
	}
	return "", "", nil
}

// firstMatch returns the first element any selector matches, text or not.
func firstMatch(doc scraper.Document, selectors []string) (scraper.Element, error) {
	for _, sel := range selectors {
		el, ok, err := doc.Query(sel)
		if err != nil {
			return scraper.Element{}, fmt.Errorf("extract: query %s: %w", sel, err)
		}
		if ok {
			return el, nil
		}
	}
	return scraper.Element{}, nil
}

func anyExists(doc scraper.Document, selectors []string) (bool, error) {
	for _, sel := range selectors {
		ok, err := doc.Exists(sel)
		if err != nil {
			return false, fmt.Errorf("extract: query %s: %w", sel, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
