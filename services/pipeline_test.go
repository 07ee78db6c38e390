package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"trust-checker/background"
	"trust-checker/models"
	"trust-checker/scraper"
	"trust-checker/scraper/marketplace"
	"trust-checker/storage"
)

const listingHTML = `<html><body>
<h1><span>Vintage Road Bike</span></h1>
<div data-testid="marketplace_listing_body">Great condition. Cash only, no trades.</div>
<a href="https://www.facebook.com/marketplace/profile/100012345/"><img src="a.jpg">Jane Doe</a>
<span>Joined Facebook in 2024</span>
<span data-testid="seller_rating">4.8</span>
<span>1 listing</span>
</body></html>`

const listingURL = "https://www.facebook.com/marketplace/item/987/"

// fakeBackground records what the analyzer reports.
type fakeBackground struct {
	mu       sync.Mutex
	settings models.Settings
	fail     bool
	scans    []models.RiskAssessment
	cache    map[string]models.CachedSeller
}

func newFakeBackground() *fakeBackground {
	return &fakeBackground{settings: models.DefaultSettings(), cache: make(map[string]models.CachedSeller)}
}

var errBackground = errors.New("background unavailable")

func (b *fakeBackground) Settings(context.Context) (models.Settings, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return models.Settings{}, errBackground
	}
	return b.settings, nil
}

func (b *fakeBackground) ReportScan(_ context.Context, _ *models.ListingSignals, a models.RiskAssessment) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errBackground
	}
	b.scans = append(b.scans, a)
	return nil
}

func (b *fakeBackground) CacheSeller(_ context.Context, s models.CachedSeller) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errBackground
	}
	b.cache[s.SellerID] = s
	return nil
}

func (b *fakeBackground) CachedSeller(_ context.Context, id string) (*models.CachedSeller, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return nil, errBackground
	}
	s, ok := b.cache[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (b *fakeBackground) scanCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.scans)
}

// fakeBadge records badge calls.
type fakeBadge struct {
	mu      sync.Mutex
	shown   []string
	removed int
}

func (f *fakeBadge) ShowBadge(_ context.Context, markup string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, markup)
	return nil
}

func (f *fakeBadge) RemoveBadge(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed++
	return nil
}

func (f *fakeBadge) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.shown), f.removed
}

type memScans struct {
	records []models.ScanRecord
}

func (m *memScans) WriteScan(r models.ScanRecord) error {
	m.records = append(m.records, r)
	return nil
}

func (m *memScans) Close() error { return nil }

func newTestAnalyzer(t *testing.T, bg Background, scans *memScans) *Analyzer {
	t.Helper()
	scorer := NewScorer(defaultRuleSet(t), newTestLogger()).WithClock(func() time.Time { return fixedTime })
	var sw storage.ScanWriter
	if scans != nil {
		sw = scans
	}
	return NewAnalyzer(marketplace.NewExtractor(newTestLogger()), scorer, bg, sw, newTestLogger()).
		WithDelays(0, 20*time.Millisecond)
}

func parseDoc(t *testing.T, s string) scraper.Document {
	t.Helper()
	doc, err := scraper.ParseHTMLString(s)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestAnalyzeFullPipeline(t *testing.T) {
	bg := newFakeBackground()
	scans := &memScans{}
	badge := &fakeBadge{}

	res, err := newTestAnalyzer(t, bg, scans).Analyze(context.Background(), parseDoc(t, listingHTML), listingURL, badge)
	if err != nil {
		t.Fatal(err)
	}

	if res.Assessment.Score != 7 || res.Assessment.Level != models.RiskHigh {
		t.Errorf("assessment: got %d %s, want 7 high", res.Assessment.Score, res.Assessment.Level)
	}
	if r, ok := res.Assessment.Triggered(models.RuleScamPhrase); !ok || r.Detail != "cash only" {
		t.Errorf("scamPhrase: got %+v ok=%v", r, ok)
	}
	if !res.Assessment.AnalyzedAt.Equal(fixedTime) {
		t.Errorf("AnalyzedAt: got %v", res.Assessment.AnalyzedAt)
	}

	if shown, _ := badge.counts(); shown != 1 || !strings.Contains(badge.shown[0], "fb-trust-high") {
		t.Errorf("badge: got %v", badge.shown)
	}
	if bg.scanCount() != 1 {
		t.Errorf("scans reported: got %d, want 1", bg.scanCount())
	}
	if s, ok := bg.cache["100012345"]; !ok || s.JoinedYear == nil || *s.JoinedYear != 2024 {
		t.Errorf("seller cache: got %+v ok=%v", s, ok)
	}
	if len(scans.records) != 1 || scans.records[0].URL != listingURL || scans.records[0].SellerID != "100012345" {
		t.Errorf("scan log: got %+v", scans.records)
	}
}

func TestAnalyzeDisabled(t *testing.T) {
	bg := newFakeBackground()
	bg.settings.Enabled = false
	badge := &fakeBadge{}

	res, err := newTestAnalyzer(t, bg, nil).Analyze(context.Background(), parseDoc(t, listingHTML), listingURL, badge)
	if !errors.Is(err, ErrDisabled) || res != nil {
		t.Fatalf("got res=%v err=%v, want ErrDisabled", res, err)
	}
	if shown, _ := badge.counts(); shown != 0 || bg.scanCount() != 0 {
		t.Error("disabled analysis should have no side effects")
	}
}

func TestAnalyzeMergesCachedSeller(t *testing.T) {
	bg := newFakeBackground()
	bg.cache["55"] = models.CachedSeller{
		SellerID: "55", JoinedYear: models.IntPtr(2018), ListingCount: models.IntPtr(1), Rating: models.FloatPtr(1.0),
	}
	page := `<html><body><h1><span>Lamp</span></h1>
<a href="/marketplace/profile/55/">Bob</a>
<span data-testid="seller_rating">4.9</span></body></html>`

	res, err := newTestAnalyzer(t, bg, nil).Analyze(context.Background(), parseDoc(t, page), listingURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	seller := res.Signals.Seller
	if seller.JoinedYear == nil || *seller.JoinedYear != 2018 {
		t.Errorf("JoinedYear should come from cache, got %v", seller.JoinedYear)
	}
	if seller.Rating == nil || *seller.Rating != 4.9 {
		t.Errorf("extracted rating should win, got %v", seller.Rating)
	}
	if _, ok := res.Assessment.Triggered(models.RuleOldAccountFewListings); !ok {
		t.Error("oldAccountFewListings should fire from cached signals")
	}
	if res.Assessment.Score != 7 {
		t.Errorf("score: got %d, want 7", res.Assessment.Score)
	}
}

func TestCachedSellerFactsExpireAcrossVisits(t *testing.T) {
	now := fixedTime
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = fixedTime.Add(d)
		mu.Unlock()
	}

	svc := background.NewService(storage.NewMemoryStore(), newTestLogger()).WithClock(clock)
	svc.Start()
	defer svc.Stop()
	client := background.NewClient(svc)
	ctx := context.Background()

	if err := client.CacheSeller(ctx, models.CachedSeller{
		SellerID: "55", JoinedYear: models.IntPtr(2018), ListingCount: models.IntPtr(1),
	}); err != nil {
		t.Fatal(err)
	}

	page := `<html><body><h1><span>Lamp</span></h1><a href="/marketplace/profile/55/">Bob</a></body></html>`
	analyzer := newTestAnalyzer(t, client, nil)

	tests := []struct {
		after      time.Duration
		wantJoined bool
	}{
		{50 * time.Minute, true},
		{100 * time.Minute, false},
		{150 * time.Minute, false},
	}
	for _, tt := range tests {
		advance(tt.after)
		res, err := analyzer.Analyze(ctx, parseDoc(t, page), listingURL, nil)
		if err != nil {
			t.Fatal(err)
		}
		joined := res.Signals.Seller.JoinedYear
		if tt.wantJoined != (joined != nil) {
			t.Errorf("t0+%v: joinedYear=%v, want present=%v", tt.after, joined, tt.wantJoined)
		}
		_, fired := res.Assessment.Triggered(models.RuleOldAccountFewListings)
		if fired != tt.wantJoined {
			t.Errorf("t0+%v: oldAccountFewListings fired=%v", tt.after, fired)
		}
	}

	cached, err := client.CachedSeller(ctx, "55")
	if err != nil || cached == nil {
		t.Fatalf("cached seller: %+v err=%v", cached, err)
	}
	if cached.JoinedYear != nil || cached.Name != "Bob" {
		t.Errorf("cache should hold only page-extracted fields, got %+v", cached)
	}
}

func TestAnalyzeRespectsShowBadge(t *testing.T) {
	bg := newFakeBackground()
	bg.settings.ShowBadge = false
	badge := &fakeBadge{}

	if _, err := newTestAnalyzer(t, bg, nil).Analyze(context.Background(), parseDoc(t, listingHTML), listingURL, badge); err != nil {
		t.Fatal(err)
	}
	if shown, _ := badge.counts(); shown != 0 {
		t.Errorf("badge shown %d times with showBadge off", shown)
	}
	if bg.scanCount() != 1 {
		t.Error("scan should still be reported")
	}
}

func TestAnalyzeUsesStoredThresholds(t *testing.T) {
	bg := newFakeBackground()
	bg.settings.RiskThreshold = models.RiskThreshold{Low: 1, Medium: 2}

	res, err := newTestAnalyzer(t, bg, nil).Analyze(context.Background(), parseDoc(t, `<h1><span>Lamp</span></h1>`), listingURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Assessment.Score != 2 || res.Assessment.Level != models.RiskMedium {
		t.Errorf("got %d %s, want 2 medium", res.Assessment.Score, res.Assessment.Level)
	}
}

func TestAnalyzeWithoutTitleStillScores(t *testing.T) {
	res, err := newTestAnalyzer(t, newFakeBackground(), nil).Analyze(context.Background(), parseDoc(t, `<p>loading</p>`), listingURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Signals.Title != "" || res.Assessment.Score != 2 {
		t.Errorf("got title %q score %d", res.Signals.Title, res.Assessment.Score)
	}
}

func TestAnalyzeSurvivesBackgroundFailure(t *testing.T) {
	bg := newFakeBackground()
	bg.fail = true
	badge := &fakeBadge{}

	res, err := newTestAnalyzer(t, bg, nil).Analyze(context.Background(), parseDoc(t, listingHTML), listingURL, badge)
	if err != nil {
		t.Fatal(err)
	}
	if res.Assessment.Score != 7 {
		t.Errorf("score: got %d, want 7", res.Assessment.Score)
	}
	if shown, _ := badge.counts(); shown != 1 {
		t.Error("defaults should still show the badge")
	}
}

func TestAnalyzeCancelledDuringDelay(t *testing.T) {
	a := newTestAnalyzer(t, newFakeBackground(), nil).WithDelays(time.Hour, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Analyze(ctx, parseDoc(t, listingHTML), listingURL, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
