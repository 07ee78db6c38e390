package services

import (
	"context"
	"errors"
	"time"

	"trust-checker/models"
	"trust-checker/scraper"
	"trust-checker/scraper/marketplace"
	"trust-checker/storage"
	"trust-checker/utils"
)

// ErrDisabled is returned by Analyze when checking is switched off.
var ErrDisabled = errors.New("analysis: checking is disabled")

// Background is the analyzer's view of the background worker.
type Background interface {
	Settings(ctx context.Context) (models.Settings, error)
	ReportScan(ctx context.Context, signals *models.ListingSignals, a models.RiskAssessment) error
	CacheSeller(ctx context.Context, seller models.CachedSeller) error
	CachedSeller(ctx context.Context, sellerID string) (*models.CachedSeller, error)
}

// BadgeSurface is where an advisory badge is shown.
type BadgeSurface interface {
	ShowBadge(ctx context.Context, markup string) error
	RemoveBadge(ctx context.Context) error
}

// Result is one completed analysis.
type Result struct {
	Signals    *models.ListingSignals
	Assessment models.RiskAssessment
	Advisory   *Advisory
}

// Analyzer runs extract, seller-cache merge, score, present and report for
// a single listing page.
type Analyzer struct {
	extractor *marketplace.Extractor
	scorer    *Scorer
	bg        Background
	scans     storage.ScanWriter
	logger    *utils.Logger

	analysisDelay time.Duration
	waitTimeout   time.Duration
}

// NewAnalyzer wires the pipeline. scans may be nil to skip the scan log.
func NewAnalyzer(extractor *marketplace.Extractor, scorer *Scorer, bg Background, scans storage.ScanWriter, logger *utils.Logger) *Analyzer {
	return &Analyzer{
		extractor:     extractor,
		scorer:        scorer,
		bg:            bg,
		scans:         scans,
		logger:        logger,
		analysisDelay: time.Second,
		waitTimeout:   scraper.DefaultWaitTimeout,
	}
}

// WithDelays overrides the pre-extraction delay and the title wait bound.
func (a *Analyzer) WithDelays(analysisDelay, waitTimeout time.Duration) *Analyzer {
	a.analysisDelay = analysisDelay
	a.waitTimeout = waitTimeout
	return a
}

// Settings fetches settings, falling back to defaults when the worker is
// unreachable.
func (a *Analyzer) Settings(ctx context.Context) models.Settings {
	settings, err := a.bg.Settings(ctx)
	if err != nil {
		a.logger.Warn("[analyzer] Loading settings failed, using defaults: %v", err)
		return models.DefaultSettings()
	}
	return settings
}

// Analyze scores the listing in doc. badge may be nil. Reporting failures are
// logged and do not fail the analysis.
func (a *Analyzer) Analyze(ctx context.Context, doc scraper.Document, pageURL string, badge BadgeSurface) (*Result, error) {
	settings := a.Settings(ctx)
	if !settings.Enabled {
		a.logger.Info("[analyzer] Checking disabled, skipping %s", pageURL)
		return nil, ErrDisabled
	}

	if err := sleep(ctx, a.analysisDelay); err != nil {
		return nil, err
	}

	if _, err := scraper.WaitForElement(ctx, doc, marketplace.TitleSelector, a.waitTimeout); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn("[analyzer] %v, extracting anyway", err)
	}

	extracted := a.extractor.Extract(doc, pageURL)
	signals := a.mergeCachedSeller(ctx, extracted)

	rules, err := a.scorer.Rules().WithThresholds(ThresholdsFromSettings(settings.RiskThreshold))
	if err != nil {
		a.logger.Warn("[analyzer] Ignoring stored risk thresholds: %v", err)
		rules = nil
	}
	assessment := a.scorer.Assess(signals, rules)
	advisory := NewAdvisory(assessment, signals)

	if badge != nil && settings.ShowBadge {
		markup, err := advisory.HTML()
		if err != nil {
			a.logger.Error("[analyzer] %v", err)
		} else if err := badge.ShowBadge(ctx, markup); err != nil {
			a.logger.Error("[analyzer] %v", err)
		}
	}

	if err := a.bg.ReportScan(ctx, signals, assessment); err != nil {
		a.logger.Warn("[analyzer] Reporting scan failed: %v", err)
	}
	// Cache only what the page showed; merged fields keep their own age.
	if extracted.Seller.ID != "" {
		if err := a.bg.CacheSeller(ctx, models.CachedSellerFrom(extracted.Seller)); err != nil {
			a.logger.Warn("[analyzer] Caching seller %s failed: %v", signals.Seller.ID, err)
		}
	}
	if a.scans != nil {
		if err := a.scans.WriteScan(models.ScanRecordFrom(signals, assessment)); err != nil {
			a.logger.Warn("[analyzer] Writing scan log failed: %v", err)
		}
	}

	return &Result{Signals: signals, Assessment: assessment, Advisory: advisory}, nil
}

// mergeCachedSeller returns a copy of signals whose absent seller fields are
// filled from a fresh cache entry. Extracted values always win.
func (a *Analyzer) mergeCachedSeller(ctx context.Context, signals *models.ListingSignals) *models.ListingSignals {
	if signals.Seller.ID == "" {
		return signals
	}
	cached, err := a.bg.CachedSeller(ctx, signals.Seller.ID)
	if err != nil {
		a.logger.Warn("[analyzer] Seller cache lookup failed: %v", err)
		return signals
	}
	if cached == nil {
		return signals
	}

	merged := *signals
	s := &merged.Seller
	if s.JoinedYear == nil {
		s.JoinedYear = cached.JoinedYear
	}
	if s.ListingCount == nil {
		s.ListingCount = cached.ListingCount
	}
	if s.Rating == nil {
		s.Rating = cached.Rating
	}
	if s.Name == "" {
		s.Name = cached.Name
	}
	if !s.HasProfilePhoto {
		s.HasProfilePhoto = cached.HasProfilePhoto
	}
	a.logger.Debug("[analyzer] Merged cached seller %s", s.ID)
	return &merged
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
