package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"trust-checker/scraper"
	"trust-checker/scraper/marketplace"
	"trust-checker/utils"
)

// Page is a live tab the watcher polls.
type Page interface {
	BadgeSurface
	Location(ctx context.Context) (string, error)
	Document() scraper.Document
}

// Watcher polls the page location and analyzes each listing the user
// navigates to.
type Watcher struct {
	page     Page
	analyzer *Analyzer
	logger   *utils.Logger
	guard    *utils.InFlight

	interval time.Duration
	settle   time.Duration

	mu      sync.Mutex
	lastURL string
	cron    *cron.Cron
	wg      sync.WaitGroup
}

// NewWatcher creates a Watcher that checks every interval and waits settle
// after a navigation before acting on it.
func NewWatcher(page Page, analyzer *Analyzer, interval, settle time.Duration, logger *utils.Logger) *Watcher {
	return &Watcher{
		page:     page,
		analyzer: analyzer,
		logger:   logger,
		guard:    utils.NewInFlight(),
		interval: interval,
		settle:   settle,
	}
}

// Start analyzes the current page if it is a listing and, when auto-scan is
// on, begins polling for navigation.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("[watcher] Initializing...")

	loc, err := w.page.Location(ctx)
	if err != nil {
		return fmt.Errorf("watcher: start: %w", err)
	}
	w.mu.Lock()
	w.lastURL = loc
	w.mu.Unlock()

	if marketplace.IsListingPage(loc) {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.AnalyzeNow(ctx, loc)
		}()
	}

	if !w.analyzer.Settings(ctx).AutoScan {
		w.logger.Info("[watcher] Auto-scan is off, not watching for navigation")
		return nil
	}

	logger := cron.PrintfLogger(w.logger)
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", w.interval), func() { w.Check(ctx) }); err != nil {
		return fmt.Errorf("watcher: schedule: %w", err)
	}
	c.Start()

	w.mu.Lock()
	w.cron = c
	w.mu.Unlock()

	w.logger.Info("[watcher] Ready, polling every %v", w.interval)
	return nil
}

// Stop halts polling and waits for any running check to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	w.wg.Wait()
}

// Check compares the page location with the last one seen. On a change it
// waits for the page to settle, then analyzes a listing or clears the badge.
func (w *Watcher) Check(ctx context.Context) {
	loc, err := w.page.Location(ctx)
	if err != nil {
		w.logger.Warn("[watcher] %v", err)
		return
	}

	w.mu.Lock()
	changed := loc != w.lastURL
	w.lastURL = loc
	w.mu.Unlock()
	if !changed {
		return
	}

	w.logger.Info("[watcher] URL changed to: %s", loc)
	if err := sleep(ctx, w.settle); err != nil {
		return
	}

	if marketplace.IsListingPage(loc) {
		w.AnalyzeNow(ctx, loc)
		return
	}
	if err := w.page.RemoveBadge(ctx); err != nil {
		w.logger.Warn("[watcher] %v", err)
	}
}

// AnalyzeNow runs one analysis unless another is in flight. It reports
// whether the analysis ran.
func (w *Watcher) AnalyzeNow(ctx context.Context, pageURL string) bool {
	ran := w.guard.Run(func() {
		if _, err := w.analyzer.Analyze(ctx, w.page.Document(), pageURL, w.page); err != nil && !errors.Is(err, ErrDisabled) {
			w.logger.Error("[watcher] Analysis error: %v", err)
		}
	})
	if !ran {
		w.logger.Debug("[watcher] Analysis already running, skipping %s", pageURL)
	}
	return ran
}
