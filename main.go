package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"trust-checker/background"
	"trust-checker/config"
	"trust-checker/scraper"
	"trust-checker/scraper/marketplace"
	"trust-checker/services"
	"trust-checker/storage"
	"trust-checker/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()
	logger.SetLevel(utils.ParseLevel(cfg.LogLevel))

	logger.Info("=== Marketplace Trust Checker starting ===")
	logger.Info("Config: store: %s | scan every %v | settle %v | analysis delay %v",
		cfg.StoreBackend, cfg.ScanInterval, cfg.SettleDelay, cfg.AnalysisDelay)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rules, err := services.NewRuleSet(services.RiskConfigFrom(cfg))
	if err != nil {
		logger.Error("Invalid risk configuration: %v", err)
		os.Exit(1)
	}

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open %s store: %v", cfg.StoreBackend, err)
		if cfg.StoreBackend == "postgres" {
			logger.Error("Make sure Docker is running: docker compose up -d")
		}
		os.Exit(1)
	}
	defer store.Close()

	bg := background.NewService(store, logger)
	bg.Start()
	defer bg.Stop()

	if !bg.Installed(ctx) {
		if err := bg.Install(ctx); err != nil {
			logger.Error("First-run install failed: %v", err)
		}
	}

	scanLog, err := storage.NewCSVWriter(cfg.ScanLogPath)
	if err != nil {
		logger.Error("Failed to create scan log: %v", err)
		// os.Exit skips deferred calls.
		bg.Stop()
		store.Close()
		os.Exit(1)
	}
	defer scanLog.Close()

	client := background.NewClient(bg)
	analyzer := services.NewAnalyzer(
		marketplace.NewExtractor(logger),
		services.NewScorer(rules, logger),
		client,
		scanLog,
		logger,
	).WithDelays(cfg.AnalysisDelay, cfg.WaitTimeout)

	if cfg.ScanFile != "" {
		err = scanFile(ctx, cfg.ScanFile, analyzer)
	} else {
		err = watch(ctx, cfg, analyzer, logger)
	}
	if err != nil {
		logger.Error("%v", err)
	}

	final := context.WithoutCancel(ctx)
	services.PrintStatus(os.Stdout, analyzer.Settings(final), bg.Stats(final))
	fmt.Printf("  Done. Scan log → %s\n\n", cfg.ScanLogPath)
}

// scanFile analyzes a saved listing page once and prints the advisory.
func scanFile(ctx context.Context, path string, analyzer *services.Analyzer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("scan file: %w", err)
	}
	defer f.Close()

	doc, err := scraper.ParseHTML(f)
	if err != nil {
		return fmt.Errorf("scan file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	res, err := analyzer.Analyze(ctx, doc, "file://"+abs, nil)
	if err != nil {
		return fmt.Errorf("scan file: %w", err)
	}
	res.Advisory.Print(os.Stdout)
	return nil
}

// watch opens the marketplace in a browser and follows the user around
// until interrupted or the browser is closed.
func watch(ctx context.Context, cfg *config.Config, analyzer *services.Analyzer, logger *utils.Logger) error {
	browser, err := marketplace.Launch(cfg, logger)
	if err != nil {
		return err
	}
	defer browser.Close()

	if err := browser.Open(ctx, cfg.StartURL); err != nil {
		return fmt.Errorf("open %s: %w", cfg.StartURL, err)
	}

	watcher := services.NewWatcher(browser.Page(), analyzer, cfg.ScanInterval, cfg.SettleDelay, logger)
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	logger.Info("Watching %s. Close the browser or press Ctrl+C to stop.", cfg.StartURL)
	select {
	case <-ctx.Done():
		logger.Info("Interrupted, shutting down")
	case <-browser.Done():
		logger.Info("Browser closed, shutting down")
	}
	return nil
}
