package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"trust-checker/config"
	"trust-checker/scraper"
	"trust-checker/utils"
)

// BadgeID is the DOM id of the injected advisory badge.
const BadgeID = "fb-trust-checker-badge"

const queryTimeout = 10 * time.Second

var listingPathRegexp = regexp.MustCompile(`/marketplace/\d+`)

// IsListingPage reports whether url points at a single listing.
func IsListingPage(url string) bool {
	return strings.Contains(url, "/marketplace/item/") || listingPathRegexp.MatchString(url)
}

// IsBrowsePage reports whether url is a marketplace page other than a listing.
func IsBrowsePage(url string) bool {
	return strings.Contains(url, "/marketplace") && !IsListingPage(url)
}

// Browser owns a Chrome instance with a single tab the user browses in.
type Browser struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig

	tabCtx  context.Context
	cancels []context.CancelFunc
}

// Launch starts Chrome. The tab stays open until Close.
func Launch(cfg *config.Config, logger *utils.Logger) (*Browser, error) {
	chromeBin := findChromeBinary(cfg.ChromeBin)
	logger.Info("[browser] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Printf))

	b := &Browser{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		tabCtx:  tabCtx,
		cancels: []context.CancelFunc{cancelTab, cancelAlloc},
	}

	// The first Run starts the browser process.
	if err := chromedp.Run(tabCtx); err != nil {
		b.Close()
		return nil, fmt.Errorf("browser: start: %w", err)
	}
	return b, nil
}

// Open navigates the tab to url, retrying transient failures.
func (b *Browser) Open(ctx context.Context, url string) error {
	return b.retry.Do(ctx, "navigate", func() error {
		runCtx, cancel := context.WithTimeout(b.tabCtx, 60*time.Second)
		defer cancel()
		return chromedp.Run(runCtx, chromedp.Navigate(url))
	})
}

// Page returns the tab as a Page.
func (b *Browser) Page() *Page {
	return &Page{ctx: b.tabCtx, logger: b.logger}
}

// Done is closed when the user closes the browser.
func (b *Browser) Done() <-chan struct{} {
	return b.tabCtx.Done()
}

// Close shuts the tab and the browser process.
func (b *Browser) Close() {
	for _, cancel := range b.cancels {
		cancel()
	}
}

// Page is a live browser tab. It implements scraper.Document over the
// current DOM.
type Page struct {
	ctx    context.Context
	logger *utils.Logger
}

type queryResult struct {
	Found bool   `json:"found"`
	Text  string `json:"text"`
	Href  string `json:"href"`
}

// errNoBadge is returned when the badge markup produced no element.
var errNoBadge = errors.New("browser: badge markup produced no element")

// boundContext derives a context from the tab that also ends when caller
// ends or timeout elapses. chromedp needs the tab context as the parent.
func boundContext(tab, caller context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(tab, timeout)
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := boundContext(p.ctx, ctx, queryTimeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (p *Page) Query(selector string) (scraper.Element, bool, error) {
	js := fmt.Sprintf(`(function() {
		var el = document.querySelector(%s);
		if (!el) return {found: false, text: '', href: ''};
		return {found: true, text: (el.innerText || el.textContent || '').trim(), href: el.href || ''};
	})()`, jsString(selector))

	var res queryResult
	if err := p.run(context.Background(), chromedp.Evaluate(js, &res)); err != nil {
		return scraper.Element{}, false, err
	}
	return scraper.Element{Text: res.Text, Href: res.Href}, res.Found, nil
}

func (p *Page) Exists(selector string) (bool, error) {
	var found bool
	js := fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector))
	if err := p.run(context.Background(), chromedp.Evaluate(js, &found)); err != nil {
		return false, err
	}
	return found, nil
}

func (p *Page) BodyText() (string, error) {
	var text string
	if err := p.run(context.Background(), chromedp.Evaluate(`document.body ? document.body.innerText : ''`, &text)); err != nil {
		return "", err
	}
	return text, nil
}

// Document exposes the page to the extractor.
func (p *Page) Document() scraper.Document {
	return p
}

// Location returns the tab's current URL.
func (p *Page) Location(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("browser: location: %w", err)
	}
	return url, nil
}

// ShowBadge replaces any existing badge with markup.
func (p *Page) ShowBadge(ctx context.Context, markup string) error {
	js := fmt.Sprintf(`(function() {
		var old = document.getElementById(%[1]s);
		if (old) old.remove();
		var wrap = document.createElement('div');
		wrap.innerHTML = %[2]s;
		var badge = wrap.firstElementChild;
		if (badge) document.body.appendChild(badge);
		return !!badge;
	})()`, jsString(BadgeID), jsString(markup))

	var shown bool
	if err := p.run(ctx, chromedp.Evaluate(js, &shown)); err != nil {
		return fmt.Errorf("browser: show badge: %w", err)
	}
	if !shown {
		return errNoBadge
	}
	p.logger.Info("[browser] Badge displayed")
	return nil
}

// RemoveBadge removes the badge if present.
func (p *Page) RemoveBadge(ctx context.Context) error {
	js := fmt.Sprintf(`(function() {
		var el = document.getElementById(%s);
		if (el) { el.remove(); return true; }
		return false;
	})()`, jsString(BadgeID))

	var removed bool
	if err := p.run(ctx, chromedp.Evaluate(js, &removed)); err != nil {
		return fmt.Errorf("browser: remove badge: %w", err)
	}
	return nil
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
