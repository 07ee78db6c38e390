package services

import (
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"trust-checker/models"
	"trust-checker/scraper/marketplace"
)

// BadgeID is the DOM id of the injected badge.
const BadgeID = marketplace.BadgeID

// Advisory is the presentation of one assessment.
type Advisory struct {
	Level    models.RiskLevel
	Label    string
	Marker   string
	Score    int
	Title    string
	Seller   []string
	Flags    []string
	Expanded bool
}

// NewAdvisory builds the view for an assessment. It starts collapsed.
func NewAdvisory(a models.RiskAssessment, s *models.ListingSignals) *Advisory {
	adv := &Advisory{
		Level: a.Level,
		Score: a.Score,
		Title: s.Title,
	}

	switch a.Level {
	case models.RiskHigh:
		adv.Label, adv.Marker = "High Risk", "🔴"
	case models.RiskMedium:
		adv.Label, adv.Marker = "Caution", "🟡"
	default:
		adv.Label, adv.Marker = "Looks OK", "🟢"
	}

	account := "Unknown"
	if s.Seller.JoinedYear != nil {
		account = "Joined " + strconv.Itoa(*s.Seller.JoinedYear)
	}
	listings := "Unknown"
	if s.Seller.ListingCount != nil {
		listings = strconv.Itoa(*s.Seller.ListingCount)
	}
	rating := "No ratings"
	if s.Seller.Rating != nil && *s.Seller.Rating != 0 {
		rating = strconv.FormatFloat(*s.Seller.Rating, 'f', -1, 64)
	}
	adv.Seller = []string{
		"Account: " + account,
		"Listings: " + listings,
		"Rating: " + rating,
	}

	for _, r := range a.TriggeredRules {
		flag := r.Reason
		if r.Detail != "" {
			flag += fmt.Sprintf(` ("%s")`, r.Detail)
		}
		adv.Flags = append(adv.Flags, flag)
	}

	return adv
}

// Toggle flips the expanded state.
func (a *Advisory) Toggle() {
	a.Expanded = !a.Expanded
}

var badgeTemplate = template.Must(template.New("badge").Parse(
	`<details id="{{.ID}}" class="fb-trust-badge fb-trust-{{.A.Level}}"{{if .A.Expanded}} open{{end}}>` +
		`<summary class="fb-trust-badge-header">` +
		`<span class="fb-trust-badge-emoji">{{.A.Marker}}</span>` +
		`<span class="fb-trust-badge-level">{{.A.Label}}</span>` +
		`<span class="fb-trust-badge-score">Score: {{.A.Score}}</span>` +
		`</summary>` +
		`<div class="fb-trust-badge-details">` +
		`<div class="fb-trust-badge-section"><strong>Seller Info:</strong><ul>` +
		`{{range .A.Seller}}<li>{{.}}</li>{{end}}` +
		`</ul></div>` +
		`{{if .A.Flags}}<div class="fb-trust-badge-section"><strong>Red Flags:</strong><ul>` +
		`{{range .A.Flags}}<li>⚠️ {{.}}</li>{{end}}` +
		`</ul></div>` +
		`{{else}}<div class="fb-trust-badge-section"><strong>No major red flags detected</strong></div>{{end}}` +
		`</div></details>`))

// RenderHTML writes the badge markup. All page-derived text is escaped.
func (a *Advisory) RenderHTML(w io.Writer) error {
	return badgeTemplate.Execute(w, struct {
		ID string
		A  *Advisory
	}{BadgeID, a})
}

// HTML is RenderHTML into a string.
func (a *Advisory) HTML() (string, error) {
	var sb strings.Builder
	if err := a.RenderHTML(&sb); err != nil {
		return "", fmt.Errorf("advisory: render: %w", err)
	}
	return sb.String(), nil
}

func levelColor(l models.RiskLevel) string {
	switch l {
	case models.RiskHigh:
		return "\033[1;31m"
	case models.RiskMedium:
		return "\033[1;33m"
	default:
		return "\033[1;32m"
	}
}

// Print writes a terminal rendition of the badge.
func (a *Advisory) Print(w io.Writer) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "  %s %s%s\033[0m  Score: \033[1m%d\033[0m\n", a.Marker, levelColor(a.Level), a.Label, a.Score)
	if a.Title != "" {
		fmt.Fprintf(w, "  %s\n", truncate(a.Title, 50))
	}
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Seller Info\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, line := range a.Seller {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintln(w)

	if len(a.Flags) == 0 {
		fmt.Fprintf(w, "  No major red flags detected\n")
	} else {
		fmt.Fprintf(w, "\033[1;33m  Red Flags\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		for _, f := range a.Flags {
			fmt.Fprintf(w, "  ⚠️  %s\n", f)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// PrintStatus writes the status summary: whether checking is active,
// whether auto-scan is on, and the running counters.
func PrintStatus(w io.Writer, settings models.Settings, stats models.Stats) {
	thin := strings.Repeat("─", 54)

	status, statusColor := "Disabled", "\033[1;31m"
	if settings.Enabled {
		status, statusColor = "Active", "\033[1;32m"
	}
	autoScan := "Off"
	if settings.AutoScan {
		autoScan = "On"
	}

	fmt.Fprintf(w, "\n\033[1;35m  🛡️  TRUST CHECKER STATUS\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Status            : %s%s\033[0m\n", statusColor, status)
	fmt.Fprintf(w, "  Auto-scan         : %s\n", autoScan)
	fmt.Fprintf(w, "  Listings scanned  : \033[1m%d\033[0m\n", stats.ListingsScanned)
	fmt.Fprintf(w, "  Scams detected    : \033[1m%d\033[0m\n", stats.ScamsDetected)
	fmt.Fprintf(w, "  %s\n\n", thin)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
