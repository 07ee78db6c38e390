package services

import (
	"bytes"
	"strings"
	"testing"

	"trust-checker/models"
)

func TestNewAdvisoryLabels(t *testing.T) {
	tests := []struct {
		level     models.RiskLevel
		wantLabel string
	}{
		{models.RiskHigh, "High Risk"},
		{models.RiskMedium, "Caution"},
		{models.RiskLow, "Looks OK"},
	}
	for _, tt := range tests {
		adv := NewAdvisory(models.RiskAssessment{Level: tt.level}, &models.ListingSignals{})
		if adv.Label != tt.wantLabel {
			t.Errorf("%s: got %q, want %q", tt.level, adv.Label, tt.wantLabel)
		}
		if adv.Marker == "" {
			t.Errorf("%s: missing marker", tt.level)
		}
	}
}

func TestNewAdvisorySellerLines(t *testing.T) {
	unknown := NewAdvisory(models.RiskAssessment{}, &models.ListingSignals{})
	want := []string{"Account: Unknown", "Listings: Unknown", "Rating: No ratings"}
	for i, line := range want {
		if unknown.Seller[i] != line {
			t.Errorf("line %d: got %q, want %q", i, unknown.Seller[i], line)
		}
	}

	known := NewAdvisory(models.RiskAssessment{}, &models.ListingSignals{Seller: models.SellerSignals{
		JoinedYear: models.IntPtr(2019), ListingCount: models.IntPtr(0), Rating: models.FloatPtr(4.5),
	}})
	want = []string{"Account: Joined 2019", "Listings: 0", "Rating: 4.5"}
	for i, line := range want {
		if known.Seller[i] != line {
			t.Errorf("line %d: got %q, want %q", i, known.Seller[i], line)
		}
	}
}

func TestNewAdvisoryFlags(t *testing.T) {
	rs := defaultRuleSet(t)
	a := models.RiskAssessment{
		Level: models.RiskMedium,
		TriggeredRules: []models.TriggeredRule{
			{RiskRule: rs.Rule(models.RuleScamPhrase), Detail: "zelle only"},
			{RiskRule: rs.Rule(models.RuleNoRatings)},
		},
	}
	adv := NewAdvisory(a, &models.ListingSignals{})
	if len(adv.Flags) != 2 {
		t.Fatalf("flags: got %v", adv.Flags)
	}
	if adv.Flags[0] != `Contains common scam phrases ("zelle only")` {
		t.Errorf("flag 0: got %q", adv.Flags[0])
	}
	if adv.Flags[1] != "Seller has no ratings or reviews" {
		t.Errorf("flag 1: got %q", adv.Flags[1])
	}
}

func TestRenderHTML(t *testing.T) {
	adv := NewAdvisory(models.RiskAssessment{Level: models.RiskHigh, Score: 9}, &models.ListingSignals{})

	var buf bytes.Buffer
	if err := adv.RenderHTML(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		`id="fb-trust-checker-badge"`,
		`fb-trust-high`,
		`High Risk`,
		`Score: 9`,
		`No major red flags detected`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
	if strings.Contains(out, " open>") {
		t.Error("collapsed badge should not be open")
	}

	adv.Toggle()
	html, err := adv.HTML()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, " open>") {
		t.Errorf("expanded badge should be open: %s", html)
	}
	adv.Toggle()
	if adv.Expanded {
		t.Error("second Toggle should collapse")
	}
}

func TestRenderHTMLEscapesPageText(t *testing.T) {
	rs := defaultRuleSet(t)
	a := models.RiskAssessment{
		Level:          models.RiskLow,
		TriggeredRules: []models.TriggeredRule{{RiskRule: rs.Rule(models.RuleScamPhrase), Detail: `<script>alert(1)</script>`}},
	}
	html, err := NewAdvisory(a, &models.ListingSignals{}).HTML()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("detail was not escaped: %s", html)
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Errorf("expected escaped detail: %s", html)
	}
	if !strings.Contains(html, "Red Flags:") {
		t.Error("expected red flags section")
	}
}

func TestPrint(t *testing.T) {
	rs := defaultRuleSet(t)
	a := models.RiskAssessment{
		Level: models.RiskMedium, Score: 5,
		TriggeredRules: []models.TriggeredRule{{RiskRule: rs.Rule(models.RuleSingleListing)}},
	}
	var buf bytes.Buffer
	NewAdvisory(a, &models.ListingSignals{Title: "Desk Lamp"}).Print(&buf)
	out := buf.String()
	for _, want := range []string{"Caution", "Desk Lamp", "Seller has only 1 listing", "Account: Unknown"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output", want)
		}
	}
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintStatus(&buf, models.DefaultSettings(), models.Stats{ListingsScanned: 12, ScamsDetected: 3})
	out := buf.String()
	for _, want := range []string{"Active", "Auto-scan         : On", "12", "3"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}

	buf.Reset()
	PrintStatus(&buf, models.Settings{}, models.Stats{})
	out = buf.String()
	if !strings.Contains(out, "Disabled") || !strings.Contains(out, "Auto-scan         : Off") {
		t.Errorf("disabled status: %s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("ééééééééééééé", 8); got != "ééééé..." {
		t.Errorf("got %q", got)
	}
}
