package services

import (
	"fmt"
	"strings"

	"trust-checker/config"
	"trust-checker/models"
)

// defaultRules is the rule table in evaluation order.
var defaultRules = []models.RiskRule{
	{ID: models.RuleNewAccount, Weight: 2, Reason: "Account created recently"},
	{ID: models.RuleSingleListing, Weight: 3, Reason: "Seller has only 1 listing"},
	{ID: models.RuleFewListings, Weight: 2, Reason: "Seller has very few listings (2-3)"},
	{ID: models.RuleOldAccountFewListings, Weight: 4, Reason: "Old account but only 1-2 listings (possible hijacked account)"},
	{ID: models.RuleScamPhrase, Weight: 2, Reason: "Contains common scam phrases"},
	{ID: models.RuleAskingForRating, Weight: 3, Reason: "Asking for rating before transaction"},
	{ID: models.RuleNoRatings, Weight: 2, Reason: "Seller has no ratings or reviews"},
}

// DefaultRules returns a copy of the built-in rule table.
func DefaultRules() []models.RiskRule {
	return append([]models.RiskRule(nil), defaultRules...)
}

// Thresholds are the minimum scores for the medium and high levels.
type Thresholds struct {
	Medium int
	High   int
}

// DefaultThresholds classifies 4-6 as medium and 7+ as high.
var DefaultThresholds = Thresholds{Medium: 4, High: 7}

// ThresholdsFromSettings converts the stored inclusive band ceilings
// ({low: 3, medium: 6}) into level floors.
func ThresholdsFromSettings(t models.RiskThreshold) Thresholds {
	return Thresholds{Medium: t.Low + 1, High: t.Medium + 1}
}

// RiskConfig holds the recognized scoring options.
type RiskConfig struct {
	RecentYearCutoff   int
	OldAccountCutoff   int
	ScamPhrases        []string
	RatingPhraseMarker string
	Weights            map[models.RuleID]int
	Thresholds         Thresholds
}

// DefaultRiskConfig returns the stock configuration.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		RecentYearCutoff:   2024,
		OldAccountCutoff:   2023,
		ScamPhrases:        append([]string(nil), config.DefaultScamPhrases...),
		RatingPhraseMarker: "rate",
		Thresholds:         DefaultThresholds,
	}
}

// RiskConfigFrom lifts the scoring options out of the process config.
func RiskConfigFrom(cfg *config.Config) RiskConfig {
	rc := DefaultRiskConfig()
	rc.RecentYearCutoff = cfg.RecentYearCutoff
	rc.OldAccountCutoff = cfg.OldAccountCutoff
	if len(cfg.ScamPhrases) > 0 {
		rc.ScamPhrases = append([]string(nil), cfg.ScamPhrases...)
	}
	if cfg.RatingPhraseMarker != "" {
		rc.RatingPhraseMarker = cfg.RatingPhraseMarker
	}
	if len(cfg.Weights) > 0 {
		rc.Weights = make(map[models.RuleID]int, len(cfg.Weights))
		for id, w := range cfg.Weights {
			rc.Weights[models.RuleID(id)] = w
		}
	}
	return rc
}

// RuleSet is a validated, immutable rule table plus the options the
// scorer needs. Build one with NewRuleSet.
type RuleSet struct {
	rules            map[models.RuleID]models.RiskRule
	order            []models.RuleID
	recentYearCutoff int
	oldAccountCutoff int
	phrases          []string
	ratingMarker     string
	thresholds       Thresholds
}

// NewRuleSet validates cfg against the built-in table.
func NewRuleSet(cfg RiskConfig) (*RuleSet, error) {
	rs := &RuleSet{
		rules:            make(map[models.RuleID]models.RiskRule, len(defaultRules)),
		recentYearCutoff: cfg.RecentYearCutoff,
		oldAccountCutoff: cfg.OldAccountCutoff,
		ratingMarker:     strings.ToLower(strings.TrimSpace(cfg.RatingPhraseMarker)),
		thresholds:       cfg.Thresholds,
	}

	for _, r := range defaultRules {
		rs.rules[r.ID] = r
		rs.order = append(rs.order, r.ID)
	}

	for id, w := range cfg.Weights {
		r, ok := rs.rules[id]
		if !ok {
			return nil, fmt.Errorf("rules: unknown rule id %q", id)
		}
		if w <= 0 {
			return nil, fmt.Errorf("rules: weight for %s must be positive, got %d", id, w)
		}
		r.Weight = w
		rs.rules[id] = r
	}

	if rs.ratingMarker == "" {
		return nil, fmt.Errorf("rules: rating phrase marker must not be empty")
	}
	if rs.thresholds.Medium <= 0 || rs.thresholds.High <= rs.thresholds.Medium {
		return nil, fmt.Errorf("rules: thresholds must satisfy 0 < medium < high, got %d/%d",
			rs.thresholds.Medium, rs.thresholds.High)
	}

	for _, p := range cfg.ScamPhrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			rs.phrases = append(rs.phrases, p)
		}
	}

	return rs, nil
}

// MustRuleSet is NewRuleSet for configurations known to be valid.
func MustRuleSet(cfg RiskConfig) *RuleSet {
	rs, err := NewRuleSet(cfg)
	if err != nil {
		panic(err)
	}
	return rs
}

// Rule returns the configured rule for id.
func (rs *RuleSet) Rule(id models.RuleID) models.RiskRule {
	return rs.rules[id]
}

// Rules lists the configured rules in evaluation order.
func (rs *RuleSet) Rules() []models.RiskRule {
	out := make([]models.RiskRule, 0, len(rs.order))
	for _, id := range rs.order {
		out = append(out, rs.rules[id])
	}
	return out
}

// Thresholds returns the level floors.
func (rs *RuleSet) Thresholds() Thresholds {
	return rs.thresholds
}

// WithThresholds returns a copy of rs using t for level classification.
func (rs *RuleSet) WithThresholds(t Thresholds) (*RuleSet, error) {
	if t.Medium <= 0 || t.High <= t.Medium {
		return nil, fmt.Errorf("rules: thresholds must satisfy 0 < medium < high, got %d/%d", t.Medium, t.High)
	}
	cp := *rs
	cp.thresholds = t
	return &cp, nil
}

// isRatingPhrase reports whether a phrase solicits a rating.
func (rs *RuleSet) isRatingPhrase(phrase string) bool {
	return strings.Contains(phrase, rs.ratingMarker)
}
