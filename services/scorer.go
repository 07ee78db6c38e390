package services

import (
	"strings"
	"time"

	"trust-checker/models"
	"trust-checker/utils"
)

// Score evaluates signals against rs. It is pure: absent signals simply do
// not trigger their rule, and the result depends only on its arguments.
func Score(s models.ListingSignals, rs *RuleSet, at time.Time) models.RiskAssessment {
	var triggered []models.TriggeredRule
	hit := func(id models.RuleID, detail string) {
		triggered = append(triggered, models.TriggeredRule{RiskRule: rs.Rule(id), Detail: detail})
	}

	seller := s.Seller

	if seller.JoinedYear != nil && *seller.JoinedYear >= rs.recentYearCutoff {
		hit(models.RuleNewAccount, "")
	}

	if seller.ListingCount != nil {
		count := *seller.ListingCount
		if count == 1 {
			hit(models.RuleSingleListing, "")
		} else if count >= 2 && count <= 3 {
			hit(models.RuleFewListings, "")
		}

		// Independent of the count rules above.
		if seller.JoinedYear != nil && *seller.JoinedYear < rs.oldAccountCutoff && count <= 2 {
			hit(models.RuleOldAccountFewListings, "")
		}
	}

	// Only the first phrase found counts, even if several are present.
	text := strings.ToLower(s.Title + " " + s.Description)
	for _, phrase := range rs.phrases {
		if !strings.Contains(text, phrase) {
			continue
		}
		if rs.isRatingPhrase(phrase) {
			hit(models.RuleAskingForRating, "")
		} else {
			hit(models.RuleScamPhrase, phrase)
		}
		break
	}

	if seller.Rating == nil || *seller.Rating == 0 {
		hit(models.RuleNoRatings, "")
	}

	total := 0
	for _, r := range triggered {
		total += r.Weight
	}

	if triggered == nil {
		triggered = []models.TriggeredRule{}
	}

	return models.RiskAssessment{
		Score:          total,
		Level:          rs.Classify(total),
		TriggeredRules: triggered,
		AnalyzedAt:     at,
	}
}

// Classify maps a total score to a level.
func (rs *RuleSet) Classify(score int) models.RiskLevel {
	switch {
	case score >= rs.thresholds.High:
		return models.RiskHigh
	case score >= rs.thresholds.Medium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// Scorer wraps Score with a clock and logging for the analysis pipeline.
type Scorer struct {
	rules  *RuleSet
	now    func() time.Time
	logger *utils.Logger
}

// NewScorer creates a Scorer using the wall clock.
func NewScorer(rules *RuleSet, logger *utils.Logger) *Scorer {
	return &Scorer{rules: rules, now: time.Now, logger: logger}
}

// WithClock replaces the time source, mainly for tests.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	cp := *s
	cp.now = now
	return &cp
}

// Rules returns the rule set the scorer evaluates against.
func (s *Scorer) Rules() *RuleSet {
	return s.rules
}

// Assess scores signals with the given rule set, or the scorer's own when rs is nil.
func (s *Scorer) Assess(signals *models.ListingSignals, rs *RuleSet) models.RiskAssessment {
	if rs == nil {
		rs = s.rules
	}
	a := Score(*signals, rs, s.now())
	s.logger.Info("[scorer] %q scored %d (%s), %d rule(s) triggered",
		signals.Title, a.Score, a.Level, len(a.TriggeredRules))
	for _, r := range a.TriggeredRules {
		s.logger.Debug("[scorer]   +%d %s %s", r.Weight, r.ID, r.Detail)
	}
	return a
}
