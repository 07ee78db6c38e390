package models

import "time"

// RuleID names one of the heuristic risk rules.
type RuleID string

const (
	RuleNewAccount            RuleID = "newAccount"
	RuleSingleListing         RuleID = "singleListing"
	RuleFewListings           RuleID = "fewListings"
	RuleOldAccountFewListings RuleID = "oldAccountFewListings"
	RuleScamPhrase            RuleID = "scamPhrase"
	RuleAskingForRating       RuleID = "askingForRating"
	RuleNoRatings             RuleID = "noRatings"
)

// RiskLevel is the discrete classification of a total score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskRule is a named, weighted condition. Rules are static once built.
type RiskRule struct {
	ID     RuleID `json:"id"`
	Weight int    `json:"weight"`
	Reason string `json:"reason"`
}

// TriggeredRule is a rule that matched a listing. Detail carries the
// matched evidence, e.g. the scam phrase that was found.
type TriggeredRule struct {
	RiskRule
	Detail string `json:"detail,omitempty"`
}

// RiskAssessment is the outcome of scoring one listing.
type RiskAssessment struct {
	Score          int             `json:"score"`
	Level          RiskLevel       `json:"level"`
	TriggeredRules []TriggeredRule `json:"risks"`
	AnalyzedAt     time.Time       `json:"analyzedAt"`
}

// Triggered reports whether the rule with the given id fired.
func (a RiskAssessment) Triggered(id RuleID) (TriggeredRule, bool) {
	for _, r := range a.TriggeredRules {
		if r.ID == id {
			return r, true
		}
	}
	return TriggeredRule{}, false
}
