package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Severity classifies how badly a problem blocks its users.
type Severity string

const (
	// SeverityBlocker means users cannot do their job.
	SeverityBlocker Severity = "blocker"
	// SeverityMajorPain means significant friction.
	SeverityMajorPain Severity = "major_pain"
	// SeverityAnnoyance means nice to fix.
	SeverityAnnoyance Severity = "annoyance"
)

// Valid returns true if the severity is a known value.
func (s Severity) Valid() bool {
	switch s {
	case SeverityBlocker, SeverityMajorPain, SeverityAnnoyance:
		return true
	default:
		return false
	}
}

// ConfidenceLabel summarizes the confidence sub-score of a ranked problem.
type ConfidenceLabel string

const (
	// ConfidenceHigh is attached when the confidence sub-score is at least 2.
	ConfidenceHigh ConfidenceLabel = "high"
	// ConfidenceMedium is attached otherwise, including when no scoring exists.
	ConfidenceMedium ConfidenceLabel = "medium"
	// ConfidenceLow only appears on records produced by the ranking fallback.
	ConfidenceLow ConfidenceLabel = "low"
)

// Attribution identifies who mentioned a problem.
type Attribution struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// UnmarshalJSON accepts either an object or a bare name string.
func (a *Attribution) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var name flexString
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*a = Attribution{Name: string(name)}
		return nil
	}
	var aux struct {
		Name flexString `json:"name"`
		Role flexString `json:"role"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = Attribution{Name: string(aux.Name), Role: string(aux.Role)}
	return nil
}

// ProblemRecord is a clustered product problem synthesized from one or more
// transcripts. The extraction stage fills the descriptive fields; the ranking
// stage adds the scoring fields and never rewrites the descriptive ones.
type ProblemRecord struct {
	// Name is a short label for the problem.
	Name string `json:"name"`
	// Description explains what is broken and why it matters.
	Description string `json:"description"`
	// Evidence holds verbatim quotes, optionally speaker-attributed.
	Evidence Quotes `json:"evidence"`
	// MentionedBy lists who raised the problem, in first-mention order.
	MentionedBy []Attribution `json:"mentioned_by,omitempty"`
	// UserSegment names the affected users.
	UserSegment string `json:"user_segment"`
	// Severity is blocker, major_pain or annoyance.
	Severity Severity `json:"severity"`
	// Frequency is the number of transcripts referencing the problem.
	Frequency int `json:"frequency"`
	// UrgencySignals are short phrases signalling urgency.
	UrgencySignals []string `json:"urgency_signals,omitempty"`
	// Conflicts describes disagreement between interviewees. Empty means none.
	Conflicts string `json:"conflicts,omitempty"`

	// Scoring is the per-factor breakdown. Nil until ranked.
	Scoring ScoringBreakdown `json:"scoring,omitempty"`
	// ImpactScore is the declared sum of the factor scores.
	ImpactScore int `json:"impact_score,omitempty"`
	// Rank is the position claimed by the reasoning capability.
	Rank int `json:"rank,omitempty"`
	// Reasoning justifies the score.
	Reasoning string `json:"reasoning,omitempty"`
	// Tradeoffs describes what is lost by not solving the problem.
	Tradeoffs string `json:"tradeoffs,omitempty"`
	// Confidence is derived locally from the confidence sub-score.
	Confidence ConfidenceLabel `json:"confidence,omitempty"`
}

// UnmarshalJSON decodes a problem record tolerating loosely typed fields.
func (p *ProblemRecord) UnmarshalJSON(data []byte) error {
	var aux struct {
		Name           flexString       `json:"name"`
		Description    flexString       `json:"description"`
		Evidence       Quotes           `json:"evidence"`
		MentionedBy    []Attribution    `json:"mentioned_by"`
		UserSegment    flexString       `json:"user_segment"`
		Severity       flexString       `json:"severity"`
		Frequency      flexInt          `json:"frequency"`
		UrgencySignals Quotes           `json:"urgency_signals"`
		Conflicts      flexString       `json:"conflicts"`
		Scoring        ScoringBreakdown `json:"scoring"`
		ImpactScore    flexInt          `json:"impact_score"`
		Rank           flexInt          `json:"rank"`
		Reasoning      flexString       `json:"reasoning"`
		Tradeoffs      flexString       `json:"tradeoffs"`
		Confidence     flexString       `json:"confidence"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = ProblemRecord{
		Name:           string(aux.Name),
		Description:    string(aux.Description),
		Evidence:       aux.Evidence,
		MentionedBy:    aux.MentionedBy,
		UserSegment:    string(aux.UserSegment),
		Severity:       Severity(strings.ToLower(strings.TrimSpace(string(aux.Severity)))),
		Frequency:      int(aux.Frequency),
		UrgencySignals: []string(aux.UrgencySignals),
		Conflicts:      string(aux.Conflicts),
		Scoring:        aux.Scoring,
		ImpactScore:    int(aux.ImpactScore),
		Rank:           int(aux.Rank),
		Reasoning:      string(aux.Reasoning),
		Tradeoffs:      string(aux.Tradeoffs),
		Confidence:     ConfidenceLabel(string(aux.Confidence)),
	}
	if p.Evidence == nil {
		p.Evidence = Quotes{}
	}
	return nil
}

// HasScoring reports whether the record carries a scoring block.
func (p ProblemRecord) HasScoring() bool {
	return p.Scoring != nil
}

// ScoreSumMatches reports whether ImpactScore equals the literal sum of the
// factor scores. Records without scoring trivially match.
func (p ProblemRecord) ScoreSumMatches() bool {
	if p.Scoring == nil {
		return true
	}
	return p.Scoring.Sum() == p.ImpactScore
}

// DistinctMentions counts distinct entries in MentionedBy by name
// (case-insensitive).
func (p ProblemRecord) DistinctMentions() int {
	seen := make(map[string]bool, len(p.MentionedBy))
	for _, a := range p.MentionedBy {
		key := strings.ToLower(strings.TrimSpace(a.Name))
		if key == "" {
			continue
		}
		seen[key] = true
	}
	return len(seen)
}

// FrequencyConsistent reports whether Frequency agrees with the number of
// distinct mentions. A record lacking either value is considered consistent.
func (p ProblemRecord) FrequencyConsistent() bool {
	if p.Frequency == 0 || len(p.MentionedBy) == 0 {
		return true
	}
	return p.Frequency == p.DistinctMentions()
}
