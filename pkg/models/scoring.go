package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Factor names a component of the additive impact rubric.
type Factor string

const (
	// FactorReach measures how much of the user base is affected.
	FactorReach Factor = "reach"
	// FactorIntensity measures how painful the problem is.
	FactorIntensity Factor = "intensity"
	// FactorUserValue measures the value of the affected users.
	FactorUserValue Factor = "user_value"
	// FactorConfidence measures how well the evidence supports the problem.
	FactorConfidence Factor = "confidence"
)

// Factors lists the rubric factors in presentation order.
var Factors = []Factor{FactorReach, FactorIntensity, FactorUserValue, FactorConfidence}

// FactorScore is the score given to one factor and the reason for it.
type FactorScore struct {
	Score  int    `json:"score" yaml:"score"`
	Reason string `json:"reason" yaml:"reason"`
}

// UnmarshalJSON accepts numeric strings, fractional scores, and a bare
// number in place of the {score, reason} object.
func (f *FactorScore) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var n flexInt
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = FactorScore{Score: int(n)}
		return nil
	}
	var aux struct {
		Score  flexInt    `json:"score"`
		Reason flexString `json:"reason"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	f.Score = int(aux.Score)
	f.Reason = string(aux.Reason)
	return nil
}

// ScoringBreakdown maps each rubric factor to its score.
type ScoringBreakdown map[Factor]FactorScore

// Sum returns the literal sum of all factor scores.
func (s ScoringBreakdown) Sum() int {
	total := 0
	for _, f := range s {
		total += f.Score
	}
	return total
}

// Get returns the score for factor and whether it is present.
func (s ScoringBreakdown) Get(f Factor) (FactorScore, bool) {
	fs, ok := s[f]
	return fs, ok
}

// ScoringScheme fixes the maximum score of each factor.
type ScoringScheme struct {
	// Name identifies the scheme in configuration ("strict" or "legacy").
	Name string
	// Max is the per-factor maximum. Every factor's minimum is 1.
	Max map[Factor]int
}

// StrictScheme is the 16-point rubric.
var StrictScheme = ScoringScheme{
	Name: "strict",
	Max: map[Factor]int{
		FactorReach:      5,
		FactorIntensity:  5,
		FactorUserValue:  3,
		FactorConfidence: 3,
	},
}

// LegacyScheme is the original 10-point rubric.
var LegacyScheme = ScoringScheme{
	Name: "legacy",
	Max: map[Factor]int{
		FactorReach:      3,
		FactorIntensity:  3,
		FactorUserValue:  2,
		FactorConfidence: 2,
	},
}

// SchemeByName returns the scheme with the given name.
func SchemeByName(name string) (ScoringScheme, error) {
	switch name {
	case "", StrictScheme.Name:
		return StrictScheme, nil
	case LegacyScheme.Name:
		return LegacyScheme, nil
	default:
		return ScoringScheme{}, fmt.Errorf("unknown scoring scheme %q", name)
	}
}

// Total returns the maximum possible impact score.
func (s ScoringScheme) Total() int {
	total := 0
	for _, f := range Factors {
		total += s.Max[f]
	}
	return total
}

// MaxFor returns the maximum score for factor, or 0 if the scheme does not know it.
func (s ScoringScheme) MaxFor(f Factor) int {
	return s.Max[f]
}
