package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSeverity_Valid(t *testing.T) {
	tests := []struct {
		name     string
		severity Severity
		want     bool
	}{
		{"blocker is valid", SeverityBlocker, true},
		{"major_pain is valid", SeverityMajorPain, true},
		{"annoyance is valid", SeverityAnnoyance, true},
		{"empty is invalid", Severity(""), false},
		{"unknown is invalid", Severity("critical"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.severity.Valid(); got != tt.want {
				t.Errorf("Severity(%q).Valid() = %v, want %v", tt.severity, got, tt.want)
			}
		})
	}
}

func TestProblemRecord_UnmarshalLooseFields(t *testing.T) {
	raw := `{
		"name": "Sync breaks silently",
		"description": ["Data stops syncing.", "Nobody notices."],
		"evidence": [
			"It just stops and I find out a week later",
			{"quote": "we lost a whole sprint of notes", "speaker": "Dana"}
		],
		"mentioned_by": ["Dana", {"name": "Lee", "role": "PM"}],
		"user_segment": "PMs at growth companies",
		"severity": " Blocker ",
		"frequency": "2",
		"urgency_signals": "lost a sprint",
		"conflicts": null,
		"scoring": {
			"reach": {"score": "4", "reason": "most teams"},
			"intensity": {"score": 4.6, "reason": "data loss"},
			"user_value": 2,
			"confidence": {"score": 2, "reason": "two users"}
		},
		"impact_score": 13,
		"rank": "1"
	}`

	var p ProblemRecord
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	want := ProblemRecord{
		Name:        "Sync breaks silently",
		Description: "Data stops syncing. Nobody notices.",
		Evidence: Quotes{
			"It just stops and I find out a week later",
			`Dana: "we lost a whole sprint of notes"`,
		},
		MentionedBy:    []Attribution{{Name: "Dana"}, {Name: "Lee", Role: "PM"}},
		UserSegment:    "PMs at growth companies",
		Severity:       SeverityBlocker,
		Frequency:      2,
		UrgencySignals: []string{"lost a sprint"},
		Scoring: ScoringBreakdown{
			FactorReach:      {Score: 4, Reason: "most teams"},
			FactorIntensity:  {Score: 5, Reason: "data loss"},
			FactorUserValue:  {Score: 2},
			FactorConfidence: {Score: 2, Reason: "two users"},
		},
		ImpactScore: 13,
		Rank:        1,
	}

	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("ProblemRecord mismatch (-want +got):\n%s", diff)
	}
}

func TestProblemRecord_LooseIntegers(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{`3`, 3},
		{`2.6`, 3},
		{`"4"`, 4},
		{`"4/5"`, 4},
		{`"1st"`, 1},
		{`"2 interviews"`, 2},
		{`"-1"`, -1},
		{`"several"`, 0},
		{`""`, 0},
		{`null`, 0},
		{`true`, 0},
		{`[1, 2]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			raw := `{"name": "x", "frequency": ` + tt.value + `, "rank": ` + tt.value +
				`, "scoring": {"reach": {"score": ` + tt.value + `}}}`
			var p ProblemRecord
			if err := json.Unmarshal([]byte(raw), &p); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if p.Frequency != tt.want || p.Rank != tt.want {
				t.Errorf("Frequency, Rank = %d, %d, want %d", p.Frequency, p.Rank, tt.want)
			}
			if got := p.Scoring[FactorReach].Score; got != tt.want {
				t.Errorf("reach score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProblemRecord_MissingEvidenceIsEmpty(t *testing.T) {
	var p ProblemRecord
	if err := json.Unmarshal([]byte(`{"name": "x"}`), &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if p.Evidence == nil {
		t.Fatal("Evidence should be an empty list, got nil")
	}
	if p.HasScoring() {
		t.Error("HasScoring() = true for a record without scoring")
	}
}

func TestProblemRecord_RejectsNonObject(t *testing.T) {
	var p ProblemRecord
	if err := json.Unmarshal([]byte(`"just a string"`), &p); err == nil {
		t.Error("expected error decoding a string into ProblemRecord")
	}
}

func TestProblemRecord_ScoreSumMatches(t *testing.T) {
	scoring := ScoringBreakdown{
		FactorReach:      {Score: 4},
		FactorIntensity:  {Score: 3},
		FactorUserValue:  {Score: 2},
		FactorConfidence: {Score: 1},
	}

	tests := []struct {
		name string
		p    ProblemRecord
		want bool
	}{
		{"no scoring", ProblemRecord{ImpactScore: 7}, true},
		{"matching sum", ProblemRecord{Scoring: scoring, ImpactScore: 10}, true},
		{"declared sum differs", ProblemRecord{Scoring: scoring, ImpactScore: 11}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.ScoreSumMatches(); got != tt.want {
				t.Errorf("ScoreSumMatches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProblemRecord_FrequencyConsistent(t *testing.T) {
	tests := []struct {
		name string
		p    ProblemRecord
		want bool
	}{
		{"no mentions", ProblemRecord{Frequency: 3}, true},
		{"no frequency", ProblemRecord{MentionedBy: []Attribution{{Name: "a"}}}, true},
		{
			"consistent",
			ProblemRecord{Frequency: 2, MentionedBy: []Attribution{{Name: "Ana"}, {Name: "Bo"}}},
			true,
		},
		{
			"duplicate names collapse",
			ProblemRecord{Frequency: 2, MentionedBy: []Attribution{{Name: "Ana"}, {Name: "ana "}}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.FrequencyConsistent(); got != tt.want {
				t.Errorf("FrequencyConsistent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSchemeByName(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"", 16, false},
		{"strict", 16, false},
		{"legacy", 10, false},
		{"fancy", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := SchemeByName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SchemeByName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err == nil && s.Total() != tt.want {
				t.Errorf("Total() = %d, want %d", s.Total(), tt.want)
			}
		})
	}
}
