package rank

import (
	"fmt"
	"sort"

	"github.com/ShayCichocki/c4pm/pkg/models"
)

// smallSample is the transcript count below which confidence cannot reach
// its maximum.
const smallSample = 3

// Advisory is a constraint the capability is asked to honor. It is sent as
// an instruction and never enforced locally; Check only reports violations
// for strict validation.
type Advisory struct {
	Name        string
	Instruction string
	Check       func(in CheckInput) []Violation
}

// CheckInput is what advisory checks look at.
type CheckInput struct {
	Problems    []models.ProblemRecord
	Transcripts int
	Scheme      models.ScoringScheme
}

// Violation is one advisory constraint the capability did not honor.
type Violation struct {
	Constraint string `json:"constraint"`
	Problem    string `json:"problem"`
	Detail     string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.Constraint, v.Problem, v.Detail)
}

// Invariant is a rule the stage enforces itself on every non-degraded
// ranking, regardless of what the capability returned.
type Invariant struct {
	Name  string
	Apply func(problems []models.ProblemRecord)
}

// Advisories returns the advisory constraints for scheme, in the order they
// appear in the prompt.
func Advisories(scheme models.ScoringScheme) []Advisory {
	confMax := scheme.MaxFor(models.FactorConfidence)
	return []Advisory{
		{
			Name: "anti_tie",
			Instruction: "No two problems may share an impact_score. If two problems would tie, " +
				"decide between them head to head and explain the tie-break in reasoning.",
			Check: checkAntiTie,
		},
		{
			Name:        "single_source_confidence",
			Instruction: "If a problem's frequency is 1, its confidence score MUST be 1. Do not inflate confidence.",
			Check:       checkSingleSource,
		},
		{
			Name: "small_sample_confidence",
			Instruction: fmt.Sprintf("If fewer than %d interviews were analyzed, the confidence score cannot reach its maximum of %d.",
				smallSample, confMax),
			Check: checkSmallSample,
		},
		{
			Name:        "factor_bounds",
			Instruction: "Every factor score is an integer between 1 and that factor's maximum.",
			Check:       checkFactorBounds,
		},
		{
			Name:        "declared_sum",
			Instruction: "impact_score MUST equal the sum of the four factor scores.",
			Check:       checkDeclaredSum,
		},
		{
			Name:        "frequency_mentions",
			Instruction: "frequency must equal the number of distinct interviewees in mentioned_by.",
			Check:       checkFrequencyMentions,
		},
	}
}

// Invariants returns the locally enforced rules, in application order.
func Invariants() []Invariant {
	return []Invariant{
		{Name: "order_by_impact", Apply: SortByImpact},
		{Name: "confidence_label", Apply: LabelConfidence},
	}
}

// Validate checks problems against every advisory constraint and returns
// the violations found. Nothing is modified.
func Validate(problems []models.ProblemRecord, transcripts int, scheme models.ScoringScheme) []Violation {
	in := CheckInput{Problems: problems, Transcripts: transcripts, Scheme: scheme}
	var out []Violation
	for _, a := range Advisories(scheme) {
		out = append(out, a.Check(in)...)
	}
	return out
}

// SortByImpact orders problems by impact_score, highest first. Equal scores
// keep their incoming order; ties are not broken here.
func SortByImpact(problems []models.ProblemRecord) {
	sort.SliceStable(problems, func(i, j int) bool {
		return problems[i].ImpactScore > problems[j].ImpactScore
	})
}

// LabelConfidence derives the confidence label of every problem from its
// confidence sub-score.
func LabelConfidence(problems []models.ProblemRecord) {
	for i := range problems {
		problems[i].Confidence = ConfidenceLabel(problems[i])
	}
}

// ConfidenceLabel returns "high" when the confidence sub-score is at least 2
// and "medium" otherwise. A record without scoring is "medium". A scoring
// block without a confidence factor counts as the minimum score.
func ConfidenceLabel(p models.ProblemRecord) models.ConfidenceLabel {
	if !p.HasScoring() {
		return models.ConfidenceMedium
	}
	score := 1
	if fs, ok := p.Scoring.Get(models.FactorConfidence); ok {
		score = fs.Score
	}
	if score >= 2 {
		return models.ConfidenceHigh
	}
	return models.ConfidenceMedium
}

func checkAntiTie(in CheckInput) []Violation {
	var out []Violation
	first := make(map[int]string)
	for _, p := range in.Problems {
		if !p.HasScoring() {
			continue
		}
		if other, ok := first[p.ImpactScore]; ok {
			out = append(out, Violation{
				Constraint: "anti_tie",
				Problem:    p.Name,
				Detail:     fmt.Sprintf("impact_score %d ties with %q", p.ImpactScore, other),
			})
			continue
		}
		first[p.ImpactScore] = p.Name
	}
	return out
}

func checkSingleSource(in CheckInput) []Violation {
	var out []Violation
	for _, p := range in.Problems {
		fs, ok := p.Scoring.Get(models.FactorConfidence)
		if !ok || p.Frequency != 1 || fs.Score == 1 {
			continue
		}
		out = append(out, Violation{
			Constraint: "single_source_confidence",
			Problem:    p.Name,
			Detail:     fmt.Sprintf("frequency 1 but confidence score %d", fs.Score),
		})
	}
	return out
}

func checkSmallSample(in CheckInput) []Violation {
	if in.Transcripts >= smallSample {
		return nil
	}
	limit := in.Scheme.MaxFor(models.FactorConfidence)
	var out []Violation
	for _, p := range in.Problems {
		fs, ok := p.Scoring.Get(models.FactorConfidence)
		if !ok || fs.Score < limit {
			continue
		}
		out = append(out, Violation{
			Constraint: "small_sample_confidence",
			Problem:    p.Name,
			Detail:     fmt.Sprintf("%d transcripts but confidence at maximum %d", in.Transcripts, limit),
		})
	}
	return out
}

func checkFactorBounds(in CheckInput) []Violation {
	var out []Violation
	for _, p := range in.Problems {
		if !p.HasScoring() {
			continue
		}
		for _, f := range models.Factors {
			limit := in.Scheme.MaxFor(f)
			fs, ok := p.Scoring.Get(f)
			switch {
			case !ok:
				out = append(out, Violation{
					Constraint: "factor_bounds",
					Problem:    p.Name,
					Detail:     fmt.Sprintf("%s missing", f),
				})
			case fs.Score < 1 || fs.Score > limit:
				out = append(out, Violation{
					Constraint: "factor_bounds",
					Problem:    p.Name,
					Detail:     fmt.Sprintf("%s score %d outside 1..%d", f, fs.Score, limit),
				})
			}
		}
	}
	return out
}

func checkDeclaredSum(in CheckInput) []Violation {
	var out []Violation
	for _, p := range in.Problems {
		if p.ScoreSumMatches() {
			continue
		}
		out = append(out, Violation{
			Constraint: "declared_sum",
			Problem:    p.Name,
			Detail:     fmt.Sprintf("impact_score %d but factors sum to %d", p.ImpactScore, p.Scoring.Sum()),
		})
	}
	return out
}

func checkFrequencyMentions(in CheckInput) []Violation {
	var out []Violation
	for _, p := range in.Problems {
		if p.FrequencyConsistent() {
			continue
		}
		out = append(out, Violation{
			Constraint: "frequency_mentions",
			Problem:    p.Name,
			Detail:     fmt.Sprintf("frequency %d but %d distinct mentions", p.Frequency, p.DistinctMentions()),
		})
	}
	return out
}
