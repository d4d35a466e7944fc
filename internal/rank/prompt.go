package rank

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ShayCichocki/c4pm/pkg/models"
)

const defaultSystem = `You are a product strategist who makes evidence-based recommendations. You always cite specific user quotes to justify your reasoning.`

// rankingPrompt arguments: interview count, problems JSON, transcript
// excerpts, scoring rubric, hard constraints, total possible points.
const rankingPrompt = `You are a senior product strategist helping a team decide what to build next.

DATA CONTEXT:
- Total interviews analyzed: %d
- Be honest about confidence given the sample size.

PROBLEMS IDENTIFIED:
%s

ORIGINAL INTERVIEW CONTEXT:
%s

YOUR TASK: produce a strict ranking of ALL of these problems by which one the team should solve FIRST.

SCORING FRAMEWORK (score every factor explicitly):
%s
HARD CONSTRAINTS:
%s
Total possible: %d points

For EACH problem return the original fields plus:
{
  "scoring": {
    "reach": {"score": N, "reason": "..."},
    "intensity": {"score": N, "reason": "..."},
    "user_value": {"score": N, "reason": "..."},
    "confidence": {"score": N, "reason": "..."}
  },
  "impact_score": N,
  "rank": N,
  "reasoning": "2-3 sentences explaining the ranking, citing specific quotes",
  "tradeoffs": "What the team gives up by NOT solving this problem"
}

Your reasoning must cite specific user quotes: not "users want X" but "Sarah said '...' which shows ...".

Respond with a JSON object:
{
  "ranked_problems": [...],
  "recommendation": "1-2 sentence executive summary of what to build first and why"
}

Order by impact_score descending.`

// factorGuide anchors the low and high end of each factor.
var factorGuide = map[models.Factor][2]string{
	models.FactorReach:      {"affects a small subset of users", "affects most or all users"},
	models.FactorIntensity:  {"annoyance, a workaround exists", "blocker, users cannot do their job"},
	models.FactorUserValue:  {"affects lower-value users (free, small, churning)", "affects high-value users (paying, enterprise, champions)"},
	models.FactorConfidence: {"one mention, indirect signals or a small sample", "several interviewees with clear quotes and strong emotion"},
}

// BuildPrompt renders the ranking prompt.
func BuildPrompt(problems []models.ProblemRecord, transcripts []models.TranscriptRecord, opts Options) (string, error) {
	problemJSON, err := json.MarshalIndent(problems, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode problems: %w", err)
	}
	return fmt.Sprintf(rankingPrompt,
		len(transcripts),
		problemJSON,
		Excerpts(transcripts, opts.MaxTranscripts, opts.ExcerptChars),
		rubric(opts.Scheme),
		constraints(opts.Scheme),
		opts.Scheme.Total(),
	), nil
}

// Excerpts returns the first maxChars characters of the first n transcripts,
// each labeled with filename and role.
func Excerpts(transcripts []models.TranscriptRecord, n, maxChars int) string {
	if n > 0 && len(transcripts) > n {
		transcripts = transcripts[:n]
	}
	parts := make([]string, 0, len(transcripts))
	for _, t := range transcripts {
		parts = append(parts, fmt.Sprintf("[%s - %s]\n%s...",
			t.Filename, t.Meta(models.MetaRole, "Unknown"), headRunes(t.Content, maxChars)))
	}
	return strings.Join(parts, "\n\n")
}

func rubric(scheme models.ScoringScheme) string {
	var b strings.Builder
	for i, f := range models.Factors {
		limit := scheme.MaxFor(f)
		guide := factorGuide[f]
		fmt.Fprintf(&b, "%d. %s (1-%d points)\n   - 1: %s\n   - %d: %s\n\n",
			i+1, strings.ToUpper(strings.ReplaceAll(string(f), "_", " ")), limit, guide[0], limit, guide[1])
	}
	return b.String()
}

func constraints(scheme models.ScoringScheme) string {
	var b strings.Builder
	for _, a := range Advisories(scheme) {
		fmt.Fprintf(&b, "- %s\n", a.Instruction)
	}
	return b.String()
}

// headRunes returns at most n runes of s. n <= 0 means no limit.
func headRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
