package specgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ShayCichocki/c4pm/pkg/models"
)

const defaultSystem = `You are a technical product manager who writes clear, specific, actionable specs. You never write generic requirements: everything is concrete and testable.`

// specPrompt arguments: problem JSON, evidence, attribution, scoring
// summary, transcript excerpts.
const specPrompt = `You are generating a product specification that an AI coding agent will implement.

The spec must be SPECIFIC and ACTIONABLE, never generic advice that could apply to any product.

PROBLEM TO SOLVE:
%s

EVIDENCE FROM USER RESEARCH:
%s

MENTIONED BY:
%s

SCORING BREAKDOWN:
%s

INTERVIEW EXCERPTS:
%s

Generate a spec with these EXACT top-level keys:

1. problem_statement: 2-3 sentences describing the specific problem. Reference user quotes.
2. user_stories: 3 stories in "As [role], I want [action], so that [benefit]" form, specific to the evidence above.
3. proposed_solution: an object with
   - summary: one paragraph describing the core solution
   - ui_changes: concrete UI elements to add or modify ("Add a button labeled X in the Y panel")
   - data_model_changes: concrete fields or tables ("Add last_synced_at to the User table")
   - api_changes: new endpoints or modifications
   - workflow_changes: how the user flow changes, step by step
4. acceptance_criteria: 5-7 testable criteria, as "Given X, When Y, Then Z" or clear pass/fail conditions.
5. out_of_scope: what is explicitly NOT being built.
6. success_metrics: how we will know this worked, with baselines ("reduce time from X to Y").
7. risks: what could go wrong technically or with adoption.
8. implementation_hints: specific technical guidance for the coding agent.
9. evidence_summary: 2-3 key quotes that justify this spec.

ANTI-GENERICITY RULE: every string you write must reference concrete domain terms, named roles or quoted numbers from the material above. Never use placeholder language such as "improve the experience" or "the user".

Respond with a single JSON object containing exactly those keys.`

// BuildPrompt renders the specification prompt for problem.
func BuildPrompt(problem models.ProblemRecord, transcripts []models.TranscriptRecord, opts Options) (string, error) {
	problemJSON, err := json.MarshalIndent(problem, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode problem: %w", err)
	}
	return fmt.Sprintf(specPrompt,
		problemJSON,
		evidenceList(problem.Evidence),
		attributionList(problem.MentionedBy),
		ScoringSummary(problem.Scoring, opts.Scheme),
		excerpts(transcripts, opts.MaxTranscripts, opts.ExcerptChars),
	), nil
}

// ScoringSummary renders one "- factor: score/max - reason" line per factor,
// or "Not available" when there is no scoring.
func ScoringSummary(scoring models.ScoringBreakdown, scheme models.ScoringScheme) string {
	if len(scoring) == 0 {
		return "Not available"
	}
	var b strings.Builder
	for _, f := range models.Factors {
		fs, ok := scoring.Get(f)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %d/%d - %s\n", f, fs.Score, scheme.MaxFor(f), fs.Reason)
	}
	if b.Len() == 0 {
		return "Not available"
	}
	return b.String()
}

func evidenceList(evidence models.Quotes) string {
	if len(evidence) == 0 {
		return "None recorded"
	}
	lines := make([]string, len(evidence))
	for i, e := range evidence {
		lines[i] = fmt.Sprintf("- %q", e)
	}
	return strings.Join(lines, "\n")
}

func attributionList(mentions []models.Attribution) string {
	if len(mentions) == 0 {
		return "Not recorded"
	}
	lines := make([]string, len(mentions))
	for i, m := range mentions {
		if m.Role != "" {
			lines[i] = fmt.Sprintf("- %s (%s)", m.Name, m.Role)
		} else {
			lines[i] = "- " + m.Name
		}
	}
	return strings.Join(lines, "\n")
}

func excerpts(transcripts []models.TranscriptRecord, n, maxChars int) string {
	if n > 0 && len(transcripts) > n {
		transcripts = transcripts[:n]
	}
	if len(transcripts) == 0 {
		return "None"
	}
	parts := make([]string, 0, len(transcripts))
	for _, t := range transcripts {
		content := []rune(t.Content)
		suffix := ""
		if maxChars > 0 && len(content) > maxChars {
			content = content[:maxChars]
			suffix = "..."
		}
		parts = append(parts, fmt.Sprintf("[%s - %s, %s]\n%s%s",
			t.Filename,
			t.Meta(models.MetaInterviewee, "Unknown"),
			t.Meta(models.MetaRole, "Unknown"),
			string(content), suffix))
	}
	return strings.Join(parts, "\n\n")
}
