package extract

// defaultSystem is the role instruction for extraction.
const defaultSystem = `You are a product analyst expert at synthesizing user research into actionable insights. You never paraphrase: every piece of evidence you cite is an exact quote from the transcripts.`

// extractionPrompt is the prompt template. Arguments: transcript count,
// combined transcripts.
const extractionPrompt = `You are analyzing %[1]d customer interview transcripts to identify the core product problems.

CRITICAL RULES:
1. Return between 4 and 8 DISTINCT problems.
2. Cluster aggressively: problems that the same feature would solve MUST be merged into one problem.
3. Evidence MUST be EXACT QUOTES copied verbatim from the transcripts. Never paraphrase or summarize.
4. Attribute every quote to its speaker, e.g. "Dana (Ops Lead): \"we export to Excel every Friday\"".
5. Only include problems mentioned in 2 or more transcripts OR expressed with strong emotional language ("huge pain", "broken", "I hate", ...).
6. Focus on root causes, not symptoms.

For each problem provide:
- name: clear, specific name (3-6 words) describing the problem itself
- description: what is broken and why it matters (2-3 sentences)
- evidence: 2-4 exact quotes with speaker attribution
- mentioned_by: every interviewee who raised it, as {"name": "...", "role": "..."}, in order of first mention
- user_segment: who is affected
- severity: "blocker" (cannot do their job) | "major_pain" (significant friction) | "annoyance" (nice to fix)
- frequency: how many of the %[1]d transcripts mention this problem
- urgency_signals: short phrases showing urgency or emotion
- conflicts: where interviewees disagree about this problem, or null

TRANSCRIPTS:
%[2]s

Respond with a JSON object:
{
  "problems": [
    {
      "name": "...",
      "description": "...",
      "evidence": ["Speaker (Role): \"exact quote\""],
      "mentioned_by": [{"name": "...", "role": "..."}],
      "user_segment": "...",
      "severity": "blocker|major_pain|annoyance",
      "frequency": 2,
      "urgency_signals": ["..."],
      "conflicts": null
    }
  ],
  "synthesis_notes": "Brief explanation of how you clustered and prioritized these problems"
}

Remember: EXACT QUOTES ONLY.`
