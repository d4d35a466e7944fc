// Package render formats pipeline results for the terminal and serializes
// specification documents.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/ShayCichocki/c4pm/internal/history"
	"github.com/ShayCichocki/c4pm/internal/rank"
	"github.com/ShayCichocki/c4pm/pkg/models"
)

const (
	// DefaultCount is how many problems Problems prints by default.
	DefaultCount = 5
	// SmallSample is the transcript count below which results are flagged
	// as unreliable.
	SmallSample = 3

	reasonWidth   = 60
	evidenceWidth = 120
	evidenceShown = 2
	ruleWidth     = 60
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	score   = color.New(color.FgGreen, color.Bold)
	label   = color.New(color.Bold)
	faint   = color.New(color.Faint)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
)

// Truncate keeps the first n runes of s and appends "..." when it cut
// anything.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func rule(w io.Writer) {
	fmt.Fprintln(w, faint.Sprint(strings.Repeat("─", ruleWidth)))
}

// LoadSummary prints how many transcripts were loaded and warns when the
// sample is small.
func LoadSummary(w io.Writer, dir string, transcripts int) {
	fmt.Fprintf(w, "%s Loaded %d transcript(s) from %s\n", score.Sprint("✓"), transcripts, dir)
	if transcripts > 0 && transcripts < SmallSample {
		fmt.Fprintf(w, "%s Only %d transcript(s): rankings from a small sample are low confidence.\n",
			warning.Sprint("⚠"), transcripts)
	}
}

// Degraded prints a notice for each stage that fell back.
func Degraded(w io.Writer, stage string, err error) {
	msg := fmt.Sprintf("%s stage returned an unusable response; showing fallback output", stage)
	if err != nil {
		msg += fmt.Sprintf(" (%v)", err)
	}
	fmt.Fprintf(w, "%s %s\n", warning.Sprint("⚠"), msg)
}

// Problems prints the top count problems in ranked order. A count of zero or
// less means DefaultCount.
func Problems(w io.Writer, problems []models.ProblemRecord, count int, scheme models.ScoringScheme) {
	if len(problems) == 0 {
		fmt.Fprintln(w, warning.Sprint("No problems found."))
		return
	}
	if count <= 0 {
		count = DefaultCount
	}
	if count > len(problems) {
		count = len(problems)
	}

	fmt.Fprintf(w, "\n%s\n", heading.Sprintf("Top %d of %d problems", count, len(problems)))
	rule(w)
	for i, p := range problems[:count] {
		problem(w, i+1, p, scheme)
		rule(w)
	}
}

func problem(w io.Writer, n int, p models.ProblemRecord, scheme models.ScoringScheme) {
	fmt.Fprintf(w, "%s %s\n", heading.Sprintf("%d.", n), label.Sprint(p.Name))
	fmt.Fprintf(w, "   Impact Score: %s", score.Sprintf("%d/%d", p.ImpactScore, scheme.Total()))
	if p.Confidence != "" {
		fmt.Fprintf(w, "  %s", faint.Sprintf("(%s confidence)", p.Confidence))
	}
	fmt.Fprintln(w)

	if p.HasScoring() {
		for _, f := range models.Factors {
			fs, ok := p.Scoring.Get(f)
			if !ok {
				continue
			}
			fmt.Fprintf(w, "     %-11s %d/%d  %s\n", string(f)+":", fs.Score, scheme.MaxFor(f),
				faint.Sprint(Truncate(fs.Reason, reasonWidth)))
		}
	}

	fmt.Fprintf(w, "   %s %s\n", label.Sprint("Affected:"), orDash(p.UserSegment))
	fmt.Fprintf(w, "   %s %s\n", label.Sprint("Severity:"), orDash(string(p.Severity)))

	if len(p.Evidence) > 0 {
		fmt.Fprintf(w, "   %s\n", label.Sprint("Evidence:"))
		shown := p.Evidence
		if len(shown) > evidenceShown {
			shown = shown[:evidenceShown]
		}
		for _, q := range shown {
			fmt.Fprintf(w, "     %q\n", Truncate(q, evidenceWidth))
		}
	}
	if p.Reasoning != "" {
		fmt.Fprintf(w, "   %s %s\n", label.Sprint("Reasoning:"), p.Reasoning)
	}
	if p.Tradeoffs != "" {
		fmt.Fprintf(w, "   %s %s\n", label.Sprint("If ignored:"), p.Tradeoffs)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Violations prints the advisory constraints the ranking broke.
func Violations(w io.Writer, violations []rank.Violation) {
	if len(violations) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", warning.Sprintf("%d ranking constraint violation(s):", len(violations)))
	for _, v := range violations {
		fmt.Fprintf(w, "  %s %s\n", warning.Sprint("•"), v)
	}
}

// Error prints err in red.
func Error(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", failure.Sprint("Error:"), err)
}

// Runs prints a table of past runs.
func Runs(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%s\n", label.Sprintf("%-8s  %-16s  %-7s  %5s  %-30s  %s",
		"RUN", "STARTED", "COMMAND", "SCORE", "TOP PROBLEM", "NOTES"))
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		top, topScore := "-", "-"
		if p, ok := r.TopProblem(); ok {
			top = Truncate(p.Name, 30)
			topScore = fmt.Sprintf("%d", p.ImpactScore)
		}
		notes := fmt.Sprintf("%d transcripts, %d problems", r.Transcripts, len(r.Ranking))
		if r.Degraded {
			notes += ", " + warning.Sprint("degraded")
		}
		fmt.Fprintf(w, "%-8s  %-16s  %-7s  %5s  %-30s  %s\n",
			id, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Command, topScore, top, notes)
	}
}

// Usage prints token usage and elapsed time for a run.
func Usage(w io.Writer, calls int, input, output int64, elapsed time.Duration) {
	fmt.Fprintln(w, faint.Sprintf("%d capability call(s), %d input / %d output tokens, %s",
		calls, input, output, elapsed.Round(time.Second)))
}
