package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/c4pm/internal/history"
	"github.com/ShayCichocki/c4pm/internal/rank"
	"github.com/ShayCichocki/c4pm/pkg/models"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func rankedProblem(name string, impact int) models.ProblemRecord {
	return models.ProblemRecord{
		Name:        name,
		Description: name + " description",
		Evidence: models.Quotes{
			"first quote",
			strings.Repeat("q", 130),
			"third quote is never shown",
		},
		UserSegment: "admins",
		Severity:    models.SeverityBlocker,
		Scoring: models.ScoringBreakdown{
			models.FactorReach:      {Score: 4, Reason: strings.Repeat("r", 70)},
			models.FactorConfidence: {Score: 2, Reason: "two interviews"},
		},
		ImpactScore: impact,
		Reasoning:   "Blocks onboarding.",
		Tradeoffs:   "Churn in the first month.",
		Confidence:  models.ConfidenceHigh,
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 7, "this is..."},
		{"héllo wörld", 5, "héllo..."},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestProblems(t *testing.T) {
	var buf bytes.Buffer
	problems := []models.ProblemRecord{rankedProblem("Broken SSO", 13), rankedProblem("Slow exports", 9)}

	Problems(&buf, problems, 0, models.StrictScheme)
	out := buf.String()

	for _, want := range []string{
		"Top 2 of 2 problems",
		"1. Broken SSO",
		"2. Slow exports",
		"Impact Score: 13/16",
		"(high confidence)",
		"reach:      4/5  " + strings.Repeat("r", 60) + "...",
		"confidence: 2/3  two interviews",
		"Affected: admins",
		"Severity: blocker",
		`"first quote"`,
		`"` + strings.Repeat("q", 120) + `..."`,
		"Reasoning: Blocks onboarding.",
		"If ignored: Churn in the first month.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "third quote") {
		t.Error("only the first two evidence quotes should be shown")
	}
	if strings.Contains(out, "intensity") {
		t.Error("factors absent from the breakdown should not be printed")
	}
}

func TestProblems_Count(t *testing.T) {
	var problems []models.ProblemRecord
	for i := 0; i < 8; i++ {
		problems = append(problems, models.ProblemRecord{Name: "p", ImpactScore: 8 - i})
	}

	var buf bytes.Buffer
	Problems(&buf, problems, 0, models.LegacyScheme)
	if !strings.Contains(buf.String(), "Top 5 of 8") || strings.Contains(buf.String(), "6. p") {
		t.Errorf("default count should print 5:\n%s", buf.String())
	}

	buf.Reset()
	Problems(&buf, problems, 2, models.LegacyScheme)
	if !strings.Contains(buf.String(), "Top 2 of 8") || !strings.Contains(buf.String(), "/10") {
		t.Errorf("count 2 with legacy scheme:\n%s", buf.String())
	}
}

func TestProblems_Empty(t *testing.T) {
	var buf bytes.Buffer
	Problems(&buf, nil, 5, models.StrictScheme)
	if !strings.Contains(buf.String(), "No problems found.") {
		t.Errorf("got %q", buf.String())
	}
}

func TestLoadSummary_SmallSample(t *testing.T) {
	tests := []struct {
		n    int
		warn bool
	}{
		{0, false},
		{1, true},
		{2, true},
		{3, false},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		LoadSummary(&buf, "./interviews", tt.n)
		if got := strings.Contains(buf.String(), "small sample"); got != tt.warn {
			t.Errorf("LoadSummary(%d) warning = %v, want %v", tt.n, got, tt.warn)
		}
	}
}

func TestViolations(t *testing.T) {
	var buf bytes.Buffer
	Violations(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("no violations should print nothing, got %q", buf.String())
	}

	Violations(&buf, []rank.Violation{{Constraint: "anti_tie", Problem: "B", Detail: "ties A at 12"}})
	if !strings.Contains(buf.String(), "1 ranking constraint violation(s)") ||
		!strings.Contains(buf.String(), "anti_tie: B: ties A at 12") {
		t.Errorf("got %q", buf.String())
	}
}

func TestDegradedAndError(t *testing.T) {
	var buf bytes.Buffer
	Degraded(&buf, "rank", errors.New("no JSON found"))
	Error(&buf, errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, "rank stage returned an unusable response") || !strings.Contains(out, "(no JSON found)") {
		t.Errorf("degraded notice: %q", out)
	}
	if !strings.Contains(out, "Error: boom") {
		t.Errorf("error line: %q", out)
	}
}

func TestRuns(t *testing.T) {
	var buf bytes.Buffer
	Runs(&buf, nil)
	if !strings.Contains(buf.String(), "No runs recorded.") {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	Runs(&buf, []history.Run{{
		ID:          "0123456789abcdef",
		Command:     "spec",
		Transcripts: 4,
		Degraded:    true,
		StartedAt:   time.Now(),
		Ranking:     []models.ProblemRecord{{Name: "Broken SSO", ImpactScore: 13}},
	}})
	out := buf.String()
	for _, want := range []string{"01234567", "spec", "13", "Broken SSO", "4 transcripts, 1 problems", "degraded"} {
		if !strings.Contains(out, want) {
			t.Errorf("runs output missing %q:\n%s", want, out)
		}
	}
}

func sampleDocument() *models.SpecificationDocument {
	doc := models.EmptySpecification()
	doc.ProblemStatement = "SSO fails for Okta tenants"
	doc.UserStories = models.ItemsOf("As an admin, I want SSO to work")
	doc.EvidenceSummary = models.ItemsOf("it just spins")
	doc.Metadata = &models.SpecMetadata{
		SourceProblem: "Broken SSO",
		ImpactScore:   13,
		Confidence:    models.ConfidenceHigh,
		UserSegment:   "admins",
		Severity:      "blocker",
		GeneratedBy:   models.SpecGenerator,
		Version:       models.SpecSchemaVersion,
	}
	return doc
}

func TestMarshal_JSON(t *testing.T) {
	data, err := Marshal(sampleDocument(), FormatJSON)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	if !strings.HasPrefix(string(data), "{\n  \"problem_statement\": \"SSO fails for Okta tenants\",") {
		t.Errorf("expected two-space indented JSON, got:\n%s", data)
	}
	if !strings.HasSuffix(string(data), "}\n") {
		t.Error("JSON output should end with a newline")
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	for _, key := range []string{
		"problem_statement", "user_stories", "proposed_solution", "acceptance_criteria", "out_of_scope",
		"success_metrics", "risks", "implementation_hints", "evidence_summary", "_metadata",
	} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %s", key)
		}
	}
	meta := decoded["_metadata"].(map[string]any)
	if meta["generated_by"] != "c4pm" || meta["version"] != "0.1.0" {
		t.Errorf("_metadata = %v", meta)
	}
}

func TestMarshal_YAML(t *testing.T) {
	data, err := Marshal(sampleDocument(), FormatYAML)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if decoded["problem_statement"] != "SSO fails for Okta tenants" {
		t.Errorf("problem_statement = %v", decoded["problem_statement"])
	}
	meta, ok := decoded["_metadata"].(map[string]any)
	if !ok || meta["source_problem"] != "Broken SSO" || meta["impact_score"] != 13 {
		t.Errorf("_metadata = %v", decoded["_metadata"])
	}
	if !strings.Contains(string(data), "\n  summary:") {
		t.Errorf("expected two-space YAML indent:\n%s", data)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"toml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.json")

	if err := WriteDocument(path, sampleDocument(), FormatJSON); err != nil {
		t.Fatalf("WriteDocument failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"source_problem": "Broken SSO"`) {
		t.Errorf("file content:\n%s", data)
	}
}
