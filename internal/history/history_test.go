package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ShayCichocki/c4pm/pkg/models"
)

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:            id,
		Command:       "analyze",
		TranscriptDir: "./interviews",
		Provider:      "anthropic",
		Model:         "claude-sonnet-4-20250514",
		Transcripts:   3,
		Calls:         2,
		InputTokens:   1200,
		OutputTokens:  300,
		StartedAt:     started,
		FinishedAt:    started.Add(42 * time.Second),
		Ranking: []models.ProblemRecord{
			{
				Name:        "Broken SSO",
				Description: "SSO fails.",
				Evidence:    models.Quotes{"it just spins"},
				Severity:    models.SeverityBlocker,
				Scoring: models.ScoringBreakdown{
					models.FactorReach: {Score: 4, Reason: "most accounts"},
				},
				ImpactScore: 13,
				Confidence:  models.ConfidenceHigh,
			},
			{Name: "Slow exports", Evidence: models.Quotes{}, ImpactScore: 7, Confidence: models.ConfidenceMedium},
		},
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b")
	path := filepath.Join(nested, "history.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var version int
	if err := db.conn.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Errorf("schema version = %d, want 2", version)
	}
}

func TestRecordAndGet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 9, 30, 0, 500, time.UTC)
	want := sampleRun("run-1", started)

	if err := db.Record(ctx, want); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := db.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	top, ok := got.TopProblem()
	if !ok || top.Name != "Broken SSO" {
		t.Errorf("TopProblem() = %v, %v", top.Name, ok)
	}
}

func TestRecord_EmptyRanking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	run := Run{ID: "empty", Command: "analyze", TranscriptDir: "x", Degraded: true, StartedAt: time.Now(), FinishedAt: time.Now()}
	if err := db.Record(ctx, run); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := db.Get(ctx, "empty")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Ranking) != 0 || !got.Degraded {
		t.Errorf("got %+v", got)
	}
	if _, ok := got.TopProblem(); ok {
		t.Error("empty ranking has no top problem")
	}
}

func TestGet_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "newest", "middle"} {
		offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
		if err := db.Record(ctx, sampleRun(id, base.Add(offsets[i]))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := db.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"newest", "middle", "old"}, ids); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}

	limited, err := db.List(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].ID != "newest" {
		t.Errorf("List(1) = %v", limited)
	}
}

func TestPurge(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Record(ctx, sampleRun("ancient", time.Now().Add(-48*time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := db.Record(ctx, sampleRun("fresh", time.Now())); err != nil {
		t.Fatal(err)
	}

	n, err := db.Purge(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d runs, want 1", n)
	}
	if _, err := db.Get(ctx, "ancient"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ancient run should be gone, got %v", err)
	}
}

func TestFormatTime_SortsLexically(t *testing.T) {
	a := formatTime(time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC))
	b := formatTime(time.Date(2026, 1, 1, 0, 0, 5, 500_000_000, time.UTC))
	if !(a < b) {
		t.Errorf("%q should sort before %q", a, b)
	}
	parsed, err := parseTime(b)
	if err != nil || parsed.Nanosecond() != 500_000_000 {
		t.Errorf("parseTime(%q) = %v, %v", b, parsed, err)
	}
}
