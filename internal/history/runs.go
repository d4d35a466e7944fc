package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/c4pm/pkg/models"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one completed analyze or spec invocation.
type Run struct {
	ID            string
	Command       string
	TranscriptDir string
	Provider      string
	Model         string
	Transcripts   int
	Degraded      bool
	Calls         int
	InputTokens   int64
	OutputTokens  int64
	StartedAt     time.Time
	FinishedAt    time.Time
	// Ranking is the ranked problem list, highest impact first.
	Ranking []models.ProblemRecord
}

// TopProblem returns the head of the ranking, if any.
func (r Run) TopProblem() (models.ProblemRecord, bool) {
	if len(r.Ranking) == 0 {
		return models.ProblemRecord{}, false
	}
	return r.Ranking[0], true
}

// Record inserts or replaces a run.
func (db *DB) Record(ctx context.Context, run Run) error {
	ranking := run.Ranking
	if ranking == nil {
		ranking = []models.ProblemRecord{}
	}
	data, err := json.Marshal(ranking)
	if err != nil {
		return fmt.Errorf("encode ranking: %w", err)
	}

	var topName string
	var topScore int
	if top, ok := run.TopProblem(); ok {
		topName, topScore = top.Name, top.ImpactScore
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err = db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, command, transcript_dir, transcripts, problems, top_problem, top_score,
			degraded, ranking, started_at, finished_at,
			provider, model, calls, input_tokens, output_tokens
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.Command, run.TranscriptDir, run.Transcripts, len(ranking), topName, topScore,
		run.Degraded, string(data), formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Provider, run.Model, run.Calls, run.InputTokens, run.OutputTokens,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `id, command, transcript_dir, transcripts, degraded, ranking,
	started_at, finished_at, provider, model, calls, input_tokens, output_tokens`

// Get returns a run by ID.
func (db *DB) Get(ctx context.Context, id string) (*Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs, newest first. A limit of zero or less
// returns every run.
func (db *DB) List(ctx context.Context, limit int) ([]Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Purge deletes runs started before now minus olderThan and returns how many
// were removed.
func (db *DB) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	db.mu.Lock()
	defer db.mu.Unlock()

	result, err := db.conn.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run               Run
		ranking           string
		started, finished string
	)
	err := s.Scan(
		&run.ID, &run.Command, &run.TranscriptDir, &run.Transcripts, &run.Degraded, &ranking,
		&started, &finished, &run.Provider, &run.Model, &run.Calls, &run.InputTokens, &run.OutputTokens,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	if err := json.Unmarshal([]byte(ranking), &run.Ranking); err != nil {
		return nil, fmt.Errorf("decode ranking of run %s: %w", run.ID, err)
	}
	return &run, nil
}
