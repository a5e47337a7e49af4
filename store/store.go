// Package store persists an annotation run ledger in SQLite. Each pipeline
// run records its aggregate counters plus a per-image row, so cost and
// acceptance rates can be queried across documents and over time.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run represents a row in the runs table.
type Run struct {
	ID               string    `json:"id"`
	SourcePath       string    `json:"source_path"`
	OutputPath       string    `json:"output_path,omitempty"`
	DocumentType     string    `json:"document_type"`
	Model            string    `json:"model,omitempty"`
	ImagesTotal      int       `json:"images_total"`
	ImagesDescribed  int       `json:"images_described"`
	ImagesAccepted   int       `json:"images_accepted"`
	ImagesApplied    int       `json:"images_applied"`
	ImagesFailed     int       `json:"images_failed"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	DurationMS       int64     `json:"duration_ms"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}

// RunImage represents a row in the run_images table.
type RunImage struct {
	RunID            string   `json:"run_id"`
	ImageID          string   `json:"image_id"`
	Format           string   `json:"format,omitempty"`
	AltText          string   `json:"alt_text,omitempty"`
	Accepted         bool     `json:"accepted"`
	Decorative       bool     `json:"decorative"`
	RejectionReason  string   `json:"rejection_reason,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
	FailureStage     string   `json:"failure_stage,omitempty"`
	FailureReason    string   `json:"failure_reason,omitempty"`
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
	CostUSD          float64  `json:"cost_usd"`
	DurationMS       int64    `json:"duration_ms"`
}

// Store wraps the SQLite run ledger.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the ledger database at the given path and applies
// the schema and any pending migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying ledger schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// SaveRun inserts a run and its per-image rows in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, images []RunImage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, source_path, output_path, document_type, model,
			images_total, images_described, images_accepted, images_applied, images_failed,
			prompt_tokens, completion_tokens, cost_usd, duration_ms,
			started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SourcePath, run.OutputPath, run.DocumentType, run.Model,
		run.ImagesTotal, run.ImagesDescribed, run.ImagesAccepted, run.ImagesApplied, run.ImagesFailed,
		run.PromptTokens, run.CompletionTokens, run.CostUSD, run.DurationMS,
		run.StartedAt, run.FinishedAt,
	); err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	for _, img := range images {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_images (
				run_id, image_id, format, alt_text, accepted, decorative,
				rejection_reason, warnings, failure_stage, failure_reason,
				prompt_tokens, completion_tokens, cost_usd, duration_ms
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, img.ImageID, img.Format, img.AltText, img.Accepted, img.Decorative,
			img.RejectionReason, strings.Join(img.Warnings, "; "), img.FailureStage, img.FailureReason,
			img.PromptTokens, img.CompletionTokens, img.CostUSD, img.DurationMS,
		); err != nil {
			return fmt.Errorf("inserting run image %s: %w", img.ImageID, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_path, COALESCE(output_path, ''), document_type, COALESCE(model, ''),
			images_total, images_described, images_accepted, images_applied, images_failed,
			prompt_tokens, completion_tokens, cost_usd, duration_ms,
			started_at, COALESCE(finished_at, started_at)
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.SourcePath, &r.OutputPath, &r.DocumentType, &r.Model,
			&r.ImagesTotal, &r.ImagesDescribed, &r.ImagesAccepted, &r.ImagesApplied, &r.ImagesFailed,
			&r.PromptTokens, &r.CompletionTokens, &r.CostUSD, &r.DurationMS,
			&r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunImages returns the per-image rows for one run, in insertion order.
func (s *Store) RunImages(ctx context.Context, runID string) ([]RunImage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, image_id, COALESCE(format, ''), COALESCE(alt_text, ''),
			accepted, decorative, COALESCE(rejection_reason, ''), COALESCE(warnings, ''),
			COALESCE(failure_stage, ''), COALESCE(failure_reason, ''),
			prompt_tokens, completion_tokens, cost_usd, duration_ms
		FROM run_images WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing run images: %w", err)
	}
	defer rows.Close()

	var images []RunImage
	for rows.Next() {
		var img RunImage
		var warnings string
		if err := rows.Scan(
			&img.RunID, &img.ImageID, &img.Format, &img.AltText,
			&img.Accepted, &img.Decorative, &img.RejectionReason, &warnings,
			&img.FailureStage, &img.FailureReason,
			&img.PromptTokens, &img.CompletionTokens, &img.CostUSD, &img.DurationMS,
		); err != nil {
			return nil, fmt.Errorf("scanning run image: %w", err)
		}
		if warnings != "" {
			img.Warnings = strings.Split(warnings, "; ")
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// TotalCost returns the summed service cost across all recorded runs.
func (s *Store) TotalCost(ctx context.Context) (float64, error) {
	var total float64
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(cost_usd), 0) FROM runs")
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("summing run cost: %w", err)
	}
	return total, nil
}
