// Package storage persists review outcomes in Postgres.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	// import db drivers
	_ "github.com/lib/pq"

	"github.com/sevigo/review-relay/internal/core"
)

// ErrOutcomeNotFound is returned when no outcome exists under the requested key.
var ErrOutcomeNotFound = errors.New("review outcome not found")

const outcomeColumns = `task_key, provider, status, repo_full_name, pr_number, review_type, summary, comments, error, raw, created_at`

type outcomeStore struct {
	db *sqlx.DB
}

// NewOutcomeStore creates a Postgres-backed core.OutcomeStore.
func NewOutcomeStore(db *sqlx.DB) core.OutcomeStore {
	return &outcomeStore{db: db}
}

// SaveOutcome upserts the outcome under its task key, so a redelivered message
// overwrites the row from the previous attempt.
func (s *outcomeStore) SaveOutcome(ctx context.Context, outcome *core.ReviewOutcome) error {
	comments, err := json.Marshal(outcome.Comments)
	if err != nil {
		return fmt.Errorf("failed to marshal comments: %w", err)
	}

	createdAt := outcome.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO review_outcomes (` + outcomeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (task_key) DO UPDATE SET
			provider = EXCLUDED.provider,
			status = EXCLUDED.status,
			repo_full_name = EXCLUDED.repo_full_name,
			pr_number = EXCLUDED.pr_number,
			review_type = EXCLUDED.review_type,
			summary = EXCLUDED.summary,
			comments = EXCLUDED.comments,
			error = EXCLUDED.error,
			raw = EXCLUDED.raw,
			created_at = EXCLUDED.created_at`

	_, err = s.db.ExecContext(ctx, query,
		outcome.TaskKey, outcome.Provider, outcome.Status, outcome.RepoFullName,
		outcome.Number, outcome.ReviewType, outcome.Summary, comments,
		outcome.Error, normalizeRaw(outcome.Raw), createdAt)
	return err
}

// GetOutcome fetches one outcome by task key.
func (s *outcomeStore) GetOutcome(ctx context.Context, taskKey string) (*core.ReviewOutcome, error) {
	query := `SELECT ` + outcomeColumns + ` FROM review_outcomes WHERE task_key = $1`

	var row outcomeRow
	if err := s.db.GetContext(ctx, &row, query, taskKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOutcomeNotFound
		}
		return nil, err
	}
	return row.toOutcome()
}

// ListOutcomes returns the most recent outcomes, newest first.
func (s *outcomeStore) ListOutcomes(ctx context.Context, limit int) ([]*core.ReviewOutcome, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + outcomeColumns + ` FROM review_outcomes ORDER BY created_at DESC LIMIT $1`

	var rows []outcomeRow
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, err
	}

	outcomes := make([]*core.ReviewOutcome, 0, len(rows))
	for i := range rows {
		outcome, err := rows[i].toOutcome()
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// outcomeRow is the scan target; comments and raw arrive as jsonb bytes.
type outcomeRow struct {
	TaskKey      string    `db:"task_key"`
	Provider     string    `db:"provider"`
	Status       string    `db:"status"`
	RepoFullName string    `db:"repo_full_name"`
	Number       int       `db:"pr_number"`
	ReviewType   string    `db:"review_type"`
	Summary      string    `db:"summary"`
	Comments     []byte    `db:"comments"`
	Error        string    `db:"error"`
	Raw          []byte    `db:"raw"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r *outcomeRow) toOutcome() (*core.ReviewOutcome, error) {
	outcome := &core.ReviewOutcome{
		TaskKey:      r.TaskKey,
		Provider:     core.Provider(r.Provider),
		Status:       core.OutcomeStatus(r.Status),
		RepoFullName: r.RepoFullName,
		Number:       r.Number,
		ReviewType:   core.ReviewType(r.ReviewType),
		Summary:      r.Summary,
		Error:        r.Error,
		Raw:          json.RawMessage(r.Raw),
		CreatedAt:    r.CreatedAt,
	}
	if len(r.Comments) > 0 {
		if err := json.Unmarshal(r.Comments, &outcome.Comments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stored comments: %w", err)
		}
	}
	return outcome, nil
}

// normalizeRaw keeps the raw column valid jsonb. Non-JSON backend bodies are
// stored as a JSON string, empty bodies as NULL.
func normalizeRaw(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return raw
	}
	quoted, err := json.Marshal(string(raw))
	if err != nil {
		return nil
	}
	return quoted
}
