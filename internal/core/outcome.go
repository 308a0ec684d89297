package core

import (
	"encoding/json"
	"time"
)

// OutcomeStatus is the terminal state recorded for one processing attempt.
type OutcomeStatus string

const (
	// OutcomeCompleted covers the happy path, including the zero-comment case
	// and partial publish failures.
	OutcomeCompleted OutcomeStatus = "completed"
	// OutcomeFailed means the review backend answered but its content was
	// unusable or reported failure.
	OutcomeFailed OutcomeStatus = "failed"
	// OutcomeErrorCallingLLM means the review backend could not be reached or
	// rejected the call outright.
	OutcomeErrorCallingLLM OutcomeStatus = "error_calling_llm"
	// OutcomeErrorPostingComment means publishing could not start at all.
	OutcomeErrorPostingComment OutcomeStatus = "error_posting_comment"
)

// ReviewOutcome is the persisted record of one processing attempt, stored under
// the composite TaskKey so a redelivered message overwrites the same row.
type ReviewOutcome struct {
	TaskKey      string          `db:"task_key"`
	Provider     Provider        `db:"provider"`
	Status       OutcomeStatus   `db:"status"`
	RepoFullName string          `db:"repo_full_name"`
	Number       int             `db:"pr_number"`
	ReviewType   ReviewType      `db:"review_type"`
	Summary      string          `db:"summary"`
	Comments     []ReviewComment `db:"-"`
	Error        string          `db:"error"`
	Raw          json.RawMessage `db:"raw"`
	CreatedAt    time.Time       `db:"created_at"`
}
