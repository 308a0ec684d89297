package core

import "encoding/json"

// ResultStatus tags a review invocation result so the consumer's ack-vs-retry
// decision is a pure function of the tag, not of error-string inspection.
type ResultStatus string

const (
	// StatusOK means the review succeeded and comments are ready to publish.
	StatusOK ResultStatus = "ok"
	// StatusRetryable marks transient failures worth another delivery attempt.
	StatusRetryable ResultStatus = "retryable"
	// StatusTerminal marks failures that repeating the call cannot fix.
	StatusTerminal ResultStatus = "terminal"
)

// ReviewComment is one piece of feedback, optionally anchored to a file line.
type ReviewComment struct {
	FilePath   string `json:"file_path,omitempty"`
	LineNumber int    `json:"line_number,omitempty"`
	Position   int    `json:"position,omitempty"`
	Comment    string `json:"comment"`
}

// ReviewResult carries everything one review invocation produced. Err and
// Failure are set for non-OK statuses; Raw preserves the backend response body
// for the outcome record.
type ReviewResult struct {
	Status   ResultStatus
	Summary  string
	Comments []ReviewComment
	Err      error
	Failure  OutcomeStatus
	Raw      json.RawMessage
}

// OKResult wraps a successful invocation.
func OKResult(summary string, comments []ReviewComment, raw json.RawMessage) ReviewResult {
	return ReviewResult{Status: StatusOK, Summary: summary, Comments: comments, Raw: raw}
}

// RetryableResult wraps a transient failure. Retryable failures are always
// call-level, so the recorded outcome status is fixed.
func RetryableResult(err error, raw json.RawMessage) ReviewResult {
	return ReviewResult{Status: StatusRetryable, Err: err, Failure: OutcomeErrorCallingLLM, Raw: raw}
}

// TerminalResult wraps a permanent failure. The caller picks the outcome status
// to record, since terminal failures happen both at the call level and inside
// the response content.
func TerminalResult(failure OutcomeStatus, err error, raw json.RawMessage) ReviewResult {
	return ReviewResult{Status: StatusTerminal, Err: err, Failure: failure, Raw: raw}
}
