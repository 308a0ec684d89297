package main

import (
	"time"

	"github.com/sevigo/review-relay/internal/app"
	"github.com/sevigo/review-relay/internal/core"
)

// Indicates that the backing stores have been connected.
type cliInitializedMsg struct {
	cli     *app.CLI
	cleanup func()
	err     error
}

// Carries a freshly loaded page of review outcomes.
type outcomesLoadedMsg struct {
	outcomes []*core.ReviewOutcome
	err      error
}

// Fires when the next auto-refresh is due.
type refreshTickMsg time.Time

// A generic error message for reporting failures from commands.
type errorMsg struct{ err error }

func (e errorMsg) Error() string {
	return e.err.Error()
}
