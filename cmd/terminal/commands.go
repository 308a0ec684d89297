package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sevigo/review-relay/internal/app"
	"github.com/sevigo/review-relay/internal/wire"
)

// refreshInterval is how often the watcher re-reads the outcome store.
const refreshInterval = 5 * time.Second

func initializeCLICmd() tea.Cmd {
	return func() tea.Msg {
		cli, cleanup, err := wire.InitializeCLI()
		if err != nil {
			return cliInitializedMsg{err: err}
		}
		return cliInitializedMsg{cli: cli, cleanup: cleanup}
	}
}

func loadOutcomesCmd(cli *app.CLI, limit int) tea.Cmd {
	return func() tea.Msg {
		outcomes, err := cli.Outcomes.ListOutcomes(context.Background(), limit)
		return outcomesLoadedMsg{outcomes: outcomes, err: err}
	}
}

func refreshTickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}
