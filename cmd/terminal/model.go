package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sevigo/review-relay/internal/app"
	"github.com/sevigo/review-relay/internal/core"
)

// watchLimit is how many recent outcomes the watcher keeps on screen.
const watchLimit = 50

type model struct {
	styles  styles
	cli     *app.CLI
	cleanup func()

	spinner   spinner.Model
	isLoading bool

	// Session State
	outcomes    []*core.ReviewOutcome
	cursor      int
	showDetail  bool
	lastRefresh time.Time
	errText     string

	width  int
	height int
}

func initialModel(theme ThemeName) *model {
	styles := GetTheme(theme)

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))

	return &model{
		styles:    styles,
		spinner:   sp,
		isLoading: true,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(initializeCLICmd(), m.spinner.Tick)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var spCmd tea.Cmd
	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.cleanup != nil {
				m.cleanup()
			}
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "j":
			if m.cursor < len(m.outcomes)-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			m.showDetail = !m.showDetail
			return m, nil
		case "r":
			if m.cli != nil && !m.isLoading {
				m.isLoading = true
				return m, tea.Batch(m.spinner.Tick, loadOutcomesCmd(m.cli, watchLimit))
			}
			return m, nil
		}

	case cliInitializedMsg:
		if msg.err != nil {
			m.isLoading = false
			m.errText = msg.err.Error()
			return m, nil
		}
		m.cli = msg.cli
		m.cleanup = msg.cleanup
		// One perpetual tick chain drives the auto-refresh from here on.
		return m, tea.Batch(loadOutcomesCmd(m.cli, watchLimit), refreshTickCmd())

	case outcomesLoadedMsg:
		m.isLoading = false
		m.lastRefresh = time.Now()
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.errText = ""
		m.outcomes = msg.outcomes
		if m.cursor >= len(m.outcomes) {
			m.cursor = max(0, len(m.outcomes)-1)
		}
		return m, nil

	case refreshTickMsg:
		next := refreshTickCmd()
		if m.cli == nil || m.isLoading {
			return m, next
		}
		m.isLoading = true
		return m, tea.Batch(next, m.spinner.Tick, loadOutcomesCmd(m.cli, watchLimit))

	case errorMsg:
		m.isLoading = false
		m.errText = msg.err.Error()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, spCmd
}

func (m *model) View() string {
	if m.cli == nil && m.errText == "" {
		return fmt.Sprintf("\n  %s CONNECTING TO REVIEW-RELAY STORES...\n\n", m.spinner.View())
	}

	var b strings.Builder
	b.WriteString(m.styles.header.Render("REVIEW RELAY · OUTCOME WATCHER"))
	b.WriteString("\n")

	if m.errText != "" {
		b.WriteString(m.styles.error.Render("⚠ " + m.errText))
		b.WriteString("\n")
	}

	if len(m.outcomes) == 0 && m.errText == "" {
		b.WriteString(m.styles.inactive.Render("No review outcomes stored yet."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderTable())
	}

	if m.showDetail && m.cursor < len(m.outcomes) {
		b.WriteString("\n")
		b.WriteString(m.renderDetail(m.outcomes[m.cursor]))
	}

	b.WriteString(m.styles.footer.Render(m.renderStatusLine()))
	return m.styles.app.Render(b.String())
}

func (m *model) renderTable() string {
	var b strings.Builder
	b.WriteString(m.styles.tableHdr.Render(fmt.Sprintf("  %-22s %-30s %-8s %-9s %-7s %s",
		"STATUS", "REPO", "TARGET", "COMMENTS", "AGE", "TASK KEY")))
	b.WriteString("\n")

	for i, o := range m.visibleWindow() {
		idx := i + m.windowStart()
		statusCell := m.styles.statusStyle(o.Status).Render(fmt.Sprintf("%-22s", o.Status))
		row := fmt.Sprintf("%s %-30s #%-7d %-9d %-7s %s",
			statusCell,
			truncate(o.RepoFullName, 30),
			o.Number,
			len(o.Comments),
			age(o.CreatedAt),
			truncate(o.TaskKey, 48),
		)
		if idx == m.cursor {
			b.WriteString(m.styles.selected.Render("› ") + row)
		} else {
			b.WriteString("  " + row)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *model) renderDetail(o *core.ReviewOutcome) string {
	var b strings.Builder
	b.WriteString(m.styles.command.Render(o.TaskKey))
	b.WriteString("\n")
	b.WriteString(m.styles.statusStyle(o.Status).Render(string(o.Status)))
	if o.Error != "" {
		b.WriteString("  " + m.styles.error.Render(o.Error))
	}
	b.WriteString("\n")

	if o.Summary != "" {
		wrap := lipgloss.NewStyle().Width(max(40, m.width-6))
		b.WriteString(wrap.Render(o.Summary))
		b.WriteString("\n")
	}
	for _, c := range o.Comments {
		where := "general"
		if c.FilePath != "" {
			where = c.FilePath
			if c.LineNumber > 0 {
				where = fmt.Sprintf("%s:%d", c.FilePath, c.LineNumber)
			}
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", m.styles.command.Render(where), truncate(c.Comment, max(40, m.width-len(where)-8))))
	}
	return b.String()
}

func (m *model) renderStatusLine() string {
	counts := make(map[core.OutcomeStatus]int)
	for _, o := range m.outcomes {
		counts[o.Status]++
	}

	parts := []string{
		m.styles.success.Render(fmt.Sprintf("● %d completed", counts[core.OutcomeCompleted])),
		m.styles.error.Render(fmt.Sprintf("● %d failed", counts[core.OutcomeFailed])),
		m.styles.warning.Render(fmt.Sprintf("● %d errored", counts[core.OutcomeErrorCallingLLM]+counts[core.OutcomeErrorPostingComment])),
	}
	if !m.lastRefresh.IsZero() {
		parts = append(parts, m.styles.inactive.Render("refreshed "+m.lastRefresh.Format("15:04:05")))
	}
	if m.isLoading {
		parts = append(parts, m.spinner.View())
	}

	keys := m.styles.inactive.Render("↑/↓ select · enter details · r refresh · q quit")
	return strings.Join(parts, " │ ") + "\n" + keys
}

// visibleWindow slices the outcome list to what fits the terminal height,
// keeping the cursor in view.
func (m *model) visibleWindow() []*core.ReviewOutcome {
	start := m.windowStart()
	end := min(len(m.outcomes), start+m.windowSize())
	return m.outcomes[start:end]
}

func (m *model) windowStart() int {
	size := m.windowSize()
	if m.cursor < size {
		return 0
	}
	return m.cursor - size + 1
}

func (m *model) windowSize() int {
	// Header, table header, footer and detail pane all eat rows.
	reserved := 10
	if m.showDetail {
		reserved += 8
	}
	if m.height <= reserved {
		return 10
	}
	return m.height - reserved
}

func truncate(s string, n int) string {
	if n <= 1 || len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func age(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
