// Package watch renders a live terminal view of recent webhook deliveries.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gitrelay/internal/history"
)

const (
	refreshInterval = 2 * time.Second
	fetchLimit      = 50
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	helpStyle  = lipgloss.NewStyle().Faint(true).Padding(0, 1)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1)
)

type rowsMsg []history.Record
type fetchErrMsg struct{ err error }
type tickMsg time.Time

// Model is the BubbleTea model for the watch view.
type Model struct {
	store   *history.Store
	table   table.Model
	lastErr string
}

// New creates a watch model over the delivery ledger.
func New(store *history.Store) *Model {
	columns := []table.Column{
		{Title: "Time", Width: 19},
		{Title: "Status", Width: 8},
		{Title: "Event", Width: 12},
		{Title: "Repository", Width: 40},
		{Title: "Detail", Width: 30},
	}

	tbl := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(20),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	tbl.SetStyles(styles)

	return &Model{store: store, table: tbl}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetch, tick())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 4)

	case tickMsg:
		return m, tea.Batch(m.fetch, tick())

	case rowsMsg:
		m.lastErr = ""
		rows := make([]table.Row, 0, len(msg))
		for _, rec := range msg {
			rows = append(rows, table.Row{
				rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				rec.Status,
				rec.Event,
				rec.Repo,
				rec.Detail,
			})
		}
		m.table.SetRows(rows)

	case fetchErrMsg:
		m.lastErr = msg.err.Error()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) View() string {
	out := titleStyle.Render("gitrelay: recent deliveries") + "\n"
	out += m.table.View() + "\n"
	if m.lastErr != "" {
		out += errStyle.Render(fmt.Sprintf("error: %s", m.lastErr)) + "\n"
	}
	out += helpStyle.Render("q to quit")
	return out
}

func (m *Model) fetch() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	recs, err := m.store.Recent(ctx, fetchLimit)
	if err != nil {
		return fetchErrMsg{err: err}
	}
	return rowsMsg(recs)
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}
