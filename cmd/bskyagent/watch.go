package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gaugehq/bskyagent/internal/inspect"
)

// watchCmd opens a live terminal view of the queue and tracking store,
// refreshing on an interval.
func watchCmd(args []string) error {
	fs, configPath := newFlagSet("watch")
	interval := fs.Duration("refresh", 2*time.Second, "refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	m := newWatchModel(a.inspector(), *interval)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

type tickMsg time.Time

type refreshMsg struct {
	stats   *inspect.Stats
	inQueue int
	rows    []inspect.Row
	err     error
}

type watchModel struct {
	insp     *inspect.Service
	interval time.Duration
	table    table.Model

	stats   *inspect.Stats
	inQueue int
	err     error
}

func newWatchModel(insp *inspect.Service, interval time.Duration) watchModel {
	columns := []table.Column{
		{Title: "Status", Width: 10},
		{Title: "Kind", Width: 8},
		{Title: "Author", Width: 28},
		{Title: "First seen", Width: 17},
		{Title: "Att", Width: 3},
		{Title: "Last error", Width: 40},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(20),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	return watchModel{insp: insp, interval: interval, table: t}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.refresh, m.tick())
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh reads the collections and delivers a snapshot.
func (m watchModel) refresh() tea.Msg {
	ctx := context.Background()

	stats, err := m.insp.Stats(ctx)
	if err != nil {
		return refreshMsg{err: err}
	}
	inQueue, err := m.insp.PendingCount(ctx)
	if err != nil {
		return refreshMsg{err: err}
	}
	rows, err := m.insp.List(ctx, inspect.Filter{Limit: 200})
	if err != nil {
		return refreshMsg{err: err}
	}

	return refreshMsg{stats: stats, inQueue: inQueue, rows: rows}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.refresh
		}

	case tickMsg:
		return m, tea.Batch(m.refresh, m.tick())

	case refreshMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.stats = msg.stats
		m.inQueue = msg.inQueue

		rows := make([]table.Row, 0, len(msg.rows))
		for _, r := range msg.rows {
			rows = append(rows, table.Row{
				string(r.Status),
				string(r.Kind),
				r.AuthorHandle,
				r.FirstSeenAt.Local().Format("2006-01-02 15:04"),
				strconv.Itoa(r.AttemptCount),
				truncate(r.LastError, 40),
			})
		}
		m.table.SetRows(rows)
		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 6)
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m watchModel) View() string {
	header := titleStyle.Render("bskyagent")
	if m.stats != nil {
		header += mutedStyle.Render(fmt.Sprintf(
			"  pending %d  processed %d  errored %d  skipped %d  in queue %d",
			m.stats.Pending, m.stats.Processed, m.stats.Errored, m.stats.Skipped, m.inQueue,
		))
	}
	if m.err != nil {
		header += "\n" + errorStyle.Render(m.err.Error())
	}

	help := mutedStyle.Render("r refresh  q quit")
	return header + "\n\n" + m.table.View() + "\n" + help
}
