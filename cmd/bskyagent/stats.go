package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Width(12).Foreground(lipgloss.Color("245"))
	valueStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	statusStyle = map[string]lipgloss.Style{
		"pending":   warnStyle,
		"processed": okStyle,
		"errored":   errorStyle,
		"skipped":   mutedStyle,
	}
)

// statsCmd prints aggregate counts and the most active authors.
func statsCmd(args []string) error {
	fs, configPath := newFlagSet("stats")
	topN := fs.Int("top", 5, "how many top authors to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	insp := a.inspector()

	stats, err := insp.Stats(ctx)
	if err != nil {
		return err
	}
	pending, err := insp.PendingCount(ctx)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Notifications"))
	row := func(label string, style lipgloss.Style, n int) {
		fmt.Printf("  %s %s\n", labelStyle.Render(label), style.Render(strconv.Itoa(n)))
	}
	row("pending", warnStyle, stats.Pending)
	row("processed", okStyle, stats.Processed)
	row("errored", errorStyle, stats.Errored)
	row("skipped", mutedStyle, stats.Skipped)
	row("total", valueStyle, stats.Total)
	fmt.Printf("  %s %s\n", labelStyle.Render("in queue"), valueStyle.Render(strconv.Itoa(pending)))

	if *topN > 0 {
		authors, err := insp.TopAuthors(ctx, *topN)
		if err != nil {
			return err
		}
		if len(authors) > 0 {
			fmt.Println()
			fmt.Println(titleStyle.Render("Top authors"))
			for _, ac := range authors {
				fmt.Printf("  %s %s\n",
					labelStyle.Render(strconv.Itoa(ac.Count)),
					valueStyle.Render(ac.AuthorHandle),
				)
			}
		}
	}

	return nil
}
