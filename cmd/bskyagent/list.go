package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/gaugehq/bskyagent/internal/inspect"
	"github.com/gaugehq/bskyagent/internal/model"
)

// listCmd prints tracked notifications, optionally narrowed by author
// handle and status.
func listCmd(args []string) error {
	fs, configPath := newFlagSet("list")
	all := fs.Bool("all", false, "list every notification, ignoring the row limit")
	handle := fs.String("handle", "", "only notifications from this author")
	status := fs.String("status", "", "only notifications with this status (pending, processed, errored, skipped)")
	limit := fs.Int("limit", 50, "maximum rows to print")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	rows, err := a.inspector().List(context.Background(), listFilter(*all, *handle, *status, *limit))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no notifications")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tKIND\tAUTHOR\tFIRST SEEN\tATTEMPTS\tLAST ERROR")
	for _, r := range rows {
		style, ok := statusStyle[string(r.Status)]
		statusText := string(r.Status)
		if ok {
			statusText = style.Render(statusText)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			statusText,
			r.Kind,
			r.AuthorHandle,
			r.FirstSeenAt.Local().Format("2006-01-02 15:04"),
			r.AttemptCount,
			truncate(r.LastError, 60),
		)
	}
	return w.Flush()
}

// listFilter maps the list flags onto an inspection filter. --all drops
// the row limit so the whole history prints.
func listFilter(all bool, handle, status string, limit int) inspect.Filter {
	f := inspect.Filter{Limit: limit}
	if all {
		f.Limit = 0
	}
	if handle != "" {
		f.AuthorHandle = &handle
	}
	if status != "" {
		s := model.Status(status)
		f.Status = &s
	}
	return f
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
