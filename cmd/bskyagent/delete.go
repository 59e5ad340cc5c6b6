package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// deleteCmd purges every queue item and tracking entry for one author.
// Purged ids are forgotten entirely, so a later notification from the
// same author is ingested as new.
func deleteCmd(args []string) error {
	fs, configPath := newFlagSet("delete")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: bskyagent delete <author-handle>")
	}
	handle := fs.Arg(0)

	if !*yes {
		fmt.Printf("delete all data for %s? [y/N] ", handle)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return err
		}
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			fmt.Println("aborted")
			return nil
		}
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.inspector().DeleteByAuthor(context.Background(), handle)
	if err != nil {
		return err
	}

	fmt.Printf("removed %d queue items and %d tracking entries for %s\n",
		res.QueueItems, res.TrackingEntries, handle)
	return nil
}
