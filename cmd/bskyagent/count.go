package main

import (
	"context"
	"fmt"
)

// countCmd prints how many notifications await processing.
func countCmd(args []string) error {
	fs, configPath := newFlagSet("count")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.inspector().PendingCount(context.Background())
	if err != nil {
		return err
	}

	fmt.Println(n)
	return nil
}
