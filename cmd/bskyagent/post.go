package main

import (
	"context"
	"fmt"

	"github.com/gaugehq/bskyagent/internal/agent"
)

// postCmd asks the agent for an original post on a random topic and
// publishes it.
func postCmd(args []string) error {
	fs, configPath := newFlagSet("post")
	dryRun := fs.Bool("dry-run", false, "generate the post without publishing it")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	adapter, err := a.feedAdapter()
	if err != nil {
		return err
	}
	client, err := a.agentClient()
	if err != nil {
		return err
	}

	poster := agent.NewPoster(client, adapter, a.cfg.Bot.DataDir)
	result, err := poster.GeneratePost(context.Background(), *dryRun)
	if err != nil {
		return err
	}

	if result.Posted {
		fmt.Println("posted:")
	} else {
		fmt.Println("generated (not posted):")
	}
	fmt.Println(result.Text)
	return nil
}
