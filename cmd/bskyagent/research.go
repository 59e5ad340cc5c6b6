package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gaugehq/bskyagent/internal/agent"
)

// researchCmd manages the self-directed research queue. With no
// subcommand it runs one research session on the stalest high-priority
// topic.
func researchCmd(args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "add-topic":
			return researchAddTopicCmd(args[1:])
		case "list":
			return researchListCmd(args[1:])
		}
	}
	return researchRunCmd(args)
}

func researchRunCmd(args []string) error {
	fs, configPath := newFlagSet("research")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	client, err := a.agentClientSteps(agent.ResearchMaxSteps)
	if err != nil {
		return err
	}

	researcher := agent.NewResearcher(client, a.cfg.Bot.DataDir)
	result, err := researcher.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("researched: %s\n", result.Topic.Title)
	fmt.Printf("  searches: %d\n", result.Searches)
	fmt.Printf("  archival entries: %d\n", result.ArchivalEntries)
	if result.BlogCreated {
		fmt.Println("  blog post created")
	}
	return nil
}

func researchAddTopicCmd(args []string) error {
	fs, configPath := newFlagSet("research add-topic")
	description := fs.String("description", "", "what the research should focus on")
	priority := fs.String("priority", "medium", "topic priority (high, medium, low)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: bskyagent research add-topic <title> [--description D] [--priority P]")
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	researcher := agent.NewResearcher(nil, a.cfg.Bot.DataDir)
	topic, err := researcher.AddTopic(fs.Arg(0), *description, *priority)
	if err != nil {
		return err
	}

	fmt.Printf("queued topic %s (%s priority)\n", topic.ID, topic.Priority)
	return nil
}

func researchListCmd(args []string) error {
	fs, configPath := newFlagSet("research list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	researcher := agent.NewResearcher(nil, a.cfg.Bot.DataDir)
	topics, err := researcher.Topics()
	if err != nil {
		return err
	}
	if len(topics) == 0 {
		fmt.Println("no active research topics")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRIORITY\tTOPIC\tLAST RESEARCHED")
	for _, t := range topics {
		last := "never"
		if t.LastResearched != nil {
			last = t.LastResearched.Local().Format("2006-01-02 15:04")
		}
		title := t.Title
		if t.Description != "" {
			title = fmt.Sprintf("%s (%s)", t.Title, truncate(t.Description, 40))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", strings.ToUpper(t.Priority), title, last)
	}
	return w.Flush()
}
