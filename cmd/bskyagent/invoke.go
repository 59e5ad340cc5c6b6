package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// invokeCmd sends a raw prompt to the agent and prints its response.
// The prompt comes from the first positional argument, or from stdin
// when no argument is given.
func invokeCmd(args []string) error {
	fs, configPath := newFlagSet("invoke")
	maxSteps := fs.Int("max-steps", 100, "maximum agent steps for this invocation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var prompt string
	switch fs.NArg() {
	case 0:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading prompt from stdin: %w", err)
		}
		prompt = strings.TrimSpace(string(data))
	case 1:
		prompt = fs.Arg(0)
	default:
		return fmt.Errorf("usage: bskyagent invoke [prompt] (or pipe the prompt on stdin)")
	}
	if prompt == "" {
		return fmt.Errorf("empty prompt")
	}

	a, err := openApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	client, err := a.agentClientSteps(*maxSteps)
	if err != nil {
		return err
	}

	result, err := client.Invoke(context.Background(), prompt)
	if err != nil {
		return err
	}
	if result.Text == "" {
		return fmt.Errorf("agent returned no text")
	}

	fmt.Println(result.Text)
	return nil
}
