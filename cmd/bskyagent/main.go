// Command bskyagent runs an autonomous Bluesky agent: it polls the
// account's notification feed into a durable on-disk queue, asks a
// Letta agent to draft replies, and tracks every notification's
// disposition in a local SQLite database.
package main

import (
	"fmt"
	"os"
)

const usage = `bskyagent - autonomous Bluesky agent with a durable notification queue

Usage:
  bskyagent <command> [flags]

Commands:
  run       Poll notifications and process the queue
  stats     Show notification counts by status
  list      List tracked notifications
  count     Print the number of pending notifications
  delete    Remove all data for an author handle
  post      Generate and publish an original post
  reply     Generate and publish a reply to a post URL
  invoke    Send a raw prompt to the agent
  research  Run a research session or manage the topic queue
  setup     Interactive configuration
  watch     Live queue inspector

Run 'bskyagent <command> --help' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = runCmd(args)
	case "stats":
		err = statsCmd(args)
	case "list":
		err = listCmd(args)
	case "count":
		err = countCmd(args)
	case "delete":
		err = deleteCmd(args)
	case "post":
		err = postCmd(args)
	case "reply":
		err = replyCmd(args)
	case "invoke":
		err = invokeCmd(args)
	case "research":
		err = researchCmd(args)
	case "setup":
		err = setupCmd(args)
	case "watch":
		err = watchCmd(args)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "bskyagent: unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "bskyagent: %v\n", err)
		os.Exit(1)
	}
}
