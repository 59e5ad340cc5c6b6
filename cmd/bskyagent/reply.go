package main

import (
	"context"
	"fmt"
)

// replyCmd drafts and publishes a reply to an arbitrary post given its
// bsky.app URL, outside the notification pipeline.
func replyCmd(args []string) error {
	fs, configPath := newFlagSet("reply")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: bskyagent reply <post-url>")
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
	responder, err := a.responder(adapter)
	if err != nil {
		return err
	}

	ctx := context.Background()
	post, err := adapter.FetchPost(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	text, err := responder.ComposeAndPublishReply(ctx, post.AuthorHandle, post.Payload)
	if err != nil {
		return err
	}

	fmt.Println("replied:")
	fmt.Println(text)
	return nil
}
