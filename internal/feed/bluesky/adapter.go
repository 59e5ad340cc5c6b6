// Package bluesky implements the notification feed and post publisher
// over the AT Protocol XRPC API.
package bluesky

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gaugehq/bskyagent/internal/feed"
	"github.com/gaugehq/bskyagent/internal/model"
)

const cursorFileName = "cursor"

// Adapter exposes the Bluesky notification stream as a feed.Feed and
// posting as the responder's publisher. The feed cursor is persisted
// under the data directory and advanced only on CommitCursor, so a
// batch that failed to enqueue is re-delivered on the next poll.
type Adapter struct {
	client     *Client
	cursorPath string

	cursorLoaded bool
	cursor       string
	nextCursor   string
}

// NewAdapter wraps a client, keeping the feed cursor under dataDir.
func NewAdapter(client *Client, dataDir string) *Adapter {
	return &Adapter{
		client:     client,
		cursorPath: filepath.Join(dataDir, cursorFileName),
	}
}

// Client returns the underlying XRPC client.
func (a *Adapter) Client() *Client {
	return a.client
}

// Poll fetches the next page of notifications past the persisted cursor.
func (a *Adapter) Poll(ctx context.Context, limit int) ([]feed.Event, error) {
	if !a.cursorLoaded {
		data, err := os.ReadFile(a.cursorPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading feed cursor: %w", err)
		}
		a.cursor = strings.TrimSpace(string(data))
		a.cursorLoaded = true
	}

	page, err := a.client.ListNotifications(ctx, a.cursor, limit)
	if err != nil {
		return nil, err
	}
	a.nextCursor = page.Cursor

	events := make([]feed.Event, 0, len(page.Notifications))
	for _, n := range page.Notifications {
		events = append(events, eventFromNotification(n))
	}

	return events, nil
}

// CommitCursor persists the cursor advanced by the last Poll. Called by
// the coordinator only after the polled batch is durably enqueued.
func (a *Adapter) CommitCursor(ctx context.Context) error {
	if a.nextCursor == "" || a.nextCursor == a.cursor {
		return nil
	}

	tmp := a.cursorPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(a.nextCursor+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing feed cursor: %w", err)
	}
	if err := os.Rename(tmp, a.cursorPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing feed cursor: %w", err)
	}

	a.cursor = a.nextCursor
	return nil
}

// Publish posts a standalone original post.
func (a *Adapter) Publish(ctx context.Context, text string) error {
	_, _, err := a.client.CreatePost(ctx, text, nil)
	return err
}

// PublishReply posts a reply threaded under the notification's subject
// post, preserving the thread root.
func (a *Adapter) PublishReply(ctx context.Context, text string, payload model.Payload) error {
	refs := &replyRefs{
		Root:   replyRef{URI: payload.RootURI, CID: payload.RootCID},
		Parent: replyRef{URI: payload.URI, CID: payload.CID},
	}
	if refs.Root.URI == "" {
		refs.Root = refs.Parent
	}

	_, _, err := a.client.CreatePost(ctx, text, refs)
	return err
}

// CountBotRepliesInThread counts how many posts in the thread rooted at
// rootURI were authored by the bot account itself. The responder uses
// it to stop dominating a conversation.
func (a *Adapter) CountBotRepliesInThread(ctx context.Context, rootURI string) (int, error) {
	did, err := a.client.DID(ctx)
	if err != nil {
		return 0, err
	}

	thread, err := a.client.GetPostThread(ctx, rootURI, 50)
	if err != nil {
		return 0, err
	}

	return countPostsBy(thread, did), nil
}

func countPostsBy(node *threadViewPost, did string) int {
	n := 0
	if node.Post.Author.DID == did {
		n++
	}
	for i := range node.Replies {
		n += countPostsBy(&node.Replies[i], did)
	}
	return n
}

// FollowAuthor follows the account behind the given handle.
func (a *Adapter) FollowAuthor(ctx context.Context, handle string) error {
	did, err := a.client.ResolveHandle(ctx, handle)
	if err != nil {
		return err
	}
	return a.client.Follow(ctx, did)
}

// eventFromNotification maps one wire notification onto a feed event.
func eventFromNotification(n notification) feed.Event {
	indexedAt, err := time.Parse(time.RFC3339, n.IndexedAt)
	if err != nil {
		indexedAt = time.Now()
	}

	payload := model.Payload{
		URI:  n.URI,
		CID:  n.CID,
		Text: n.Record.Text,
	}
	if n.Record.Reply != nil {
		payload.RootURI = n.Record.Reply.Root.URI
		payload.RootCID = n.Record.Reply.Root.CID
	} else {
		payload.RootURI = n.URI
		payload.RootCID = n.CID
	}

	return feed.Event{
		ID:                n.URI,
		AuthorHandle:      n.Author.Handle,
		AuthorDisplayName: n.Author.DisplayName,
		Kind:              model.KindFromReason(n.Reason),
		IndexedAt:         indexedAt,
		Payload:           payload,
	}
}
