package bluesky

import (
	"context"
	"fmt"
	"regexp"

	"github.com/gaugehq/bskyagent/internal/model"
)

var postURLPattern = regexp.MustCompile(`^https://bsky\.app/profile/([^/]+)/post/([^/]+)$`)

// ParsePostURL extracts the author handle and record key from a
// bsky.app post URL.
func ParsePostURL(rawURL string) (handle, rkey string, err error) {
	m := postURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", "", fmt.Errorf("invalid Bluesky post URL: %s", rawURL)
	}
	return m[1], m[2], nil
}

// FetchedPost is a post resolved from a URL for the reply command.
type FetchedPost struct {
	AuthorHandle string
	Payload      model.Payload
}

// FetchPost resolves a bsky.app post URL to the payload needed to
// generate and thread a reply under it.
func (a *Adapter) FetchPost(ctx context.Context, rawURL string) (*FetchedPost, error) {
	handle, rkey, err := ParsePostURL(rawURL)
	if err != nil {
		return nil, err
	}

	did, err := a.client.ResolveHandle(ctx, handle)
	if err != nil {
		return nil, err
	}

	rec, err := a.client.GetPost(ctx, did, rkey)
	if err != nil {
		return nil, err
	}

	payload := model.Payload{
		URI:  rec.URI,
		CID:  rec.CID,
		Text: rec.Value.Text,
	}
	if rec.Value.Reply != nil {
		payload.RootURI = rec.Value.Reply.Root.URI
		payload.RootCID = rec.Value.Reply.Root.CID
	} else {
		payload.RootURI = rec.URI
		payload.RootCID = rec.CID
	}

	return &FetchedPost{AuthorHandle: handle, Payload: payload}, nil
}
