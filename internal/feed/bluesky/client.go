package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gaugehq/bskyagent/internal/feed"
)

// Client is a thin HTTP client for the subset of the AT Protocol XRPC
// API the agent needs. It handles session authentication, JSON
// marshaling, and automatic retry with exponential backoff on HTTP 429.
type Client struct {
	pdsURI     string
	identifier string
	password   string

	httpClient *http.Client
	maxRetries int

	accessJWT string
	did       string
	handle    string
}

// NewClient creates a new XRPC client for the given PDS. The identifier
// is the account handle and the password an app password; the session
// is established lazily on first use.
func NewClient(pdsURI, identifier, password string) *Client {
	return &Client{
		pdsURI:     strings.TrimRight(pdsURI, "/"),
		identifier: identifier,
		password:   password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
}

// DID returns the authenticated account's DID, establishing the session
// if necessary.
func (c *Client) DID(ctx context.Context) (string, error) {
	if err := c.ensureSession(ctx); err != nil {
		return "", err
	}
	return c.did, nil
}

// ensureSession logs in if no session token is held yet.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.accessJWT != "" {
		return nil
	}

	var resp createSessionResponse
	err := c.do(ctx, http.MethodPost, "com.atproto.server.createSession", nil,
		createSessionRequest{Identifier: c.identifier, Password: c.password},
		&resp, false,
	)
	if err != nil {
		return fmt.Errorf("creating session for %s: %w", c.identifier, err)
	}

	c.accessJWT = resp.AccessJWT
	c.did = resp.DID
	c.handle = resp.Handle
	return nil
}

// ListNotifications fetches one page of notifications past the cursor.
// An empty cursor starts from the newest.
func (c *Client) ListNotifications(ctx context.Context, cursor string, limit int) (*listNotificationsResponse, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var resp listNotificationsResponse
	err := c.do(ctx, http.MethodGet, "app.bsky.notification.listNotifications", params, nil, &resp, true)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	return &resp, nil
}

// CreatePost publishes a post, threading it under reply when non-nil.
// It returns the AT-URI and CID of the created record.
func (c *Client) CreatePost(ctx context.Context, text string, reply *replyRefs) (string, string, error) {
	if err := c.ensureSession(ctx); err != nil {
		return "", "", err
	}

	record := postRecord{
		Type:      "app.bsky.feed.post",
		Text:      text,
		Reply:     reply,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	var resp createRecordResponse
	err := c.do(ctx, http.MethodPost, "com.atproto.repo.createRecord", nil,
		createRecordRequest{
			Repo:       c.did,
			Collection: "app.bsky.feed.post",
			Record:     record,
		},
		&resp, true,
	)
	if err != nil {
		return "", "", fmt.Errorf("creating post: %w", err)
	}

	return resp.URI, resp.CID, nil
}

// Follow creates a follow record for the given subject DID.
func (c *Client) Follow(ctx context.Context, subjectDID string) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	record := followRecord{
		Type:      "app.bsky.graph.follow",
		Subject:   subjectDID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	var resp createRecordResponse
	err := c.do(ctx, http.MethodPost, "com.atproto.repo.createRecord", nil,
		createRecordRequest{
			Repo:       c.did,
			Collection: "app.bsky.graph.follow",
			Record:     record,
		},
		&resp, true,
	)
	if err != nil {
		return fmt.Errorf("following %s: %w", subjectDID, err)
	}

	return nil
}

// ResolveHandle resolves an account handle to its DID.
func (c *Client) ResolveHandle(ctx context.Context, handle string) (string, error) {
	params := url.Values{}
	params.Set("handle", handle)

	var resp resolveHandleResponse
	err := c.do(ctx, http.MethodGet, "com.atproto.identity.resolveHandle", params, nil, &resp, false)
	if err != nil {
		return "", fmt.Errorf("resolving handle %s: %w", handle, err)
	}

	return resp.DID, nil
}

// GetPostThread fetches the reply tree under the given post URI.
func (c *Client) GetPostThread(ctx context.Context, uri string, depth int) (*threadViewPost, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("uri", uri)
	if depth > 0 {
		params.Set("depth", strconv.Itoa(depth))
	}

	var resp getPostThreadResponse
	err := c.do(ctx, http.MethodGet, "app.bsky.feed.getPostThread", params, nil, &resp, true)
	if err != nil {
		return nil, fmt.Errorf("getting thread for %s: %w", uri, err)
	}

	return &resp.Thread, nil
}

// GetPost fetches a single post record by repo DID and record key.
func (c *Client) GetPost(ctx context.Context, repo, rkey string) (*getRecordResponse, error) {
	params := url.Values{}
	params.Set("repo", repo)
	params.Set("collection", "app.bsky.feed.post")
	params.Set("rkey", rkey)

	var resp getRecordResponse
	err := c.do(ctx, http.MethodGet, "com.atproto.repo.getRecord", params, nil, &resp, false)
	if err != nil {
		return nil, fmt.Errorf("getting post %s/%s: %w", repo, rkey, err)
	}

	return &resp, nil
}

// do is the core XRPC method: it builds the request, handles auth and
// rate limiting with exponential backoff, and JSON (de)serialization.
func (c *Client) do(
	ctx context.Context,
	method string,
	nsid string,
	params url.Values,
	body interface{},
	result interface{},
	authed bool,
) error {
	endpoint := c.pdsURI + "/xrpc/" + nsid
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("marshaling request body: %w", err)
			}
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if authed {
			req.Header.Set("Authorization", "Bearer "+c.accessJWT)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing %s %s: %w", method, nsid, err)
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return &feed.AuthError{
				Message: fmt.Sprintf(
					"authentication failed (401) on %s: check the app password for %s",
					nsid, c.identifier,
				),
			}

		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429) on %s", nsid)
			if attempt < c.maxRetries {
				backoff := time.Duration(1<<attempt) * time.Second
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return ctx.Err()
				}
				continue
			}
			return lastErr

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return fmt.Errorf(
				"unexpected status %d on %s %s: %s",
				resp.StatusCode, method, nsid, strings.TrimSpace(string(respBody)),
			)
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("decoding %s response: %w", nsid, err)
			}
		}

		return nil
	}

	return lastErr
}
