package bluesky

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gaugehq/bskyagent/internal/feed"
	"github.com/gaugehq/bskyagent/internal/model"
)

// pdsServer fakes the XRPC endpoints the adapter touches. Handlers are
// registered per NSID; createSession is always available.
type pdsServer struct {
	*httptest.Server
	mux *http.ServeMux
}

func newPDSServer(t *testing.T) *pdsServer {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/xrpc/com.atproto.server.createSession", func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding session request: %v", err)
		}
		if req.Identifier != "bot.bsky.social" {
			t.Errorf("identifier = %q", req.Identifier)
		}
		json.NewEncoder(w).Encode(createSessionResponse{
			AccessJWT: "jwt-1",
			DID:       "did:plc:bot",
			Handle:    "bot.bsky.social",
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &pdsServer{Server: srv, mux: mux}
}

func (s *pdsServer) handle(nsid string, h http.HandlerFunc) {
	s.mux.HandleFunc("/xrpc/"+nsid, h)
}

func newTestAdapter(t *testing.T, srv *pdsServer) (*Adapter, string) {
	t.Helper()
	dataDir := t.TempDir()
	client := NewClient(srv.URL, "bot.bsky.social", "app-password")
	return NewAdapter(client, dataDir), dataDir
}

func TestPollMapsNotifications(t *testing.T) {
	srv := newPDSServer(t)
	srv.handle("app.bsky.notification.listNotifications", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer jwt-1" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.URL.Query().Get("cursor"); got != "" {
			t.Errorf("first poll sent cursor %q, want empty", got)
		}
		io.WriteString(w, `{
			"cursor": "c1",
			"notifications": [
				{
					"uri": "at://did:plc:a/app.bsky.feed.post/1",
					"cid": "cid-a",
					"author": {"did": "did:plc:a", "handle": "alice.bsky.social", "displayName": "Alice"},
					"reason": "mention",
					"record": {"text": "hey @bot"},
					"indexedAt": "2026-08-01T12:00:00Z"
				},
				{
					"uri": "at://did:plc:b/app.bsky.feed.post/2",
					"cid": "cid-b",
					"author": {"did": "did:plc:b", "handle": "bob.bsky.social"},
					"reason": "reply",
					"record": {
						"text": "replying",
						"reply": {
							"root": {"uri": "at://root", "cid": "cid-root"},
							"parent": {"uri": "at://parent", "cid": "cid-parent"}
						}
					},
					"indexedAt": "2026-08-01T12:01:00Z"
				}
			]
		}`)
	})

	a, _ := newTestAdapter(t, srv)
	events, err := a.Poll(context.Background(), 50)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	ev := events[0]
	if ev.ID != "at://did:plc:a/app.bsky.feed.post/1" {
		t.Errorf("id = %s", ev.ID)
	}
	if ev.Kind != model.KindMention {
		t.Errorf("kind = %s, want mention", ev.Kind)
	}
	if ev.AuthorHandle != "alice.bsky.social" || ev.AuthorDisplayName != "Alice" {
		t.Errorf("author = %s (%s)", ev.AuthorHandle, ev.AuthorDisplayName)
	}
	// A top-level post is its own thread root.
	if ev.Payload.RootURI != ev.Payload.URI || ev.Payload.RootCID != "cid-a" {
		t.Errorf("root = %s %s", ev.Payload.RootURI, ev.Payload.RootCID)
	}

	ev = events[1]
	if ev.Kind != model.KindReply {
		t.Errorf("kind = %s, want reply", ev.Kind)
	}
	// A reply inherits the thread root from its record.
	if ev.Payload.RootURI != "at://root" || ev.Payload.RootCID != "cid-root" {
		t.Errorf("root = %s %s", ev.Payload.RootURI, ev.Payload.RootCID)
	}
}

func TestCommitCursorPersistsAndResumes(t *testing.T) {
	srv := newPDSServer(t)
	var sentCursors []string
	srv.handle("app.bsky.notification.listNotifications", func(w http.ResponseWriter, r *http.Request) {
		sentCursors = append(sentCursors, r.URL.Query().Get("cursor"))
		io.WriteString(w, `{"cursor": "c1", "notifications": []}`)
	})

	a, dataDir := newTestAdapter(t, srv)
	ctx := context.Background()

	if _, err := a.Poll(ctx, 50); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if err := a.CommitCursor(ctx); err != nil {
		t.Fatalf("CommitCursor: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dataDir, "cursor"))
	if err != nil {
		t.Fatalf("reading cursor file: %v", err)
	}
	if strings.TrimSpace(string(data)) != "c1" {
		t.Errorf("persisted cursor = %q, want c1", data)
	}

	// A fresh adapter resumes from the persisted cursor.
	fresh := NewAdapter(NewClient(srv.URL, "bot.bsky.social", "app-password"), dataDir)
	if _, err := fresh.Poll(ctx, 50); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(sentCursors) != 2 || sentCursors[1] != "c1" {
		t.Errorf("sent cursors = %v, want second to be c1", sentCursors)
	}
}

func TestCursorNotAdvancedWithoutCommit(t *testing.T) {
	srv := newPDSServer(t)
	srv.handle("app.bsky.notification.listNotifications", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"cursor": "c1", "notifications": []}`)
	})

	a, dataDir := newTestAdapter(t, srv)
	if _, err := a.Poll(context.Background(), 50); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dataDir, "cursor")); !os.IsNotExist(err) {
		t.Errorf("cursor file should not exist before CommitCursor, stat err = %v", err)
	}
}

func TestUnauthorizedIsAuthError(t *testing.T) {
	srv := newPDSServer(t)
	srv.mux.HandleFunc("/xrpc/com.atproto.identity.resolveHandle", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "AuthenticationRequired"}`, http.StatusUnauthorized)
	})

	client := NewClient(srv.URL, "bot.bsky.social", "bad-password")
	_, err := client.ResolveHandle(context.Background(), "alice.bsky.social")
	if !feed.IsAuthError(err) {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestRateLimitRetries(t *testing.T) {
	srv := newPDSServer(t)
	attempts := 0
	srv.mux.HandleFunc("/xrpc/com.atproto.identity.resolveHandle", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, `{"did": "did:plc:alice"}`)
	})

	client := NewClient(srv.URL, "bot.bsky.social", "app-password")
	did, err := client.ResolveHandle(context.Background(), "alice.bsky.social")
	if err != nil {
		t.Fatalf("ResolveHandle: %v", err)
	}
	if did != "did:plc:alice" {
		t.Errorf("did = %s", did)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestPublishReplyThreadsRefs(t *testing.T) {
	srv := newPDSServer(t)
	var got createRecordRequest
	var gotRecord postRecord
	srv.handle("com.atproto.repo.createRecord", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		raw, _ := json.Marshal(got.Record)
		if err := json.Unmarshal(raw, &gotRecord); err != nil {
			t.Errorf("decoding record: %v", err)
		}
		io.WriteString(w, `{"uri": "at://did:plc:bot/app.bsky.feed.post/9", "cid": "cid-9"}`)
	})

	a, _ := newTestAdapter(t, srv)
	err := a.PublishReply(context.Background(), "hello", model.Payload{
		URI:     "at://parent",
		CID:     "cid-parent",
		RootURI: "at://root",
		RootCID: "cid-root",
	})
	if err != nil {
		t.Fatalf("PublishReply: %v", err)
	}

	if got.Repo != "did:plc:bot" || got.Collection != "app.bsky.feed.post" {
		t.Errorf("request = %+v", got)
	}
	if gotRecord.Reply == nil {
		t.Fatal("reply refs missing")
	}
	if gotRecord.Reply.Root.URI != "at://root" || gotRecord.Reply.Parent.URI != "at://parent" {
		t.Errorf("refs = %+v", gotRecord.Reply)
	}
}

func TestPublishReplyRootFallsBackToParent(t *testing.T) {
	srv := newPDSServer(t)
	var gotRecord postRecord
	srv.handle("com.atproto.repo.createRecord", func(w http.ResponseWriter, r *http.Request) {
		var req createRecordRequest
		json.NewDecoder(r.Body).Decode(&req)
		raw, _ := json.Marshal(req.Record)
		json.Unmarshal(raw, &gotRecord)
		io.WriteString(w, `{"uri": "at://x", "cid": "y"}`)
	})

	a, _ := newTestAdapter(t, srv)
	err := a.PublishReply(context.Background(), "hello", model.Payload{
		URI: "at://parent",
		CID: "cid-parent",
	})
	if err != nil {
		t.Fatalf("PublishReply: %v", err)
	}
	if gotRecord.Reply.Root.URI != "at://parent" {
		t.Errorf("root = %+v, want parent fallback", gotRecord.Reply.Root)
	}
}

func TestFollowAuthor(t *testing.T) {
	srv := newPDSServer(t)
	srv.handle("com.atproto.identity.resolveHandle", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("handle"); got != "alice.bsky.social" {
			t.Errorf("handle = %q", got)
		}
		io.WriteString(w, `{"did": "did:plc:alice"}`)
	})

	var gotFollow followRecord
	srv.handle("com.atproto.repo.createRecord", func(w http.ResponseWriter, r *http.Request) {
		var req createRecordRequest
		json.NewDecoder(r.Body).Decode(&req)
		raw, _ := json.Marshal(req.Record)
		json.Unmarshal(raw, &gotFollow)
		io.WriteString(w, `{"uri": "at://x", "cid": "y"}`)
	})

	a, _ := newTestAdapter(t, srv)
	if err := a.FollowAuthor(context.Background(), "alice.bsky.social"); err != nil {
		t.Fatalf("FollowAuthor: %v", err)
	}
	if gotFollow.Subject != "did:plc:alice" {
		t.Errorf("follow subject = %q", gotFollow.Subject)
	}
	if gotFollow.Type != "app.bsky.graph.follow" {
		t.Errorf("follow type = %q", gotFollow.Type)
	}
}

func TestCountBotRepliesInThread(t *testing.T) {
	srv := newPDSServer(t)
	srv.handle("app.bsky.feed.getPostThread", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("uri"); got != "at://root" {
			t.Errorf("uri = %q", got)
		}
		io.WriteString(w, `{
			"thread": {
				"post": {"uri": "at://root", "author": {"did": "did:plc:alice"}},
				"replies": [
					{
						"post": {"uri": "at://r1", "author": {"did": "did:plc:bot"}},
						"replies": [
							{"post": {"uri": "at://r2", "author": {"did": "did:plc:alice"}}, "replies": []},
							{"post": {"uri": "at://r3", "author": {"did": "did:plc:bot"}}, "replies": []}
						]
					}
				]
			}
		}`)
	})

	a, _ := newTestAdapter(t, srv)
	n, err := a.CountBotRepliesInThread(context.Background(), "at://root")
	if err != nil {
		t.Fatalf("CountBotRepliesInThread: %v", err)
	}
	if n != 2 {
		t.Errorf("bot posts = %d, want 2", n)
	}
}

func TestParsePostURL(t *testing.T) {
	handle, rkey, err := ParsePostURL("https://bsky.app/profile/alice.bsky.social/post/3k44aaa")
	if err != nil {
		t.Fatalf("ParsePostURL: %v", err)
	}
	if handle != "alice.bsky.social" || rkey != "3k44aaa" {
		t.Errorf("got %s / %s", handle, rkey)
	}

	if _, _, err := ParsePostURL("https://example.com/not-a-post"); err == nil {
		t.Error("expected invalid URL to be rejected")
	}
}

func TestFetchPost(t *testing.T) {
	srv := newPDSServer(t)
	srv.handle("com.atproto.identity.resolveHandle", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"did": "did:plc:alice"}`)
	})
	srv.handle("com.atproto.repo.getRecord", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("repo") != "did:plc:alice" || q.Get("rkey") != "3k44aaa" {
			t.Errorf("query = %v", q)
		}
		io.WriteString(w, `{
			"uri": "at://did:plc:alice/app.bsky.feed.post/3k44aaa",
			"cid": "cid-post",
			"value": {"$type": "app.bsky.feed.post", "text": "original post", "createdAt": "2026-08-01T12:00:00Z"}
		}`)
	})

	a, _ := newTestAdapter(t, srv)
	post, err := a.FetchPost(context.Background(), "https://bsky.app/profile/alice.bsky.social/post/3k44aaa")
	if err != nil {
		t.Fatalf("FetchPost: %v", err)
	}
	if post.AuthorHandle != "alice.bsky.social" {
		t.Errorf("author = %s", post.AuthorHandle)
	}
	if post.Payload.Text != "original post" {
		t.Errorf("text = %q", post.Payload.Text)
	}
	// A top-level post threads replies under itself.
	if post.Payload.RootURI != post.Payload.URI {
		t.Errorf("root = %s, want %s", post.Payload.RootURI, post.Payload.URI)
	}
}
