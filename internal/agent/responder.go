package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gaugehq/bskyagent/internal/model"
)

// maxReplyLength is the Bluesky post length ceiling.
const maxReplyLength = 300

// Publisher is the outbound side of the feed: posting replies and
// original posts, and following accounts back.
type Publisher interface {
	Publish(ctx context.Context, text string) error
	PublishReply(ctx context.Context, text string, payload model.Payload) error
	FollowAuthor(ctx context.Context, handle string) error
}

// ThreadCounter is implemented by publishers that can report how many
// posts the bot already holds in a thread.
type ThreadCounter interface {
	CountBotRepliesInThread(ctx context.Context, rootURI string) (int, error)
}

// Responder decides and executes the terminal action for one
// notification. The returned Outcome is a closed variant so the
// coordinator's dispatch is exhaustive.
type Responder interface {
	Handle(ctx context.Context, rec *model.NotificationRecord) Outcome
}

// ResponderOptions tunes the Letta responder.
type ResponderOptions struct {
	// Autofollow controls whether new followers are followed back.
	Autofollow bool

	// MaxThreadPosts caps how many posts the bot contributes to a
	// single thread before declining further replies. Zero means no cap.
	MaxThreadPosts int
}

// LettaResponder handles notifications by invoking the Letta agent to
// draft replies and publishing them through the feed.
type LettaResponder struct {
	client    *Client
	publisher Publisher
	opts      ResponderOptions
	log       *logrus.Logger
}

// NewLettaResponder wires the agent client and publisher together.
func NewLettaResponder(client *Client, publisher Publisher, opts ResponderOptions, log *logrus.Logger) *LettaResponder {
	return &LettaResponder{
		client:    client,
		publisher: publisher,
		opts:      opts,
		log:       log,
	}
}

// Handle routes one notification to its outcome: likes, reposts and
// follows are acknowledged without replies; mentions, replies and
// quotes go through the agent.
func (r *LettaResponder) Handle(ctx context.Context, rec *model.NotificationRecord) Outcome {
	switch rec.Kind {
	case model.KindLike, model.KindRepost:
		return Skipped(fmt.Sprintf("no reply needed for %s", rec.Kind))

	case model.KindFollow:
		if r.opts.Autofollow {
			if err := r.publisher.FollowAuthor(ctx, rec.AuthorHandle); err != nil {
				return Transient(fmt.Sprintf("following %s back: %v", rec.AuthorHandle, err))
			}
			return Skipped("followed back")
		}
		return Skipped("follow acknowledged")

	case model.KindMention, model.KindReply, model.KindQuote:
		return r.reply(ctx, rec)

	default:
		return Skipped(fmt.Sprintf("unrecognized notification kind %q", rec.Kind))
	}
}

// reply invokes the agent for a reply draft and publishes it.
func (r *LettaResponder) reply(ctx context.Context, rec *model.NotificationRecord) Outcome {
	if outcome, capped := r.threadCapped(ctx, rec); capped {
		return outcome
	}

	result, err := r.client.Invoke(ctx, replyPrompt(rec))
	if err != nil {
		return classifyInvokeError(err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return Fatal("agent returned no reply text")
	}
	if text == skipToken {
		return Skipped("agent declined to reply")
	}
	text = truncateReply(text)

	if err := r.publisher.PublishReply(ctx, text, rec.Payload); err != nil {
		return Transient(fmt.Sprintf("publishing reply: %v", err))
	}

	r.log.WithFields(logrus.Fields{
		"notification": rec.ID,
		"author":       rec.AuthorHandle,
	}).Info("reply published")

	return ReplyIssued()
}

// ComposeAndPublishReply drafts and publishes a reply to an arbitrary
// post outside the queue pipeline (the operator reply command). It
// returns the published text.
func (r *LettaResponder) ComposeAndPublishReply(
	ctx context.Context,
	authorHandle string,
	payload model.Payload,
) (string, error) {
	rec := &model.NotificationRecord{
		AuthorHandle: authorHandle,
		Kind:         model.KindMention,
		Payload:      payload,
	}

	result, err := r.client.Invoke(ctx, replyPrompt(rec))
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(result.Text)
	if text == "" || text == skipToken {
		return "", errors.New("agent did not generate a reply")
	}
	text = truncateReply(text)

	if err := r.publisher.PublishReply(ctx, text, payload); err != nil {
		return "", err
	}

	return text, nil
}

// threadCapped checks the per-thread reply cap. A failed thread lookup
// is retryable; the reply itself has not been attempted yet.
func (r *LettaResponder) threadCapped(ctx context.Context, rec *model.NotificationRecord) (Outcome, bool) {
	if r.opts.MaxThreadPosts <= 0 || rec.Payload.RootURI == "" {
		return Outcome{}, false
	}
	counter, ok := r.publisher.(ThreadCounter)
	if !ok {
		return Outcome{}, false
	}

	n, err := counter.CountBotRepliesInThread(ctx, rec.Payload.RootURI)
	if err != nil {
		return Transient(fmt.Sprintf("counting thread posts: %v", err)), true
	}
	if n >= r.opts.MaxThreadPosts {
		return Skipped(fmt.Sprintf("thread reply limit reached (%d posts)", n)), true
	}
	return Outcome{}, false
}

// classifyInvokeError maps agent invocation failures onto the outcome
// taxonomy: deadline and rate-limit/server problems are retryable,
// anything else is not.
func classifyInvokeError(err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient("responder timeout")
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return Transient(fmt.Sprintf("agent backend unavailable: %v", apiErr))
		}
		return Fatal(fmt.Sprintf("agent rejected request: %v", apiErr))
	}

	// Network-level failures are worth retrying.
	return Transient(fmt.Sprintf("invoking agent: %v", err))
}

// truncateReply clips a reply to the post length ceiling.
func truncateReply(text string) string {
	runes := []rune(text)
	if len(runes) <= maxReplyLength {
		return text
	}
	return string(runes[:maxReplyLength])
}
