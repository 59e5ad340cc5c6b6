// Package feed defines the contract between the queue coordinator and
// the external notification source.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gaugehq/bskyagent/internal/model"
)

// AuthError indicates that authentication has failed or expired against
// the feed. It is returned by feed clients when a 401 response is received.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("feed auth error: %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Event is one notification delivered by the feed.
type Event struct {
	// ID is the feed-assigned stable unique identifier.
	ID string

	// AuthorHandle identifies the originating user.
	AuthorHandle string

	// AuthorDisplayName is the author's display name, if any.
	AuthorDisplayName string

	// Kind classifies the event.
	Kind model.Kind

	// IndexedAt is when the feed indexed the event.
	IndexedAt time.Time

	// Payload carries the responder-facing content.
	Payload model.Payload
}

// Feed is the external notification source. Poll returns the next batch
// past the adapter's cursor; the adapter persists the advanced cursor
// only when the coordinator calls CommitCursor after a successful
// enqueue of the batch.
type Feed interface {
	Poll(ctx context.Context, limit int) ([]Event, error)
	CommitCursor(ctx context.Context) error
}
