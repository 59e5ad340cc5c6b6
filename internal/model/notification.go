package model

import "time"

// Kind classifies the feed event that produced a notification.
type Kind string

const (
	KindMention Kind = "mention"
	KindReply   Kind = "reply"
	KindLike    Kind = "like"
	KindFollow  Kind = "follow"
	KindRepost  Kind = "repost"
	KindQuote   Kind = "quote"
	KindOther   Kind = "other"
)

// KindFromReason maps a Bluesky notification reason string onto a Kind.
// Unknown reasons map to KindOther so new server-side reasons never
// break ingestion.
func KindFromReason(reason string) Kind {
	switch reason {
	case "mention":
		return KindMention
	case "reply":
		return KindReply
	case "like":
		return KindLike
	case "follow":
		return KindFollow
	case "repost":
		return KindRepost
	case "quote":
		return KindQuote
	default:
		return KindOther
	}
}

// Status is the lifecycle state recorded for a notification in the
// tracking store.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusErrored   Status = "errored"
	StatusSkipped   Status = "skipped"
)

// Terminal reports whether the status is a final disposition, after
// which the notification never re-enters the pending queue.
func (s Status) Terminal() bool {
	switch s {
	case StatusProcessed, StatusErrored, StatusSkipped:
		return true
	}
	return false
}

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusErrored, StatusSkipped:
		return true
	}
	return false
}

// Payload carries the feed-specific content the responder needs to act
// on a notification. The queue stores it verbatim and never interprets it.
type Payload struct {
	// URI is the AT-URI of the subject post (or record) of the event.
	URI string `json:"uri"`

	// CID is the content hash of the subject record.
	CID string `json:"cid"`

	// RootURI and RootCID identify the root of the thread the subject
	// belongs to. They equal URI/CID when the subject starts a thread.
	RootURI string `json:"root_uri"`
	RootCID string `json:"root_cid"`

	// Text is the post text, when the event carries one.
	Text string `json:"text"`
}

// NotificationRecord is the durable unit moved through the pending queue
// and outcome sinks. One JSON file per record, keyed by ID.
type NotificationRecord struct {
	// ID is the stable unique identifier assigned by the feed.
	ID string `json:"id"`

	// AuthorHandle identifies the originating user.
	AuthorHandle string `json:"author_handle"`

	// AuthorDisplayName is the author's display name at ingest time.
	AuthorDisplayName string `json:"author_display_name,omitempty"`

	// Kind classifies the event.
	Kind Kind `json:"kind"`

	// ReceivedAt is when the coordinator first observed the event.
	ReceivedAt time.Time `json:"received_at"`

	// EnqueuedAt orders dequeuing. It equals ReceivedAt on first
	// enqueue and is bumped to the present on every re-enqueue, so
	// retried items move to the tail.
	EnqueuedAt time.Time `json:"enqueued_at"`

	// NotBefore gates retries: the item is not eligible for dequeue
	// until this instant. Zero means immediately eligible.
	NotBefore time.Time `json:"not_before,omitempty"`

	// Payload is the responder-facing content.
	Payload Payload `json:"payload"`

	// AttemptCount is incremented each time processing is tried.
	AttemptCount int `json:"attempt_count"`

	// LastError holds the most recent attempt failure, if any.
	LastError string `json:"last_error,omitempty"`
}

// TrackingEntry is the per-notification row in the tracking store. One
// entry per notification id for the lifetime of the system.
type TrackingEntry struct {
	NotificationID string    `db:"notification_id"`
	AuthorHandle   string    `db:"author_handle"`
	Kind           Kind      `db:"kind"`
	Status         Status    `db:"status"`
	FirstSeenAt    time.Time `db:"first_seen_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
