// Package coordinator bridges the external feed and responder to the
// durable queue, enforcing at-most-one live processing attempt per
// notification.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gaugehq/bskyagent/internal/agent"
	"github.com/gaugehq/bskyagent/internal/feed"
	"github.com/gaugehq/bskyagent/internal/model"
	"github.com/gaugehq/bskyagent/internal/queue"
	"github.com/gaugehq/bskyagent/internal/store"
)

var (
	// ErrCycleInFlight is returned when RunCycle is entered while
	// another cycle is still draining the queue.
	ErrCycleInFlight = errors.New("coordinator: a cycle is already running")

	// ErrStoreUnavailable wraps tracking store failures. The cycle
	// aborts without partial commits when it surfaces.
	ErrStoreUnavailable = errors.New("coordinator: tracking store unavailable")
)

// Config tunes one coordinator.
type Config struct {
	// PollPageSize bounds how many feed events one cycle ingests.
	PollPageSize int

	// RetryCeiling is the attempt count at which a transiently
	// failing notification escalates to the errored sink.
	RetryCeiling int

	// RetryBackoff is how long a transiently failed item is held back
	// before it becomes eligible for dequeue again.
	RetryBackoff time.Duration

	// ResponderTimeout is the deadline for one responder invocation.
	ResponderTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollPageSize <= 0 {
		c.PollPageSize = 50
	}
	if c.RetryCeiling <= 0 {
		c.RetryCeiling = 3
	}
	if c.ResponderTimeout <= 0 {
		c.ResponderTimeout = 10 * time.Minute
	}
	return c
}

// CycleStats summarizes one poll-and-drain cycle.
type CycleStats struct {
	CycleID  string
	Ingested int
	Replied  int
	Skipped  int
	Errored  int
	Retried  int
}

// Coordinator runs the poll-and-drain cycle. A process-local mutex
// guarantees single-flight: no two cycles ever interleave access to
// the pending queue.
type Coordinator struct {
	feed      feed.Feed
	responder agent.Responder
	queue     *queue.Queue
	store     store.Store
	cfg       Config
	log       *logrus.Logger

	mu sync.Mutex
}

// New wires a coordinator from its collaborators. All dependencies are
// passed explicitly so the pipeline is testable with fakes.
func New(
	f feed.Feed,
	r agent.Responder,
	q *queue.Queue,
	s store.Store,
	cfg Config,
	log *logrus.Logger,
) *Coordinator {
	return &Coordinator{
		feed:      f,
		responder: r,
		queue:     q,
		store:     s,
		cfg:       cfg.withDefaults(),
		log:       log,
	}
}

// RunCycle executes one poll cycle: ingest new feed events, then drain
// the pending queue. A cycle runs to completion before the next may
// start; a concurrent call returns ErrCycleInFlight instead of
// blocking.
func (c *Coordinator) RunCycle(ctx context.Context) (*CycleStats, error) {
	if !c.mu.TryLock() {
		return nil, ErrCycleInFlight
	}
	defer c.mu.Unlock()

	stats := &CycleStats{CycleID: uuid.NewString()}
	log := c.log.WithField("cycle", stats.CycleID)

	if err := c.ingest(ctx, log, stats); err != nil {
		return stats, err
	}
	if err := c.drain(ctx, log, stats); err != nil {
		return stats, err
	}

	log.WithFields(logrus.Fields{
		"ingested": stats.Ingested,
		"replied":  stats.Replied,
		"skipped":  stats.Skipped,
		"errored":  stats.Errored,
		"retried":  stats.Retried,
	}).Info("cycle complete")

	return stats, nil
}

// ingest pulls the latest feed batch and enqueues every event that
// passes the dedup gate, recording each as pending in the tracking
// store. The feed cursor is committed only after the whole batch is
// durably enqueued.
func (c *Coordinator) ingest(ctx context.Context, log *logrus.Entry, stats *CycleStats) error {
	events, err := c.feed.Poll(ctx, c.cfg.PollPageSize)
	if err != nil {
		return fmt.Errorf("polling feed: %w", err)
	}

	// Feed pages arrive newest first; ingest oldest first so received
	// times reflect arrival order.
	sort.Slice(events, func(i, j int) bool {
		return events[i].IndexedAt.Before(events[j].IndexedAt)
	})

	for _, ev := range events {
		seen, err := c.store.HasSeen(ctx, ev.ID)
		if err != nil {
			return fmt.Errorf("%w: checking %s: %w", ErrStoreUnavailable, ev.ID, err)
		}
		if seen {
			// Dedup gate: already tracked ids are silently declined,
			// whatever their status.
			continue
		}

		now := time.Now()
		rec := model.NotificationRecord{
			ID:                ev.ID,
			AuthorHandle:      ev.AuthorHandle,
			AuthorDisplayName: ev.AuthorDisplayName,
			Kind:              ev.Kind,
			ReceivedAt:        now,
			EnqueuedAt:        now,
			Payload:           ev.Payload,
		}

		// Queue file first, tracking row second: a crash in between
		// leaves an untracked pending file that the next ingest of the
		// same id overwrites, equivalent to "never seen".
		if err := c.queue.Enqueue(rec); err != nil {
			return fmt.Errorf("enqueueing %s: %w", ev.ID, err)
		}
		err = c.store.Record(ctx, model.TrackingEntry{
			NotificationID: ev.ID,
			AuthorHandle:   ev.AuthorHandle,
			Kind:           ev.Kind,
			Status:         model.StatusPending,
			FirstSeenAt:    now,
			UpdatedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("%w: recording %s: %w", ErrStoreUnavailable, ev.ID, err)
		}

		stats.Ingested++
	}

	// A failed cursor commit only means the batch is re-delivered next
	// poll, where the dedup gate declines it.
	if err := c.feed.CommitCursor(ctx); err != nil {
		log.WithError(err).Warn("committing feed cursor failed")
	}

	return nil
}

// drain dequeues pending notifications in arrival order and routes each
// responder outcome to the matching terminal transition or retry path.
func (c *Coordinator) drain(ctx context.Context, log *logrus.Entry, stats *CycleStats) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := c.queue.DequeueNext(time.Now())
		if errors.Is(err, queue.ErrEmpty) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("dequeuing: %w", err)
		}

		rec.AttemptCount++

		hctx, cancel := context.WithTimeout(ctx, c.cfg.ResponderTimeout)
		outcome := c.responder.Handle(hctx, rec)
		cancel()

		itemLog := log.WithFields(logrus.Fields{
			"notification": rec.ID,
			"author":       rec.AuthorHandle,
			"attempt":      rec.AttemptCount,
			"outcome":      outcome.Kind.String(),
		})

		switch outcome.Kind {
		case agent.OutcomeReplyIssued:
			// Tracking first: a crash before the queue removal leaves
			// a stale pending duplicate for the startup reconcile.
			if err := c.updateStatus(ctx, rec.ID, model.StatusProcessed); err != nil {
				return err
			}
			if err := c.queue.Remove(rec.ID); err != nil {
				return err
			}
			itemLog.Info("notification processed")
			stats.Replied++

		case agent.OutcomeSkipped:
			if err := c.updateStatus(ctx, rec.ID, model.StatusSkipped); err != nil {
				return err
			}
			if err := c.queue.MoveToSink(*rec, queue.LocationSkipped, outcome.Reason); err != nil {
				return err
			}
			itemLog.WithField("reason", outcome.Reason).Info("notification skipped")
			stats.Skipped++

		case agent.OutcomeTransientFailure:
			if rec.AttemptCount >= c.cfg.RetryCeiling {
				reason := fmt.Sprintf(
					"retry ceiling reached after %d attempts: %s",
					rec.AttemptCount, outcome.Reason,
				)
				if err := c.escalate(ctx, rec, reason, itemLog, stats); err != nil {
					return err
				}
				continue
			}

			// Re-enqueue at the tail with the retry gate set, so the
			// head of the queue is not blocked by a flapping item.
			now := time.Now()
			rec.LastError = outcome.Reason
			rec.EnqueuedAt = now
			rec.NotBefore = now.Add(c.cfg.RetryBackoff)
			if err := c.queue.Update(*rec); err != nil {
				return err
			}
			itemLog.WithField("reason", outcome.Reason).Warn("transient failure, will retry")
			stats.Retried++

		case agent.OutcomeFatalFailure:
			if err := c.escalate(ctx, rec, outcome.Reason, itemLog, stats); err != nil {
				return err
			}

		default:
			return fmt.Errorf("unknown outcome %d for %s", outcome.Kind, rec.ID)
		}
	}
}

// escalate routes a notification to the errored sink.
func (c *Coordinator) escalate(
	ctx context.Context,
	rec *model.NotificationRecord,
	reason string,
	itemLog *logrus.Entry,
	stats *CycleStats,
) error {
	if err := c.updateStatus(ctx, rec.ID, model.StatusErrored); err != nil {
		return err
	}
	if err := c.queue.MoveToSink(*rec, queue.LocationErrored, reason); err != nil {
		return err
	}
	itemLog.WithField("reason", reason).Error("notification errored")
	stats.Errored++
	return nil
}

func (c *Coordinator) updateStatus(ctx context.Context, id string, status model.Status) error {
	if err := c.store.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("%w: transitioning %s to %s: %w", ErrStoreUnavailable, id, status, err)
	}
	return nil
}
