package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gaugehq/bskyagent/internal/model"
	"github.com/gaugehq/bskyagent/internal/queue"
	"github.com/gaugehq/bskyagent/internal/store"
)

// Reconcile scans the pending queue at startup and resolves items whose
// tracking status disagrees with their physical location. Such items
// are the residue of a crash inside a transition: one durable write
// committed but the other did not. Items tracked as processed are stale
// duplicates and dropped; items tracked as errored or skipped are moved
// into their sink, completing the interrupted transition. Pending files
// with no tracking entry (a crash between queue write and tracking
// insert) are adopted: a pending entry is recorded so the item drains
// normally even if the feed never re-delivers it.
//
// Returns the number of anomalies resolved.
func (c *Coordinator) Reconcile(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	loc := queue.LocationPending
	items, err := c.queue.List(queue.ListFilter{Location: &loc})
	if err != nil {
		return 0, fmt.Errorf("scanning pending queue: %w", err)
	}

	anomalies := 0
	for _, item := range items {
		rec := item.Record

		entry, err := c.store.GetEntry(ctx, rec.ID)
		if errors.Is(err, store.ErrNotFound) {
			recordErr := c.store.Record(ctx, model.TrackingEntry{
				NotificationID: rec.ID,
				AuthorHandle:   rec.AuthorHandle,
				Kind:           rec.Kind,
				Status:         model.StatusPending,
				FirstSeenAt:    rec.ReceivedAt,
				UpdatedAt:      time.Now(),
			})
			if recordErr != nil {
				return anomalies, fmt.Errorf("%w: adopting %s: %w", ErrStoreUnavailable, rec.ID, recordErr)
			}
			c.log.WithField("notification", rec.ID).
				Warn("reconciliation anomaly: adopted untracked pending item")
			anomalies++
			continue
		}
		if err != nil {
			return anomalies, fmt.Errorf("%w: reconciling %s: %w", ErrStoreUnavailable, rec.ID, err)
		}

		anomalyLog := c.log.WithFields(logrus.Fields{
			"notification": rec.ID,
			"status":       string(entry.Status),
		})

		switch entry.Status {
		case model.StatusPending:
			continue

		case model.StatusProcessed:
			if err := c.queue.Remove(rec.ID); err != nil {
				return anomalies, err
			}
			anomalyLog.Warn("reconciliation anomaly: dropped stale pending duplicate")

		case model.StatusErrored:
			if err := c.queue.MoveToSink(rec, queue.LocationErrored, ""); err != nil {
				return anomalies, err
			}
			anomalyLog.Warn("reconciliation anomaly: completed interrupted move to errored sink")

		case model.StatusSkipped:
			if err := c.queue.MoveToSink(rec, queue.LocationSkipped, ""); err != nil {
				return anomalies, err
			}
			anomalyLog.Warn("reconciliation anomaly: completed interrupted move to skipped sink")
		}

		anomalies++
	}

	return anomalies, nil
}
