package flow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"eventbot/internal/domain"
	"eventbot/internal/store"
)

// Rescheduler renormalizes canonical instants when a user's timezone changes
// so that the local wall-clock time the user originally entered is preserved
// under the new zone. The stored UTC instant moves; the displayed time does
// not.
//
// This deliberately replaces the behavior of converting the stored instant
// through both zone representations, which never changes the underlying UTC
// moment and therefore silently shifts the displayed time instead.
type Rescheduler struct {
	repo store.Repo
	log  *zap.Logger
	now  func() time.Time
}

func NewRescheduler(repo store.Repo, log *zap.Logger) *Rescheduler {
	return &Rescheduler{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// RescheduleAll renormalizes every future private event delivered to userID
// after a zone change from oldZone to newZone. Past events and other users'
// events are untouched.
//
// Each new instant is recomputed from the wall clock recorded at creation,
// so it depends only on the event row and newZone. A retry with the same
// zone pair, including one recovering from a crash mid-batch, converges on
// the same instants instead of shifting twice.
//
// Best-effort: a failure on one event is logged, aggregated and skipped, not
// fatal to the batch. Returns the number of events moved plus any aggregated
// per-event errors; callers must not fail the timezone change on them.
func (r *Rescheduler) RescheduleAll(ctx context.Context, userID int64, oldZone, newZone string) (int, error) {
	events, err := r.repo.ListFutureByOwner(ctx, userID, r.now())
	if err != nil {
		return 0, err
	}

	var (
		moved int
		errs  error
	)
	for i := range events {
		e := &events[i]
		newAt, err := domain.ToCanonical(e.LocalAt, newZone)
		if err != nil {
			r.log.Warn("skip event on reschedule",
				zap.String("event", e.ID),
				zap.String("old_zone", oldZone),
				zap.String("new_zone", newZone),
				zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("event %s: %w", e.ID, err))
			continue
		}
		if newAt.Equal(e.At) {
			continue
		}
		if err := r.repo.UpdateEventTime(ctx, e.ID, newAt); err != nil {
			r.log.Warn("skip event on reschedule",
				zap.String("event", e.ID), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("event %s: %w", e.ID, err))
			continue
		}
		moved++
	}
	return moved, errs
}
