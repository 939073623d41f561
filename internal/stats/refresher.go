// Package stats recomputes offender aggregates from persisted enforcement
// rows. Refreshes are explicit, idempotent tasks: they can be re-run,
// re-delivered or applied out of order without corrupting the counters.
package stats

import (
	"context"
	"errors"
	"log/slog"

	enforcementstore "prosreg/internal/enforcement/store"
	offenderstore "prosreg/internal/offender/store"
	"prosreg/pkg/domain"
	dErrors "prosreg/pkg/domain-errors"
	"prosreg/pkg/platform/sentinel"
	"prosreg/pkg/requestcontext"
)

// Refresher recomputes one offender's totals and agency set.
type Refresher struct {
	offenders   offenderstore.Store
	enforcement enforcementstore.Store
	logger      *slog.Logger
}

type RefresherOption func(*Refresher)

func WithRefresherLogger(logger *slog.Logger) RefresherOption {
	return func(r *Refresher) { r.logger = logger }
}

func NewRefresher(offenders offenderstore.Store, enforcement enforcementstore.Store, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		offenders:   offenders,
		enforcement: enforcement,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh overwrites the offender's counters with values recomputed from
// case and notice rows. An offender merged away between enqueue and delivery
// is a no-op, not an error, so stale queue entries drain harmlessly.
func (r *Refresher) Refresh(ctx context.Context, id domain.OffenderID) error {
	offender, err := r.offenders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			r.logger.DebugContext(ctx, "refresh skipped, offender gone", "offender_id", id.String())
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "loading offender for refresh")
	}

	totals, err := r.enforcement.TotalsForOffender(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "recomputing totals")
	}

	offender.TotalCases = totals.Cases
	offender.TotalNotices = totals.Notices
	offender.TotalFines = totals.Fines
	offender.AgencyIDs = totals.AgencyIDs
	offender.UpdatedAt = requestcontext.Now(ctx)

	if err := r.offenders.Update(ctx, offender); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "persisting refreshed totals")
	}
	return nil
}
