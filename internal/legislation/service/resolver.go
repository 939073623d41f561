// Package service implements find-or-create legislation resolution.
package service

import (
	"context"
	"errors"
	"log/slog"

	"prosreg/internal/legislation/metrics"
	"prosreg/internal/legislation/models"
	"prosreg/internal/legislation/store"
	"prosreg/internal/match"
	"prosreg/pkg/domain"
	dErrors "prosreg/pkg/domain-errors"
	"prosreg/pkg/platform/sentinel"
	"prosreg/pkg/requestcontext"
)

// Resolver maps scraped legislation references onto canonical legislation
// rows. Titles vary wildly across agency sources ("etc.", casing, trailing
// year), so after the exact (title, year, number) lookup misses, candidates
// sharing the year (or with no year) are scored for title similarity.
type Resolver struct {
	legislation store.Store
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func NewResolver(legislation store.Store, opts ...Option) *Resolver {
	r := &Resolver{
		legislation: legislation,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveOrCreate returns the ID of the legislation the ref describes,
// creating a new record when no existing one matches. Fuzzy title matches
// must clear match.LegislationAcceptThreshold, stricter than the offender
// threshold because legislation titles are formal text.
func (r *Resolver) ResolveOrCreate(ctx context.Context, ref models.Ref) (domain.LegislationID, error) {
	if err := ref.Validate(); err != nil {
		return domain.LegislationID{}, err
	}

	if existing, err := r.exactLookup(ctx, ref); err != nil {
		return domain.LegislationID{}, err
	} else if existing != nil {
		r.recordOutcome("exact")
		return existing.ID, nil
	}

	matchID, found, err := r.fuzzyLookup(ctx, ref)
	if err != nil {
		return domain.LegislationID{}, err
	}
	if found {
		r.recordOutcome("fuzzy")
		return matchID, nil
	}

	legislation := models.New(domain.NewLegislationID(), ref, requestcontext.Now(ctx))
	err = r.legislation.Create(ctx, legislation)
	if err == nil {
		r.recordOutcome("created")
		r.logger.InfoContext(ctx, "legislation created",
			"legislation_id", legislation.ID.String(),
			"title", legislation.Title,
		)
		return legislation.ID, nil
	}
	if !errors.Is(err, sentinel.ErrConflict) {
		return domain.LegislationID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create legislation")
	}

	// Concurrent resolver won the insert race; the triple is now present.
	winner, err := r.exactLookup(ctx, ref)
	if err != nil {
		return domain.LegislationID{}, err
	}
	if winner == nil {
		return domain.LegislationID{}, dErrors.New(dErrors.CodeConflict,
			"legislation reference conflicts with an existing record")
	}
	r.recordOutcome("raced")
	return winner.ID, nil
}

// ResolveBatch resolves every ref and returns a map keyed by the input
// title. The batch is all-or-nothing: the first failure aborts it.
func (r *Resolver) ResolveBatch(ctx context.Context, refs []models.Ref) (map[string]domain.LegislationID, error) {
	resolved := make(map[string]domain.LegislationID, len(refs))
	for _, ref := range refs {
		id, err := r.ResolveOrCreate(ctx, ref)
		if err != nil {
			return nil, dErrors.Wrapf(err, dErrors.CodeOf(err), "resolving %q", ref.Title)
		}
		resolved[ref.Title] = id
	}
	return resolved, nil
}

func (r *Resolver) exactLookup(ctx context.Context, ref models.Ref) (*models.Legislation, error) {
	legislation, err := r.legislation.FindExact(ctx, ref.Title, ref.Year, ref.Number)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "legislation lookup failed")
	}
	return legislation, nil
}

func (r *Resolver) fuzzyLookup(ctx context.Context, ref models.Ref) (domain.LegislationID, bool, error) {
	candidates, err := r.legislation.ListCandidates(ctx, ref.Year)
	if err != nil {
		return domain.LegislationID{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "legislation candidate search failed")
	}

	var (
		best      *models.Legislation
		bestScore float64
	)
	for _, candidate := range candidates {
		// Two instruments can share a title and year and differ only by
		// number; a known, different number rules the candidate out.
		if ref.Number != nil && candidate.Number != nil && *ref.Number != *candidate.Number {
			continue
		}
		score := match.Score(ref.Title, candidate.Title, "", "")
		if score <= match.LegislationAcceptThreshold {
			continue
		}
		if best == nil || score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	if best == nil {
		return domain.LegislationID{}, false, nil
	}

	r.logger.DebugContext(ctx, "fuzzy legislation match",
		"legislation_id", best.ID.String(),
		"score", bestScore,
	)
	return best.ID, true, nil
}

func (r *Resolver) recordOutcome(outcome string) {
	if r.metrics != nil {
		r.metrics.RecordResolution(outcome)
	}
}
