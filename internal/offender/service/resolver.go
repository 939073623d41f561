// Package service implements find-or-create offender resolution.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"prosreg/internal/match"
	offendermetrics "prosreg/internal/offender/metrics"
	"prosreg/internal/offender/models"
	"prosreg/internal/offender/store"
	"prosreg/pkg/domain"
	dErrors "prosreg/pkg/domain-errors"
	"prosreg/pkg/platform/sentinel"
	"prosreg/pkg/requestcontext"
)

// minFuzzyNameLength guards the fuzzy fallback: one- and two-character
// normalized names produce meaningless similarity scores.
const minFuzzyNameLength = 3

// defaultCandidateLimit bounds the index-backed similarity search.
const defaultCandidateLimit = 10

// Resolver maps scraped offender attributes onto exactly one offender
// entity, creating it on first sighting.
//
// Concurrency: resolution is lock-free. Two workers resolving the same new
// name race on Create; the loser gets a uniqueness conflict and recovers
// with a single re-lookup of the winner's row.
type Resolver struct {
	offenders      store.Store
	candidateLimit int
	logger         *slog.Logger
	metrics        *offendermetrics.Metrics
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func WithMetrics(m *offendermetrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithCandidateLimit overrides how many fuzzy candidates are scored.
func WithCandidateLimit(limit int) Option {
	return func(r *Resolver) {
		if limit > 0 {
			r.candidateLimit = limit
		}
	}
}

func NewResolver(offenders store.Store, opts ...Option) *Resolver {
	r := &Resolver{
		offenders:      offenders,
		candidateLimit: defaultCandidateLimit,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveOrCreate returns the ID of the offender the attributes describe,
// creating a new entity only when no existing one matches.
//
// Lookup order: exact (normalized_name, postcode), then fuzzy candidates
// scored against match.AcceptThreshold, then creation. A uniqueness conflict
// during creation means a concurrent resolver won; the exact lookup is
// re-run exactly once and that row returned.
func (r *Resolver) ResolveOrCreate(ctx context.Context, attrs models.Attributes) (domain.OffenderID, error) {
	start := time.Now()
	defer r.observeResolve(start)

	if err := attrs.Validate(); err != nil {
		return domain.OffenderID{}, err
	}

	normalized := match.NormalizeName(attrs.Name)
	postcode := match.NormalizePostcode(attrs.Postcode)

	if existing, err := r.exactLookup(ctx, normalized, postcode); err != nil {
		return domain.OffenderID{}, err
	} else if existing != nil {
		r.recordOutcome("exact")
		return existing.ID, nil
	}

	if len(normalized) >= minFuzzyNameLength {
		matchID, found, err := r.fuzzyLookup(ctx, attrs.Name, normalized, postcode)
		if err != nil {
			return domain.OffenderID{}, err
		}
		if found {
			r.recordOutcome("fuzzy")
			return matchID, nil
		}
	}

	offender := models.New(domain.NewOffenderID(), attrs, requestcontext.Now(ctx))
	err := r.offenders.Create(ctx, offender)
	if err == nil {
		r.recordOutcome("created")
		r.logger.InfoContext(ctx, "offender created",
			"offender_id", offender.ID.String(),
			"normalized_name", offender.NormalizedName,
		)
		return offender.ID, nil
	}
	if !errors.Is(err, sentinel.ErrConflict) {
		return domain.OffenderID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create offender")
	}

	// A concurrent resolver created the same entity between our lookup and
	// our insert. One retry, no locks.
	winner, err := r.exactLookup(ctx, normalized, postcode)
	if err != nil {
		return domain.OffenderID{}, err
	}
	if winner == nil {
		// The conflicting row has a different postcode (normalized-name
		// invariant) so the exact key cannot see it. Surfaced rather than
		// looping: the caller's input genuinely collides with another entity.
		return domain.OffenderID{}, dErrors.New(dErrors.CodeConflict,
			"offender name conflicts with an existing entity under a different postcode")
	}
	r.recordOutcome("raced")
	return winner.ID, nil
}

func (r *Resolver) exactLookup(ctx context.Context, normalized, postcode string) (*models.Offender, error) {
	offender, err := r.offenders.FindByNormalizedName(ctx, normalized, postcode)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "offender lookup failed")
	}
	return offender, nil
}

// fuzzyLookup scores index-backed candidates and accepts the best above the
// acceptance threshold; ties are broken by exact postcode match.
func (r *Resolver) fuzzyLookup(ctx context.Context, rawName, normalized, postcode string) (domain.OffenderID, bool, error) {
	candidates, err := r.offenders.SearchSimilar(ctx, normalized, r.candidateLimit)
	if err != nil {
		return domain.OffenderID{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "offender candidate search failed")
	}

	var (
		best      *models.Offender
		bestScore float64
	)
	for _, candidate := range candidates {
		score := match.Score(rawName, candidate.Name, postcode, candidate.Postcode)
		if score <= match.AcceptThreshold {
			continue
		}
		switch {
		case best == nil || score > bestScore:
			best = candidate
			bestScore = score
		case score == bestScore && candidate.Postcode == postcode && best.Postcode != postcode:
			best = candidate
		}
	}
	if best == nil {
		return domain.OffenderID{}, false, nil
	}

	r.logger.DebugContext(ctx, "fuzzy offender match",
		"offender_id", best.ID.String(),
		"score", bestScore,
	)
	return best.ID, true, nil
}

func (r *Resolver) recordOutcome(outcome string) {
	if r.metrics != nil {
		r.metrics.RecordResolution(outcome)
	}
}

func (r *Resolver) observeResolve(start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveResolve(start)
	}
}
