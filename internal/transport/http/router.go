// Package httptransport is the thin HTTP layer: it decodes requests,
// delegates to domain services and renders domain errors. No business logic
// lives here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prosreg/internal/dedupe"
	legislationmodels "prosreg/internal/legislation/models"
	mergemodels "prosreg/internal/merge/models"
	offendermodels "prosreg/internal/offender/models"
	"prosreg/pkg/domain"
	"prosreg/pkg/platform/middleware/admin"
	"prosreg/pkg/platform/middleware/requestid"
	"prosreg/pkg/platform/middleware/requesttime"
)

// OffenderResolver resolves scraped offender attributes to entity IDs.
type OffenderResolver interface {
	ResolveOrCreate(ctx context.Context, attrs offendermodels.Attributes) (domain.OffenderID, error)
}

// LegislationResolver resolves scraped legislation references.
type LegislationResolver interface {
	ResolveOrCreate(ctx context.Context, ref legislationmodels.Ref) (domain.LegislationID, error)
	ResolveBatch(ctx context.Context, refs []legislationmodels.Ref) (map[string]domain.LegislationID, error)
}

// DuplicateFinder exposes the detector's read-only scans.
type DuplicateFinder interface {
	FindDuplicateCases(ctx context.Context) ([]dedupe.CaseGroup, error)
	FindDuplicateNotices(ctx context.Context) ([]dedupe.NoticeGroup, error)
	FindDuplicateOffenders(ctx context.Context) ([]dedupe.OffenderGroup, error)
}

// Merger exposes merge previews, execution and match reviews.
type Merger interface {
	PreviewMerge(ctx context.Context, masterID domain.OffenderID, duplicateIDs []domain.OffenderID) (*mergemodels.Preview, error)
	ExecuteMerge(ctx context.Context, masterID domain.OffenderID, duplicateIDs []domain.OffenderID) (*mergemodels.Result, error)
	CreateReview(ctx context.Context, masterID domain.OffenderID, duplicateIDs []domain.OffenderID, score float64) (*mergemodels.MatchReview, error)
	ListReviews(ctx context.Context, status mergemodels.ReviewStatus) ([]*mergemodels.MatchReview, error)
	DecideReview(ctx context.Context, id domain.ReviewID, status mergemodels.ReviewStatus, notes string) (*mergemodels.MatchReview, error)
}

// Handler bundles the domain services behind the HTTP surface.
type Handler struct {
	offenders   OffenderResolver
	legislation LegislationResolver
	duplicates  DuplicateFinder
	merger      Merger
	logger      *slog.Logger
}

func NewHandler(
	offenders OffenderResolver,
	legislation LegislationResolver,
	duplicates DuplicateFinder,
	merger Merger,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		offenders:   offenders,
		legislation: legislation,
		duplicates:  duplicates,
		merger:      merger,
		logger:      logger,
	}
}

// NewRouter wires all endpoints. Resolution endpoints serve the scraping
// pipeline; everything under /admin is gated by the shared admin token.
func NewRouter(h *Handler, adminToken string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/resolve", func(r chi.Router) {
		r.Post("/offender", h.handleResolveOffender)
		r.Post("/legislation", h.handleResolveLegislation)
		r.Post("/legislation/batch", h.handleResolveLegislationBatch)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(admin.RequireAdminToken(adminToken, h.logger))
		r.Get("/duplicates/cases", h.handleDuplicateCases)
		r.Get("/duplicates/notices", h.handleDuplicateNotices)
		r.Get("/duplicates/offenders", h.handleDuplicateOffenders)
		r.Post("/merge/preview", h.handleMergePreview)
		r.Post("/merge/execute", h.handleMergeExecute)
		r.Post("/reviews", h.handleCreateReview)
		r.Get("/reviews", h.handleListReviews)
		r.Post("/reviews/{reviewID}/decision", h.handleDecideReview)
	})

	return r
}
