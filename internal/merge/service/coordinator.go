// Package service implements the merge coordinator: previewing and executing
// the consolidation of duplicate offenders into a master record.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	enforcementstore "prosreg/internal/enforcement/store"
	"prosreg/internal/match"
	mergemetrics "prosreg/internal/merge/metrics"
	"prosreg/internal/merge/models"
	mergestore "prosreg/internal/merge/store"
	offendermodels "prosreg/internal/offender/models"
	offenderstore "prosreg/internal/offender/store"
	"prosreg/internal/registry"
	"prosreg/pkg/domain"
	dErrors "prosreg/pkg/domain-errors"
	"prosreg/pkg/platform/sentinel"
	pstrings "prosreg/pkg/platform/strings"
	txcontext "prosreg/pkg/platform/tx"
	"prosreg/pkg/requestcontext"
)

// Invalidator drops caches derived from offender and enforcement rows.
// The duplicate detector satisfies it.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// RefreshQueue requests an asynchronous aggregate refresh for an offender.
// The stats queue publisher satisfies it.
type RefreshQueue interface {
	Enqueue(ctx context.Context, id domain.OffenderID) error
}

// Coordinator merges duplicate offenders. The registry lookup happens
// outside the merge transaction so a slow external call never holds row
// locks; the repoint, recompute, overlay and delete all commit or roll back
// together.
type Coordinator struct {
	offenders   offenderstore.Store
	enforcement enforcementstore.Store
	reviews     mergestore.ReviewStore
	registry    registry.Client
	runner      txcontext.Runner

	logger      *slog.Logger
	metrics     *mergemetrics.Metrics
	invalidator Invalidator
	refreshes   RefreshQueue
	tracer      trace.Tracer
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

func WithMetrics(m *mergemetrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithInvalidator wires cache invalidation after committed merges.
func WithInvalidator(inv Invalidator) Option {
	return func(c *Coordinator) { c.invalidator = inv }
}

// WithRefreshQueue wires a post-merge aggregate refresh of the master, so
// enforcement rows written by other processes during the merge are picked up.
func WithRefreshQueue(q RefreshQueue) Option {
	return func(c *Coordinator) { c.refreshes = q }
}

func NewCoordinator(
	offenders offenderstore.Store,
	enforcement enforcementstore.Store,
	reviews mergestore.ReviewStore,
	registryClient registry.Client,
	runner txcontext.Runner,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		offenders:   offenders,
		enforcement: enforcement,
		reviews:     reviews,
		registry:    registryClient,
		runner:      runner,
		logger:      slog.New(slog.DiscardHandler),
		tracer:      otel.Tracer("prosreg/merge"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PreviewMerge computes the projected outcome of a merge without opening a
// transaction or changing any row. Blocking findings appear in the preview
// instead of failing it, so admins can see why a merge would be refused.
func (c *Coordinator) PreviewMerge(ctx context.Context, masterID domain.OffenderID, duplicateIDs []domain.OffenderID) (*models.Preview, error) {
	plan, err := c.prepare(ctx, masterID, duplicateIDs)
	if err != nil {
		return nil, err
	}

	// Projected totals come from persisted rows, exactly as execution would
	// recompute them after the repoint.
	totals, err := c.enforcement.TotalsForOffender(ctx, plan.master.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "computing master totals")
	}
	totals.AgencyIDs = unionAgencies(totals.AgencyIDs, plan.master.AgencyIDs)
	for _, dup := range plan.duplicates {
		dupTotals, err := c.enforcement.TotalsForOffender(ctx, dup.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "computing duplicate totals")
		}
		totals.Cases += dupTotals.Cases
		totals.Notices += dupTotals.Notices
		totals.Fines += dupTotals.Fines
		totals.AgencyIDs = unionAgencies(totals.AgencyIDs, dupTotals.AgencyIDs)
		totals.AgencyIDs = unionAgencies(totals.AgencyIDs, dup.AgencyIDs)
	}

	if c.metrics != nil {
		c.metrics.RecordPreview()
	}
	return &models.Preview{
		MasterID:        plan.master.ID,
		DuplicateIDs:    duplicateIDs,
		Canonical:       plan.canonical,
		ProjectedTotals: totals,
		WouldDelete:     duplicateIDs,
		Findings:        plan.findings,
	}, nil
}

// ExecuteMerge consolidates the duplicates into the master inside a single
// transaction. Totals are recomputed from persisted case and notice rows,
// never from the counters the merged records carried.
func (c *Coordinator) ExecuteMerge(ctx context.Context, masterID domain.OffenderID, duplicateIDs []domain.OffenderID) (*models.Result, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "merge.execute", trace.WithAttributes(
		attribute.String("merge.master_id", masterID.String()),
		attribute.Int("merge.duplicate_count", len(duplicateIDs)),
	))
	defer span.End()
	defer c.observeMerge(start)

	plan, err := c.prepare(ctx, masterID, duplicateIDs)
	if err != nil {
		span.SetStatus(codes.Error, "prepare failed")
		return nil, err
	}
	if blocked := blockingFinding(plan.findings); blocked != nil {
		c.recordMerge("validation_failed")
		span.SetStatus(codes.Error, "validation failed")
		return nil, dErrors.New(dErrors.CodeValidation, blocked.Message)
	}

	var result *models.Result
	err = c.runner.InTx(ctx, func(ctx context.Context) error {
		merged, err := c.applyMerge(ctx, plan)
		if err != nil {
			return err
		}
		result = merged
		return nil
	})
	if err != nil {
		c.recordMerge("transaction_failed")
		span.SetStatus(codes.Error, "transaction failed")
		return nil, dErrors.Wrap(err, dErrors.CodeTransactionFailed, "merge rolled back")
	}

	if c.invalidator != nil {
		if err := c.invalidator.Invalidate(ctx); err != nil {
			c.logger.WarnContext(ctx, "duplicate cache invalidation failed", "error", err)
		}
	}
	if c.refreshes != nil {
		if err := c.refreshes.Enqueue(ctx, result.MasterID); err != nil {
			c.logger.WarnContext(ctx, "post-merge refresh enqueue failed",
				"master_id", result.MasterID.String(), "error", err)
		}
	}
	c.recordMerge("executed")
	c.logger.InfoContext(ctx, "merge executed",
		"master_id", result.MasterID.String(),
		"deleted", len(result.Deleted),
		"total_cases", result.Totals.Cases,
		"total_notices", result.Totals.Notices,
		"total_fines", result.Totals.Fines,
	)
	return result, nil
}

// mergePlan is everything loaded and validated before the transaction.
type mergePlan struct {
	master     *offendermodels.Offender
	duplicates []*offendermodels.Offender
	canonical  models.Canonical
	findings   []models.Finding
}

func (c *Coordinator) prepare(ctx context.Context, masterID domain.OffenderID, duplicateIDs []domain.OffenderID) (*mergePlan, error) {
	if err := validateMergeInput(masterID, duplicateIDs); err != nil {
		return nil, err
	}

	master, err := c.loadOffender(ctx, masterID, "master")
	if err != nil {
		return nil, err
	}
	duplicates := make([]*offendermodels.Offender, 0, len(duplicateIDs))
	for _, id := range duplicateIDs {
		dup, err := c.loadOffender(ctx, id, "duplicate")
		if err != nil {
			return nil, err
		}
		duplicates = append(duplicates, dup)
	}

	plan := &mergePlan{
		master:     master,
		duplicates: duplicates,
		canonical: models.Canonical{
			Name:     master.Name,
			Address:  master.Address,
			Town:     master.Town,
			County:   master.County,
			Postcode: master.Postcode,
		},
	}
	for _, dup := range duplicates {
		if dup.RegistrationNumber != "" && dup.RegistrationNumber != master.RegistrationNumber {
			plan.findings = append(plan.findings, models.Finding{
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("duplicate %s carries registration number %s, master has %q", dup.ID, dup.RegistrationNumber, master.RegistrationNumber),
			})
		}
	}

	// Registry validation runs outside any transaction.
	if master.RegistrationNumber != "" {
		c.validateAgainstRegistry(ctx, plan)
	}
	return plan, nil
}

// validateAgainstRegistry compares the master against the company registry.
// A confirmed record below the similarity threshold blocks the merge; an
// unreachable or silent registry only degrades the canonical overlay.
func (c *Coordinator) validateAgainstRegistry(ctx context.Context, plan *mergePlan) {
	record, err := c.registry.Lookup(ctx, plan.master.RegistrationNumber)
	if err != nil {
		severity := "lookup failed"
		if errors.Is(err, registry.ErrNotFound) {
			severity = "no record"
		}
		c.logger.WarnContext(ctx, "registry validation skipped",
			"registration_number", plan.master.RegistrationNumber,
			"reason", severity,
			"error", err,
		)
		plan.findings = append(plan.findings, models.Finding{
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("registry validation skipped (%s); merging without canonical overlay", severity),
		})
		return
	}

	score := match.Score(plan.master.Name, record.Name, "", "")
	if score < match.RegistryValidationThreshold {
		plan.findings = append(plan.findings, models.Finding{
			Severity: models.SeverityBlocking,
			Message: fmt.Sprintf("registry name %q does not match master name %q (similarity %.2f, need %.2f)",
				record.Name, plan.master.Name, score, match.RegistryValidationThreshold),
		})
		return
	}

	plan.canonical = models.Canonical{
		Name:         record.Name,
		Address:      record.Address,
		Town:         record.Town,
		County:       record.County,
		Postcode:     match.NormalizePostcode(record.Postcode),
		FromRegistry: true,
	}
}

// applyMerge runs inside the transaction: repoint, recompute, overlay, delete.
func (c *Coordinator) applyMerge(ctx context.Context, plan *mergePlan) (*models.Result, error) {
	duplicateIDs := make([]domain.OffenderID, len(plan.duplicates))
	for i, dup := range plan.duplicates {
		duplicateIDs[i] = dup.ID
	}

	if err := c.enforcement.RepointOffender(ctx, duplicateIDs, plan.master.ID); err != nil {
		return nil, fmt.Errorf("repointing enforcement records: %w", err)
	}

	totals, err := c.enforcement.TotalsForOffender(ctx, plan.master.ID)
	if err != nil {
		return nil, fmt.Errorf("recomputing totals: %w", err)
	}

	merged := plan.master.Clone()
	merged.Name = plan.canonical.Name
	merged.NormalizedName = match.NormalizeName(plan.canonical.Name)
	merged.Address = plan.canonical.Address
	merged.Town = plan.canonical.Town
	merged.County = plan.canonical.County
	merged.Postcode = plan.canonical.Postcode
	merged.TotalCases = totals.Cases
	merged.TotalNotices = totals.Notices
	merged.TotalFines = totals.Fines
	merged.UpdatedAt = requestcontext.Now(ctx)

	merged.AgencyIDs = unionAgencies(merged.AgencyIDs, totals.AgencyIDs)
	for _, dup := range plan.duplicates {
		merged.AgencyIDs = unionAgencies(merged.AgencyIDs, dup.AgencyIDs)
		merged.IndustrySectors = append(merged.IndustrySectors, dup.IndustrySectors...)
	}
	merged.IndustrySectors = pstrings.DedupeAndTrimLower(merged.IndustrySectors)
	totals.AgencyIDs = merged.AgencyIDs

	// Duplicates go first: the canonical overlay may give the master a
	// normalized name one of them still holds, and the unique index is
	// checked per statement.
	for _, id := range duplicateIDs {
		if err := c.offenders.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("deleting duplicate %s: %w", id, err)
		}
	}
	if err := c.offenders.Update(ctx, merged); err != nil {
		return nil, fmt.Errorf("updating master: %w", err)
	}

	return &models.Result{
		MasterID: merged.ID,
		Deleted:  duplicateIDs,
		Totals:   totals,
	}, nil
}

func (c *Coordinator) loadOffender(ctx context.Context, id domain.OffenderID, role string) (*offendermodels.Offender, error) {
	offender, err := c.offenders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "%s offender %s not found", role, id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading "+role+" offender")
	}
	return offender, nil
}

func validateMergeInput(masterID domain.OffenderID, duplicateIDs []domain.OffenderID) error {
	if masterID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "master offender id is required")
	}
	if len(duplicateIDs) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one duplicate offender id is required")
	}
	seen := make(map[domain.OffenderID]bool, len(duplicateIDs))
	for _, id := range duplicateIDs {
		if id.IsNil() {
			return dErrors.New(dErrors.CodeInvalidInput, "duplicate offender ids must be valid")
		}
		if id == masterID {
			return dErrors.New(dErrors.CodeInvalidInput, "master cannot be merged into itself")
		}
		if seen[id] {
			return dErrors.Newf(dErrors.CodeInvalidInput, "duplicate offender %s listed twice", id)
		}
		seen[id] = true
	}
	return nil
}

func blockingFinding(findings []models.Finding) *models.Finding {
	for i := range findings {
		if findings[i].Severity == models.SeverityBlocking {
			return &findings[i]
		}
	}
	return nil
}

func unionAgencies(into, from []domain.AgencyID) []domain.AgencyID {
	seen := make(map[domain.AgencyID]bool, len(into))
	for _, id := range into {
		seen[id] = true
	}
	for _, id := range from {
		if !seen[id] {
			seen[id] = true
			into = append(into, id)
		}
	}
	return into
}

func (c *Coordinator) recordMerge(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordMerge(outcome)
	}
}

func (c *Coordinator) observeMerge(start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveMerge(start)
	}
}
