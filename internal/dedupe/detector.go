// Package dedupe finds duplicate enforcement records and suspect offender
// pairs. It is strictly read-only: groups are reported for admin review and
// merged elsewhere.
package dedupe

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	enforcementstore "prosreg/internal/enforcement/store"
	offenderstore "prosreg/internal/offender/store"
	"prosreg/internal/platform/cache"
	"prosreg/pkg/domain"
	dErrors "prosreg/pkg/domain-errors"
)

const (
	cacheKeyCases     = "dedupe:cases"
	cacheKeyNotices   = "dedupe:notices"
	cacheKeyOffenders = "dedupe:offenders"
)

// CaseGroup is a set of cases sharing an agency and reference code.
type CaseGroup struct {
	AgencyID      domain.AgencyID     `json:"agency_id"`
	ReferenceCode string              `json:"reference_code"`
	CaseIDs       []domain.CaseID     `json:"case_ids"`
	OffenderIDs   []domain.OffenderID `json:"offender_ids"`
}

// NoticeGroup is a set of notices sharing an agency and reference code.
type NoticeGroup struct {
	AgencyID      domain.AgencyID     `json:"agency_id"`
	ReferenceCode string              `json:"reference_code"`
	NoticeIDs     []domain.NoticeID   `json:"notice_ids"`
	OffenderIDs   []domain.OffenderID `json:"offender_ids"`
}

// OffenderGroup is a set of offenders sharing a case-insensitive name.
// Advisory only: same-named offenders at different sites are legitimate.
type OffenderGroup struct {
	Name        string              `json:"name"`
	OffenderIDs []domain.OffenderID `json:"offender_ids"`
}

// Report bundles one full duplicate scan.
type Report struct {
	Cases     []CaseGroup     `json:"cases"`
	Notices   []NoticeGroup   `json:"notices"`
	Offenders []OffenderGroup `json:"offenders"`
}

// Detector scans stores for duplicates. Results are cached; the merge
// coordinator invalidates after every successful merge.
type Detector struct {
	enforcement enforcementstore.Store
	offenders   offenderstore.Store
	cache       cache.Cache
	cacheTTL    time.Duration
	logger      *slog.Logger
}

type Option func(*Detector)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) { d.logger = logger }
}

// WithCache enables group-listing caching with the given TTL.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(d *Detector) {
		d.cache = c
		d.cacheTTL = ttl
	}
}

func NewDetector(enforcement enforcementstore.Store, offenders offenderstore.Store, opts ...Option) *Detector {
	d := &Detector{
		enforcement: enforcement,
		offenders:   offenders,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Scan runs all three detections concurrently.
func (d *Detector) Scan(ctx context.Context) (*Report, error) {
	var report Report
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		groups, err := d.FindDuplicateCases(ctx)
		report.Cases = groups
		return err
	})
	g.Go(func() error {
		groups, err := d.FindDuplicateNotices(ctx)
		report.Notices = groups
		return err
	})
	g.Go(func() error {
		groups, err := d.FindDuplicateOffenders(ctx)
		report.Offenders = groups
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &report, nil
}

// FindDuplicateCases groups cases by (agency, trimmed reference code).
// Reference codes only identify records within one agency, so grouping by
// code alone would fabricate cross-agency duplicates.
func (d *Detector) FindDuplicateCases(ctx context.Context) ([]CaseGroup, error) {
	if cached, ok := getCached[[]CaseGroup](ctx, d, cacheKeyCases); ok {
		return cached, nil
	}

	cases, err := d.enforcement.ListCases(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing cases for duplicate scan")
	}

	byKey := make(map[groupKey][]int)
	for i, c := range cases {
		key, ok := makeKey(c.AgencyID, c.ReferenceCode)
		if !ok {
			continue
		}
		byKey[key] = append(byKey[key], i)
	}

	var groups []CaseGroup
	for key, members := range byKey {
		if len(members) < 2 {
			continue
		}
		group := CaseGroup{AgencyID: key.agency, ReferenceCode: key.code}
		for _, i := range members {
			group.CaseIDs = append(group.CaseIDs, cases[i].ID)
			group.OffenderIDs = appendOffender(group.OffenderIDs, cases[i].OffenderID)
		}
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].AgencyID.String() != groups[j].AgencyID.String() {
			return groups[i].AgencyID.String() < groups[j].AgencyID.String()
		}
		return groups[i].ReferenceCode < groups[j].ReferenceCode
	})

	d.putCached(ctx, cacheKeyCases, groups)
	return groups, nil
}

// FindDuplicateNotices groups notices by (agency, trimmed reference code).
func (d *Detector) FindDuplicateNotices(ctx context.Context) ([]NoticeGroup, error) {
	if cached, ok := getCached[[]NoticeGroup](ctx, d, cacheKeyNotices); ok {
		return cached, nil
	}

	notices, err := d.enforcement.ListNotices(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing notices for duplicate scan")
	}

	byKey := make(map[groupKey][]int)
	for i, n := range notices {
		key, ok := makeKey(n.AgencyID, n.ReferenceCode)
		if !ok {
			continue
		}
		byKey[key] = append(byKey[key], i)
	}

	var groups []NoticeGroup
	for key, members := range byKey {
		if len(members) < 2 {
			continue
		}
		group := NoticeGroup{AgencyID: key.agency, ReferenceCode: key.code}
		for _, i := range members {
			group.NoticeIDs = append(group.NoticeIDs, notices[i].ID)
			group.OffenderIDs = appendOffender(group.OffenderIDs, notices[i].OffenderID)
		}
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].AgencyID.String() != groups[j].AgencyID.String() {
			return groups[i].AgencyID.String() < groups[j].AgencyID.String()
		}
		return groups[i].ReferenceCode < groups[j].ReferenceCode
	})

	d.putCached(ctx, cacheKeyNotices, groups)
	return groups, nil
}

// FindDuplicateOffenders groups offenders sharing a case-insensitive trimmed
// name. Advisory: the groups feed the merge preview, never an automatic merge.
func (d *Detector) FindDuplicateOffenders(ctx context.Context) ([]OffenderGroup, error) {
	if cached, ok := getCached[[]OffenderGroup](ctx, d, cacheKeyOffenders); ok {
		return cached, nil
	}

	offenders, err := d.offenders.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing offenders for duplicate scan")
	}

	byName := make(map[string]*OffenderGroup)
	for _, o := range offenders {
		name := strings.TrimSpace(o.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		group, ok := byName[key]
		if !ok {
			group = &OffenderGroup{Name: name}
			byName[key] = group
		}
		group.OffenderIDs = append(group.OffenderIDs, o.ID)
	}

	var groups []OffenderGroup
	for _, group := range byName {
		if len(group.OffenderIDs) < 2 {
			continue
		}
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })

	d.putCached(ctx, cacheKeyOffenders, groups)
	return groups, nil
}

// Invalidate drops every cached group listing. Called after a merge changes
// the underlying rows.
func (d *Detector) Invalidate(ctx context.Context) error {
	if d.cache == nil {
		return nil
	}
	return d.cache.Invalidate(ctx, cacheKeyCases, cacheKeyNotices, cacheKeyOffenders)
}

type groupKey struct {
	agency domain.AgencyID
	code   string
}

func makeKey(agency domain.AgencyID, referenceCode string) (groupKey, bool) {
	code := strings.TrimSpace(referenceCode)
	if code == "" {
		return groupKey{}, false
	}
	return groupKey{agency: agency, code: code}, true
}

func appendOffender(ids []domain.OffenderID, id domain.OffenderID) []domain.OffenderID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// getCached returns a decoded cache entry. Cache failures are logged and
// treated as misses; the scan is the source of truth.
func getCached[T any](ctx context.Context, d *Detector, key string) (T, bool) {
	var zero T
	if d.cache == nil {
		return zero, false
	}
	raw, ok, err := d.cache.Get(ctx, key)
	if err != nil {
		d.logger.WarnContext(ctx, "duplicate cache read failed", "key", key, "error", err)
		return zero, false
	}
	if !ok {
		return zero, false
	}
	var decoded T
	if err := json.Unmarshal(raw, &decoded); err != nil {
		d.logger.WarnContext(ctx, "duplicate cache entry corrupt", "key", key, "error", err)
		return zero, false
	}
	return decoded, true
}

func (d *Detector) putCached(ctx context.Context, key string, value any) {
	if d.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, raw, d.cacheTTL); err != nil {
		d.logger.WarnContext(ctx, "duplicate cache write failed", "key", key, "error", err)
	}
}
