package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	enforcementmodels "prosreg/internal/enforcement/models"
	enforcementstore "prosreg/internal/enforcement/store"
	offendermodels "prosreg/internal/offender/models"
	offenderstore "prosreg/internal/offender/store"
	"prosreg/internal/platform/cache"
	"prosreg/pkg/domain"
)

func seedCase(t *testing.T, store *enforcementstore.InMemory, agency domain.AgencyID, offender domain.OffenderID, ref string) domain.CaseID {
	t.Helper()
	c := &enforcementmodels.Case{
		ID:            domain.NewCaseID(),
		AgencyID:      agency,
		OffenderID:    offender,
		ReferenceCode: ref,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, store.CreateCase(context.Background(), c))
	return c.ID
}

func seedNotice(t *testing.T, store *enforcementstore.InMemory, agency domain.AgencyID, offender domain.OffenderID, ref string) domain.NoticeID {
	t.Helper()
	n := &enforcementmodels.Notice{
		ID:            domain.NewNoticeID(),
		AgencyID:      agency,
		OffenderID:    offender,
		ReferenceCode: ref,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, store.CreateNotice(context.Background(), n))
	return n.ID
}

func seedOffender(t *testing.T, store *offenderstore.InMemory, name, regNumber string) domain.OffenderID {
	t.Helper()
	o := offendermodels.New(domain.NewOffenderID(), offendermodels.Attributes{
		Name:               name,
		RegistrationNumber: regNumber,
	}, time.Now())
	require.NoError(t, store.Create(context.Background(), o))
	return o.ID
}

func TestFindDuplicateCasesGroupsWithinAgency(t *testing.T) {
	ctx := context.Background()
	enforcement := enforcementstore.NewInMemory()
	offenders := offenderstore.NewInMemory()
	agency := domain.NewAgencyID()
	offender := domain.NewOffenderID()

	first := seedCase(t, enforcement, agency, offender, "HSE/2023/001")
	second := seedCase(t, enforcement, agency, offender, " HSE/2023/001 ")
	seedCase(t, enforcement, agency, offender, "HSE/2023/002")

	detector := NewDetector(enforcement, offenders)
	groups, err := detector.FindDuplicateCases(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "HSE/2023/001", groups[0].ReferenceCode)
	require.ElementsMatch(t, []domain.CaseID{first, second}, groups[0].CaseIDs)
}

func TestSameReferenceCodeAcrossAgenciesIsNotADuplicate(t *testing.T) {
	ctx := context.Background()
	enforcement := enforcementstore.NewInMemory()
	offenders := offenderstore.NewInMemory()
	offender := domain.NewOffenderID()

	// Two agencies reusing the same code is routine, not a collision.
	seedCase(t, enforcement, domain.NewAgencyID(), offender, "2023/001")
	seedCase(t, enforcement, domain.NewAgencyID(), offender, "2023/001")

	detector := NewDetector(enforcement, offenders)
	groups, err := detector.FindDuplicateCases(ctx)
	require.NoError(t, err)
	require.Empty(t, groups)
}

func TestEmptyReferenceCodesAreSkipped(t *testing.T) {
	ctx := context.Background()
	enforcement := enforcementstore.NewInMemory()
	offenders := offenderstore.NewInMemory()
	agency := domain.NewAgencyID()
	offender := domain.NewOffenderID()

	seedCase(t, enforcement, agency, offender, "")
	seedCase(t, enforcement, agency, offender, "   ")
	seedNotice(t, enforcement, agency, offender, "")
	seedNotice(t, enforcement, agency, offender, "  ")

	detector := NewDetector(enforcement, offenders)
	caseGroups, err := detector.FindDuplicateCases(ctx)
	require.NoError(t, err)
	require.Empty(t, caseGroups)
	noticeGroups, err := detector.FindDuplicateNotices(ctx)
	require.NoError(t, err)
	require.Empty(t, noticeGroups)
}

func TestFindDuplicateNoticesGroupsWithinAgency(t *testing.T) {
	ctx := context.Background()
	enforcement := enforcementstore.NewInMemory()
	offenders := offenderstore.NewInMemory()
	agency := domain.NewAgencyID()
	offender := domain.NewOffenderID()

	first := seedNotice(t, enforcement, agency, offender, "N-100")
	second := seedNotice(t, enforcement, agency, offender, "N-100")

	detector := NewDetector(enforcement, offenders)
	groups, err := detector.FindDuplicateNotices(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.ElementsMatch(t, []domain.NoticeID{first, second}, groups[0].NoticeIDs)
}

func TestFindDuplicateOffendersByName(t *testing.T) {
	ctx := context.Background()
	enforcement := enforcementstore.NewInMemory()
	offenders := offenderstore.NewInMemory()

	// Registered rows sidestep the normalized-name uniqueness invariant, so
	// same-named offenders can coexist and the detector must flag them.
	first := seedOffender(t, offenders, "Acme Widgets Limited", "01111111")
	second := seedOffender(t, offenders, "ACME WIDGETS LIMITED", "02222222")
	seedOffender(t, offenders, "Different Name Limited", "03333333")

	detector := NewDetector(enforcement, offenders)
	groups, err := detector.FindDuplicateOffenders(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.ElementsMatch(t, []domain.OffenderID{first, second}, groups[0].OffenderIDs)
}

func TestScanRunsAllDetections(t *testing.T) {
	ctx := context.Background()
	enforcement := enforcementstore.NewInMemory()
	offenders := offenderstore.NewInMemory()
	agency := domain.NewAgencyID()
	offender := domain.NewOffenderID()

	seedCase(t, enforcement, agency, offender, "C-1")
	seedCase(t, enforcement, agency, offender, "C-1")
	seedNotice(t, enforcement, agency, offender, "N-1")
	seedNotice(t, enforcement, agency, offender, "N-1")
	seedOffender(t, offenders, "Twin Limited", "04444444")
	seedOffender(t, offenders, "twin limited", "05555555")

	detector := NewDetector(enforcement, offenders)
	report, err := detector.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, report.Cases, 1)
	require.Len(t, report.Notices, 1)
	require.Len(t, report.Offenders, 1)
}

func TestCachedGroupsSurviveUnderlyingChanges(t *testing.T) {
	ctx := context.Background()
	enforcement := enforcementstore.NewInMemory()
	offenders := offenderstore.NewInMemory()
	agency := domain.NewAgencyID()
	offender := domain.NewOffenderID()

	seedCase(t, enforcement, agency, offender, "C-1")
	seedCase(t, enforcement, agency, offender, "C-1")

	detector := NewDetector(enforcement, offenders, WithCache(cache.NewMemory(), time.Minute))
	groups, err := detector.FindDuplicateCases(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	// A new duplicate appears but the cached listing is still served.
	seedCase(t, enforcement, agency, offender, "C-2")
	seedCase(t, enforcement, agency, offender, "C-2")
	groups, err = detector.FindDuplicateCases(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	// Manual invalidation exposes the new group.
	require.NoError(t, detector.Invalidate(ctx))
	groups, err = detector.FindDuplicateCases(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
}
