//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"prosreg/internal/offender/models"
	"prosreg/pkg/domain"
	"prosreg/pkg/platform/sentinel"
	"prosreg/pkg/testutil/containers"
)

func setupPostgres(t *testing.T) (*Postgres, context.Context) {
	t.Helper()
	pc := containers.NewPostgresContainer(t, "../../../migrations")
	t.Cleanup(func() { _ = pc.DB.Close() })
	return NewPostgres(pc.DB), context.Background()
}

func TestPostgresCreateAndFind(t *testing.T) {
	store, ctx := setupPostgres(t)

	offender := models.New(domain.NewOffenderID(), models.Attributes{
		Name:            "ACME Ltd",
		Postcode:        "AB1 2CD",
		IndustrySectors: []string{"manufacturing"},
	}, time.Now().UTC())
	offender.AgencyIDs = []domain.AgencyID{domain.NewAgencyID()}
	require.NoError(t, store.Create(ctx, offender))

	found, err := store.FindByID(ctx, offender.ID)
	require.NoError(t, err)
	require.Equal(t, "acme limited", found.NormalizedName)
	require.Equal(t, offender.AgencyIDs, found.AgencyIDs)
	require.Equal(t, []string{"manufacturing"}, found.IndustrySectors)

	found, err = store.FindByNormalizedName(ctx, "acme limited", "ab1 2cd")
	require.NoError(t, err)
	require.Equal(t, offender.ID, found.ID)

	_, err = store.FindByNormalizedName(ctx, "acme limited", "ZZ9 9ZZ")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresNormalizedNameUniqueness(t *testing.T) {
	store, ctx := setupPostgres(t)

	first := models.New(domain.NewOffenderID(), models.Attributes{Name: "ACME Ltd"}, time.Now().UTC())
	require.NoError(t, store.Create(ctx, first))

	// Same normalized name, no registration number: partial index fires.
	second := models.New(domain.NewOffenderID(), models.Attributes{Name: "acme limited"}, time.Now().UTC())
	require.ErrorIs(t, store.Create(ctx, second), sentinel.ErrConflict)

	// A registered offender with the same name is allowed.
	registered := models.New(domain.NewOffenderID(), models.Attributes{
		Name:               "ACME Limited",
		RegistrationNumber: "01234567",
	}, time.Now().UTC())
	require.NoError(t, store.Create(ctx, registered))

	// But its registration number is globally unique.
	clash := models.New(domain.NewOffenderID(), models.Attributes{
		Name:               "Different Name Limited",
		RegistrationNumber: "01234567",
	}, time.Now().UTC())
	require.ErrorIs(t, store.Create(ctx, clash), sentinel.ErrConflict)
}

func TestPostgresConcurrentCreateRace(t *testing.T) {
	store, ctx := setupPostgres(t)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			offender := models.New(domain.NewOffenderID(), models.Attributes{Name: "Contested Name Limited"}, time.Now().UTC())
			err := store.Create(ctx, offender)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case err == sentinel.ErrConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, created, "exactly one writer wins the race")
	require.Equal(t, writers-1, conflicts)
}

func TestPostgresSearchSimilar(t *testing.T) {
	store, ctx := setupPostgres(t)

	target := models.New(domain.NewOffenderID(), models.Attributes{Name: "Northern Widget Works Limited"}, time.Now().UTC())
	require.NoError(t, store.Create(ctx, target))
	other := models.New(domain.NewOffenderID(), models.Attributes{Name: "Completely Unrelated Trading"}, time.Now().UTC())
	require.NoError(t, store.Create(ctx, other))

	candidates, err := store.SearchSimilar(ctx, "northern widgett works limited", 10)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	require.Equal(t, target.ID, candidates[0].ID)
}

func TestPostgresUpdateAndDelete(t *testing.T) {
	store, ctx := setupPostgres(t)

	offender := models.New(domain.NewOffenderID(), models.Attributes{Name: "ACME Ltd"}, time.Now().UTC())
	require.NoError(t, store.Create(ctx, offender))

	offender.TotalCases = 3
	offender.TotalFines = 150000
	require.NoError(t, store.Update(ctx, offender))

	found, err := store.FindByID(ctx, offender.ID)
	require.NoError(t, err)
	require.Equal(t, 3, found.TotalCases)
	require.Equal(t, int64(150000), found.TotalFines)

	require.NoError(t, store.Delete(ctx, offender.ID))
	_, err = store.FindByID(ctx, offender.ID)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
	require.ErrorIs(t, store.Delete(ctx, offender.ID), sentinel.ErrNotFound)
}
