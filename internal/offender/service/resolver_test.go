package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"prosreg/internal/offender/models"
	"prosreg/internal/offender/store"
	"prosreg/pkg/domain"
	dErrors "prosreg/pkg/domain-errors"
	"prosreg/pkg/platform/sentinel"
	"prosreg/pkg/requestcontext"
)

type ResolverSuite struct {
	suite.Suite
	store    *store.InMemory
	resolver *Resolver
	ctx      context.Context
}

func (s *ResolverSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.resolver = NewResolver(s.store)
	s.ctx = requestcontext.WithTime(context.Background(), time.Now())
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) TestRejectsEmptyName() {
	_, err := s.resolver.ResolveOrCreate(s.ctx, models.Attributes{Name: "   "})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ResolverSuite) TestCreatesOnFirstSighting() {
	id, err := s.resolver.ResolveOrCreate(s.ctx, models.Attributes{
		Name:     "ACME Ltd",
		Postcode: "AB1 2CD",
	})
	s.Require().NoError(err)

	created, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("acme limited", created.NormalizedName)
	s.Equal("AB1 2CD", created.Postcode)
}

func (s *ResolverSuite) TestResolveIsIdempotent() {
	first, err := s.resolver.ResolveOrCreate(s.ctx, models.Attributes{Name: "ACME Ltd", Postcode: "AB1 2CD"})
	s.Require().NoError(err)

	// Different surface form, identical normalization.
	second, err := s.resolver.ResolveOrCreate(s.ctx, models.Attributes{Name: "ACME LIMITED", Postcode: "ab1 2cd"})
	s.Require().NoError(err)

	s.Equal(first, second)
	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1, "resolving equivalent attributes must not create a second row")
}

func (s *ResolverSuite) TestExactMatchWithNoPostcodes() {
	first, err := s.resolver.ResolveOrCreate(s.ctx, models.Attributes{Name: "Sole Trader"})
	s.Require().NoError(err)
	second, err := s.resolver.ResolveOrCreate(s.ctx, models.Attributes{Name: "sole trader"})
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *ResolverSuite) TestFuzzyMatchAcceptsCloseName() {
	first, err := s.resolver.ResolveOrCreate(s.ctx, models.Attributes{
		Name:     "Northern Widget Works Limited",
		Postcode: "NW1 1AA",
	})
	s.Require().NoError(err)

	// Typo in one token: token sets differ but edit similarity is high.
	second, err := s.resolver.ResolveOrCreate(s.ctx, models.Attributes{
		Name:     "Northern Widgett Works Limited",
		Postcode: "NW1 1AA",
	})
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *ResolverSuite) TestPostcodeConflictPreventsFuzzyMatch() {
	first, err := s.resolver.ResolveOrCreate(s.ctx, models.Attributes{
		Name:     "Branch Bakeries Limited",
		Postcode: "AA1 1AA",
	})
	s.Require().NoError(err)

	// Same name, different site: must be a new legal entity... except the
	// normalized-name invariant rejects the second unregistered row, which
	// surfaces as a conflict rather than a silent duplicate.
	_, err = s.resolver.ResolveOrCreate(s.ctx, models.Attributes{
		Name:     "Branch Bakeries Ltd",
		Postcode: "ZZ9 9ZZ",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	all, listErr := s.store.ListAll(s.ctx)
	s.Require().NoError(listErr)
	s.Len(all, 1)
	s.Equal(first, all[0].ID)
}

func (s *ResolverSuite) TestDistinctNamesCreateDistinctOffenders() {
	first, err := s.resolver.ResolveOrCreate(s.ctx, models.Attributes{Name: "Northern Chemicals Limited"})
	s.Require().NoError(err)
	second, err := s.resolver.ResolveOrCreate(s.ctx, models.Attributes{Name: "Southside Bakery Limited"})
	s.Require().NoError(err)
	s.NotEqual(first, second)
}

func (s *ResolverSuite) TestShortNamesSkipFuzzyLookup() {
	first, err := s.resolver.ResolveOrCreate(s.ctx, models.Attributes{Name: "AB", Postcode: "AA1 1AA"})
	s.Require().NoError(err)
	second, err := s.resolver.ResolveOrCreate(s.ctx, models.Attributes{Name: "AC", Postcode: "AA2 2BB"})
	s.Require().NoError(err)
	s.NotEqual(first, second)
}

func (s *ResolverSuite) TestRegistrationNumberUniqueness() {
	_, err := s.resolver.ResolveOrCreate(s.ctx, models.Attributes{
		Name:               "Registered Co Limited",
		RegistrationNumber: "01234567",
	})
	s.Require().NoError(err)

	offenders, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	seen := map[string]bool{}
	for _, o := range offenders {
		if o.RegistrationNumber == "" {
			continue
		}
		s.False(seen[o.RegistrationNumber], "registration number %s duplicated", o.RegistrationNumber)
		seen[o.RegistrationNumber] = true
	}
}

// racingStore simulates a concurrent resolver winning the creation race: the
// first Create fails with a conflict after inserting the winner's row.
type racingStore struct {
	store.Store
	winner *models.Offender
	raced  bool
}

func (r *racingStore) Create(ctx context.Context, offender *models.Offender) error {
	if !r.raced {
		r.raced = true
		winner := *offender
		winner.ID = domain.NewOffenderID()
		r.winner = &winner
		if err := r.Store.Create(ctx, &winner); err != nil {
			return err
		}
		return sentinel.ErrConflict
	}
	return r.Store.Create(ctx, offender)
}

func (s *ResolverSuite) TestCreationRaceRecoversWithSingleRetry() {
	racing := &racingStore{Store: s.store}
	resolver := NewResolver(racing)

	id, err := resolver.ResolveOrCreate(s.ctx, models.Attributes{
		Name:     "Contested Name Limited",
		Postcode: "CC1 1CC",
	})
	s.Require().NoError(err)
	s.Require().NotNil(racing.winner)
	s.Equal(racing.winner.ID, id, "loser must return the winner's ID")

	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

// failingStore returns a storage error on every call.
type failingStore struct {
	store.Store
}

var errStorage = errors.New("storage down")

func (f *failingStore) FindByNormalizedName(context.Context, string, string) (*models.Offender, error) {
	return nil, errStorage
}

func (s *ResolverSuite) TestStorageFailureSurfacesAsInternal() {
	resolver := NewResolver(&failingStore{Store: s.store})
	_, err := resolver.ResolveOrCreate(s.ctx, models.Attributes{Name: "Anything Limited"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
