package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"prosreg/internal/legislation/models"
	"prosreg/internal/legislation/store"
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

func intPtr(v int) *int { return &v }

func (s *ResolverSuite) TestRejectsEmptyTitle() {
	_, err := s.resolver.ResolveOrCreate(s.ctx, models.Ref{Title: "  "})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ResolverSuite) TestCreatesOnFirstSighting() {
	id, err := s.resolver.ResolveOrCreate(s.ctx, models.Ref{
		Title: "Environmental Protection Act",
		Year:  intPtr(1990),
		Type:  "Act",
	})
	s.Require().NoError(err)

	created, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("Environmental Protection Act", created.Title)
	s.Equal(models.TypeAct, created.Type)
	s.Require().NotNil(created.Year)
	s.Equal(1990, *created.Year)
}

func (s *ResolverSuite) TestExactMatchIsCaseInsensitive() {
	first, err := s.resolver.ResolveOrCreate(s.ctx, models.Ref{
		Title: "Food Safety Act",
		Year:  intPtr(1990),
	})
	s.Require().NoError(err)

	second, err := s.resolver.ResolveOrCreate(s.ctx, models.Ref{
		Title: "FOOD SAFETY ACT",
		Year:  intPtr(1990),
	})
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *ResolverSuite) TestFuzzyMatchAcceptsTitleVariant() {
	first, err := s.resolver.ResolveOrCreate(s.ctx, models.Ref{
		Title: "Health and Safety at Work etc. Act",
		Year:  intPtr(1974),
	})
	s.Require().NoError(err)

	// Agency sources append the year and drop "etc."; the record must not
	// be duplicated for every surface form.
	second, err := s.resolver.ResolveOrCreate(s.ctx, models.Ref{
		Title: "HEALTH AND SAFETY AT WORK ACT 1974",
		Year:  intPtr(1974),
	})
	s.Require().NoError(err)
	s.Equal(first, second)

	candidates, err := s.store.ListCandidates(s.ctx, nil)
	s.Require().NoError(err)
	s.Len(candidates, 1)
}

func (s *ResolverSuite) TestFuzzyMatchIncludesYearlessCandidates() {
	first, err := s.resolver.ResolveOrCreate(s.ctx, models.Ref{
		Title: "Control of Substances Hazardous to Health Regulations",
	})
	s.Require().NoError(err)

	second, err := s.resolver.ResolveOrCreate(s.ctx, models.Ref{
		Title: "Control of Substances Hazardous to Health Regulation",
		Year:  intPtr(2002),
	})
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *ResolverSuite) TestDifferentYearsStayDistinct() {
	first, err := s.resolver.ResolveOrCreate(s.ctx, models.Ref{
		Title: "Building Regulations",
		Year:  intPtr(2000),
	})
	s.Require().NoError(err)

	second, err := s.resolver.ResolveOrCreate(s.ctx, models.Ref{
		Title: "Building Regulations",
		Year:  intPtr(2010),
	})
	s.Require().NoError(err)
	s.NotEqual(first, second)
}

func (s *ResolverSuite) TestNumberDistinguishesInstruments() {
	first, err := s.resolver.ResolveOrCreate(s.ctx, models.Ref{
		Title:  "Waste Regulations",
		Year:   intPtr(2011),
		Number: intPtr(988),
		Type:   "regulation",
	})
	s.Require().NoError(err)

	second, err := s.resolver.ResolveOrCreate(s.ctx, models.Ref{
		Title:  "Waste Regulations",
		Year:   intPtr(2011),
		Number: intPtr(989),
		Type:   "regulation",
	})
	s.Require().NoError(err)
	s.NotEqual(first, second)
}

func (s *ResolverSuite) TestResolveBatch() {
	refs := []models.Ref{
		{Title: "Food Safety Act", Year: intPtr(1990)},
		{Title: "Food Hygiene Regulations", Year: intPtr(2006), Type: "regulation"},
	}
	resolved, err := s.resolver.ResolveBatch(s.ctx, refs)
	s.Require().NoError(err)
	s.Len(resolved, 2)
	s.Contains(resolved, "Food Safety Act")
	s.Contains(resolved, "Food Hygiene Regulations")
	s.NotEqual(resolved["Food Safety Act"], resolved["Food Hygiene Regulations"])
}

func (s *ResolverSuite) TestResolveBatchFailsFast() {
	refs := []models.Ref{
		{Title: "Food Safety Act", Year: intPtr(1990)},
		{Title: "   "},
		{Title: "Never Resolved Act"},
	}
	resolved, err := s.resolver.ResolveBatch(s.ctx, refs)
	s.Require().Error(err)
	s.Nil(resolved)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.store.FindExact(s.ctx, "Never Resolved Act", nil, nil)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// racingStore fails the first Create with a conflict after inserting the
// concurrent winner's row.
type racingStore struct {
	store.Store
	winner *models.Legislation
	raced  bool
}

func (r *racingStore) Create(ctx context.Context, legislation *models.Legislation) error {
	if !r.raced {
		r.raced = true
		winner := *legislation
		winner.ID = domain.NewLegislationID()
		r.winner = &winner
		if err := r.Store.Create(ctx, &winner); err != nil {
			return err
		}
		return sentinel.ErrConflict
	}
	return r.Store.Create(ctx, legislation)
}

func (s *ResolverSuite) TestCreationRaceRecoversWithSingleRetry() {
	racing := &racingStore{Store: s.store}
	resolver := NewResolver(racing)

	id, err := resolver.ResolveOrCreate(s.ctx, models.Ref{
		Title: "Contested Act",
		Year:  intPtr(2001),
	})
	s.Require().NoError(err)
	s.Require().NotNil(racing.winner)
	s.Equal(racing.winner.ID, id)
}
