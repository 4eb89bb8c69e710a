// Package repotest holds the behaviour every repository backend must share.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/keshsri/tinylinker/internal/domain"
	"github.com/keshsri/tinylinker/internal/repository"
)

// Factory returns a fresh, empty store for one test
type Factory func(t *testing.T) *repository.Store

// StoreSuite exercises a backend through the repository interfaces
type StoreSuite struct {
	suite.Suite
	New   Factory
	store *repository.Store
	ctx   context.Context

	// Concurrent controls the parallel create/increment cases.
	// Backends that serialize on one connection may still enable it.
	Concurrent bool
}

// Run executes the contract against factory
func Run(t *testing.T, factory Factory, concurrent bool) {
	suite.Run(t, &StoreSuite{New: factory, Concurrent: concurrent})
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.New(s.T())
}

func (s *StoreSuite) TearDownTest() {
	if s.store.Close != nil {
		s.NoError(s.store.Close())
	}
}

func newLink(code string) *domain.ShortLink {
	return &domain.ShortLink{
		Code:        code,
		OriginalURL: "https://example.com/" + code,
		OwnerID:     domain.AnonymousOwner,
		CreatedAt:   1_700_000_000_000,
		IsSafe:      true,
	}
}

func (s *StoreSuite) TestGetMissing() {
	_, err := s.store.Links.Get(s.ctx, "nope")
	s.ErrorIs(err, domain.ErrURLNotFound)
	s.NotErrorIs(err, domain.ErrStorageUnavailable)
}

func (s *StoreSuite) TestCreateAndGet() {
	expires := int64(1_700_000_600_000)
	link := newLink("abc123")
	link.ExpiresAt = &expires
	link.IsCustomAlias = true

	s.Require().NoError(s.store.Links.Create(s.ctx, link))

	got, err := s.store.Links.Get(s.ctx, "abc123")
	s.Require().NoError(err)
	s.Equal(link.OriginalURL, got.OriginalURL)
	s.Equal(domain.AnonymousOwner, got.OwnerID)
	s.Equal(link.CreatedAt, got.CreatedAt)
	s.Require().NotNil(got.ExpiresAt)
	s.Equal(expires, *got.ExpiresAt)
	s.True(got.IsCustomAlias)
	s.True(got.IsSafe)
	s.Zero(got.ClickCount)
	s.Nil(got.LastClickedAt)
}

func (s *StoreSuite) TestCreateConflictKeepsOriginal() {
	s.Require().NoError(s.store.Links.Create(s.ctx, newLink("taken")))

	other := newLink("taken")
	other.OriginalURL = "https://other.example"
	s.ErrorIs(s.store.Links.Create(s.ctx, other), domain.ErrAliasTaken)

	got, err := s.store.Links.Get(s.ctx, "taken")
	s.Require().NoError(err)
	s.Equal("https://example.com/taken", got.OriginalURL)
}

func (s *StoreSuite) TestIncrementClicks() {
	s.Require().NoError(s.store.Links.Create(s.ctx, newLink("hits")))

	n, err := s.store.Links.IncrementClicks(s.ctx, "hits", 1, 1_700_000_001_000)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	n, err = s.store.Links.IncrementClicks(s.ctx, "hits", 1, 1_700_000_002_000)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	got, err := s.store.Links.Get(s.ctx, "hits")
	s.Require().NoError(err)
	s.Equal(int64(2), got.ClickCount)
	s.Require().NotNil(got.LastClickedAt)
	s.Equal(int64(1_700_000_002_000), *got.LastClickedAt)
}

func (s *StoreSuite) TestIncrementMissing() {
	_, err := s.store.Links.IncrementClicks(s.ctx, "ghost", 1, 1)
	s.ErrorIs(err, domain.ErrURLNotFound)

	_, err = s.store.Links.Get(s.ctx, "ghost")
	s.ErrorIs(err, domain.ErrURLNotFound)
}

func (s *StoreSuite) TestConcurrentIncrementsAreNotLost() {
	if !s.Concurrent {
		s.T().Skip("backend does not run concurrent cases")
	}
	s.Require().NoError(s.store.Links.Create(s.ctx, newLink("race")))

	const workers = 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.store.Links.IncrementClicks(s.ctx, "race", 1, int64(i))
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	got, err := s.store.Links.Get(s.ctx, "race")
	s.Require().NoError(err)
	s.Equal(int64(workers), got.ClickCount)
}

func (s *StoreSuite) TestConcurrentCreateHasOneWinner() {
	if !s.Concurrent {
		s.T().Skip("backend does not run concurrent cases")
	}

	const workers = 10
	var wins, conflicts int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			link := newLink("alias")
			link.OriginalURL = fmt.Sprintf("https://example.com/%d", i)
			err := s.store.Links.Create(s.ctx, link)
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, domain.ErrAliasTaken):
				atomic.AddInt32(&conflicts, 1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins)
	s.Equal(int32(workers-1), conflicts)
}

func (s *StoreSuite) TestClicksQueryByCode() {
	put := func(code string, ts int64) {
		s.Require().NoError(s.store.Clicks.Put(s.ctx, &domain.ClickEvent{
			ID:        uuid.NewString(),
			Code:      code,
			Timestamp: ts,
			IPHash:    "h",
			Country:   "Unknown",
			Device:    "desktop",
			Referrer:  domain.DirectReferrer,
			ExpiresAt: ts + 1_000_000,
		}))
	}

	put("a", 3_000)
	put("a", 1_000)
	put("a", 1_000)
	put("b", 2_000)

	all, err := s.store.Clicks.QueryByCode(s.ctx, "a", 0)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(int64(1_000), all[0].Timestamp)
	s.Equal(int64(3_000), all[2].Timestamp)
	s.Equal("desktop", all[0].Device)

	recent, err := s.store.Clicks.QueryByCode(s.ctx, "a", 2_000)
	s.Require().NoError(err)
	s.Len(recent, 1)

	none, err := s.store.Clicks.QueryByCode(s.ctx, "missing", 0)
	s.Require().NoError(err)
	s.Empty(none)
}
