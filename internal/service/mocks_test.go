package service

import (
	"context"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/keshsri/tinylinker/internal/domain"
	"github.com/keshsri/tinylinker/internal/geo"
)

// MockLinkRepository is a mock implementation of repository.LinkRepository
type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) Get(ctx context.Context, code string) (*domain.ShortLink, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortLink), args.Error(1)
}

func (m *MockLinkRepository) Create(ctx context.Context, link *domain.ShortLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockLinkRepository) IncrementClicks(ctx context.Context, code string, delta int64, at int64) (int64, error) {
	args := m.Called(ctx, code, delta, at)
	return args.Get(0).(int64), args.Error(1)
}

// MockClickRepository is a mock implementation of repository.ClickRepository
type MockClickRepository struct {
	mock.Mock
}

func (m *MockClickRepository) Put(ctx context.Context, event *domain.ClickEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockClickRepository) QueryByCode(ctx context.Context, code string, since int64) ([]domain.ClickEvent, error) {
	args := m.Called(ctx, code, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ClickEvent), args.Error(1)
}

// MockAnalyticsService is a mock implementation of AnalyticsService
type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) RecordClick(ctx context.Context, code string, visit domain.Visit) bool {
	return m.Called(ctx, code, visit).Bool(0)
}

func (m *MockAnalyticsService) IncrementClicks(ctx context.Context, code string) bool {
	return m.Called(ctx, code).Bool(0)
}

func (m *MockAnalyticsService) Aggregate(ctx context.Context, code string, since int64) *domain.AnalyticsSummary {
	return m.Called(ctx, code, since).Get(0).(*domain.AnalyticsSummary)
}

// stubLocator returns a fixed location and counts calls
type stubLocator struct {
	loc   geo.Location
	calls int32
}

func (s *stubLocator) Resolve(_ context.Context, _ string) geo.Location {
	atomic.AddInt32(&s.calls, 1)
	return s.loc
}

// sequenceGenerator hands out codes in order and records requested lengths
type sequenceGenerator struct {
	codes   []string
	lengths []int
}

func (g *sequenceGenerator) generate(length int) (string, error) {
	g.lengths = append(g.lengths, length)
	code := g.codes[0]
	g.codes = g.codes[1:]
	return code, nil
}
