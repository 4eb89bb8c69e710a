package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/keshsri/tinylinker/internal/attributes"
	"github.com/keshsri/tinylinker/internal/config"
	"github.com/keshsri/tinylinker/internal/domain"
	"github.com/keshsri/tinylinker/internal/geo"
	"github.com/keshsri/tinylinker/internal/repository"
	"github.com/keshsri/tinylinker/pkg/logger"
	"github.com/keshsri/tinylinker/pkg/timeutil"
)

// DefaultClickRetentionDays applies when the configuration leaves retention unset
const DefaultClickRetentionDays = 15

// Locator resolves a client IP to a coarse location and never fails
type Locator interface {
	Resolve(ctx context.Context, ip string) geo.Location
}

// AnalyticsService records clicks and aggregates them.
// Nothing here returns an error: failures are logged and reported as
// booleans or a degraded summary.
type AnalyticsService interface {
	// RecordClick persists one click event and reports whether it was stored
	RecordClick(ctx context.Context, code string, visit domain.Visit) bool

	// IncrementClicks adds one to the link's counter and reports success
	IncrementClicks(ctx context.Context, code string) bool

	// Aggregate summarizes the events of code with Timestamp >= since.
	// since <= 0 covers every stored event.
	Aggregate(ctx context.Context, code string, since int64) *domain.AnalyticsSummary
}

type analyticsService struct {
	clicks        repository.ClickRepository
	links         repository.LinkRepository
	locator       Locator
	hasher        *attributes.IPHasher
	retentionDays int
	storeTimeout  time.Duration
	logger        *logger.Logger

	now   func() int64
	newID func() string
}

// NewAnalyticsService creates the click analytics service
func NewAnalyticsService(
	clicks repository.ClickRepository,
	links repository.LinkRepository,
	locator Locator,
	hasher *attributes.IPHasher,
	cfg *config.Config,
	logger *logger.Logger,
) AnalyticsService {
	retention := cfg.ClickRetentionDays
	if retention <= 0 {
		retention = DefaultClickRetentionDays
	}

	return &analyticsService{
		clicks:        clicks,
		links:         links,
		locator:       locator,
		hasher:        hasher,
		retentionDays: retention,
		storeTimeout:  cfg.StoreTimeout,
		logger:        logger,
		now:           timeutil.Now,
		newID:         uuid.NewString,
	}
}

// RecordClick derives the click attributes from visit and inserts the event.
// Retried calls may store duplicates.
func (s *analyticsService) RecordClick(ctx context.Context, code string, visit domain.Visit) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered while recording click", "code", code, "panic", r)
			ok = false
		}
	}()

	location := s.locator.Resolve(ctx, visit.ClientIP)
	ua := attributes.ClassifyUserAgent(visit.UserAgent)

	referrer := visit.Referer
	if referrer == "" {
		referrer = domain.DirectReferrer
	}

	timestamp := s.now()
	event := &domain.ClickEvent{
		ID:        s.newID(),
		Code:      code,
		Timestamp: timestamp,
		IPHash:    s.hasher.HashOn(visit.ClientIP, timeutil.FromMillis(timestamp)),
		Country:   location.Country,
		Region:    location.Region,
		City:      location.City,
		Device:    ua.Device,
		Browser:   ua.Browser,
		OS:        ua.OS,
		Referrer:  referrer,
		ExpiresAt: timeutil.AddDays(timestamp, s.retentionDays),
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.clicks.Put(storeCtx, event); err != nil {
		s.logger.Error("Failed to record click", "error", err, "code", code)
		return false
	}

	s.logger.Debug("Click recorded", "code", code, "country", event.Country, "device", event.Device)
	return true
}

// IncrementClicks bumps the counter atomically in the store
func (s *analyticsService) IncrementClicks(ctx context.Context, code string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered while incrementing clicks", "code", code, "panic", r)
			ok = false
		}
	}()

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	count, err := s.links.IncrementClicks(storeCtx, code, 1, s.now())
	if err != nil {
		s.logger.Warn("Failed to increment click count", "error", err, "code", code)
		return false
	}

	s.logger.Debug("Click count incremented", "code", code, "clicks", count)
	return true
}

// Aggregate builds frequency tables, the hourly series and the most recent clicks
func (s *analyticsService) Aggregate(ctx context.Context, code string, since int64) *domain.AnalyticsSummary {
	summary := domain.NewAnalyticsSummary(code)

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	events, err := s.clicks.QueryByCode(storeCtx, code, since)
	if err != nil {
		s.logger.Error("Failed to load click events", "error", err, "code", code)
		summary.Error = "failed to load click events"
		return summary
	}
	if len(events) == 0 {
		return summary
	}

	visitors := make(map[string]struct{})
	hours := make(map[int64]int64)
	timeRange := &domain.TimeRange{First: events[0].Timestamp, Last: events[0].Timestamp}

	for _, e := range events {
		summary.TotalClicks++
		summary.ClicksByCountry[e.Country]++
		summary.ClicksByDevice[e.Device]++
		summary.ClicksByBrowser[e.Browser]++
		summary.ClicksByOS[e.OS]++
		summary.ClicksByReferrer[e.Referrer]++
		hours[timeutil.HourBoundary(e.Timestamp)]++
		visitors[e.IPHash] = struct{}{}

		if e.Timestamp < timeRange.First {
			timeRange.First = e.Timestamp
		}
		if e.Timestamp > timeRange.Last {
			timeRange.Last = e.Timestamp
		}
	}

	summary.UniqueVisitors = int64(len(visitors))
	summary.TimeRange = timeRange

	for hour, clicks := range hours {
		summary.ClicksByHour = append(summary.ClicksByHour, domain.HourlyClicks{Hour: hour, Clicks: clicks})
	}
	sort.Slice(summary.ClicksByHour, func(i, j int) bool {
		return summary.ClicksByHour[i].Hour < summary.ClicksByHour[j].Hour
	})

	summary.RecentClicks = recentClicks(events, domain.RecentClicksLimit)
	return summary
}

// recentClicks projects the newest limit events, newest first
func recentClicks(events []domain.ClickEvent, limit int) []domain.RecentClick {
	sorted := make([]domain.ClickEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp > sorted[j].Timestamp })

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]domain.RecentClick, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, domain.RecentClick{
			Timestamp: e.Timestamp,
			Country:   e.Country,
			City:      e.City,
			Device:    e.Device,
			Browser:   e.Browser,
			OS:        e.OS,
			Referrer:  e.Referrer,
		})
	}
	return out
}

func (s *analyticsService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// ParseTimeRange parses a look-back window such as "1h", "7d" or "2w".
// The empty string means all time and yields 0.
func ParseTimeRange(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	invalid := domain.NewValidationError(domain.ErrInvalidInput,
		fmt.Sprintf("timeRange %q must be a positive count of h, d or w", value))
	if len(value) < 2 {
		return 0, invalid
	}

	n, err := strconv.ParseInt(value[:len(value)-1], 10, 64)
	if err != nil || n <= 0 {
		return 0, invalid
	}

	var unit time.Duration
	switch value[len(value)-1] {
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	default:
		return 0, invalid
	}

	if n > math.MaxInt64/int64(unit) {
		return 0, invalid
	}

	return time.Duration(n) * unit, nil
}
