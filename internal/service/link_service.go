package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/keshsri/tinylinker/internal/cache"
	"github.com/keshsri/tinylinker/internal/config"
	"github.com/keshsri/tinylinker/internal/domain"
	"github.com/keshsri/tinylinker/internal/repository"
	"github.com/keshsri/tinylinker/internal/shortener"
	"github.com/keshsri/tinylinker/pkg/logger"
	"github.com/keshsri/tinylinker/pkg/timeutil"
	"github.com/keshsri/tinylinker/pkg/validator"
)

// DefaultMaxAttempts is how many 6-character candidates are checked before
// falling back to an unchecked 8-character code
const DefaultMaxAttempts = 3

// AllocateRequest describes a link to create
type AllocateRequest struct {
	URL              string
	CustomAlias      string // empty means generate a code
	ExpiresInSeconds *int64 // nil means the link never expires
}

// AllocateResult is a persisted link plus its public URL
type AllocateResult struct {
	Link     *domain.ShortLink
	ShortURL string
}

// LinkService allocates short codes and resolves them back to URLs
type LinkService interface {
	// Allocate validates req and persists a new link owned by ownerID
	Allocate(ctx context.Context, req AllocateRequest, ownerID string) (*AllocateResult, error)

	// GenerateUniqueCode returns a code not known to the store at check time
	GenerateUniqueCode(ctx context.Context, maxAttempts int) (string, error)

	// Lookup reads a link without side effects. Expiry is not considered.
	Lookup(ctx context.Context, code string) (*domain.ShortLink, error)

	// Resolve returns the destination for a redirect and records the visit
	Resolve(ctx context.Context, code string, visit domain.Visit) (string, error)

	// ShortURL builds the public URL of code
	ShortURL(code string) string
}

// linkService implements the LinkService interface
type linkService struct {
	links     repository.LinkRepository
	analytics AnalyticsService
	cache     cache.Cache
	cfg       *config.Config
	logger    *logger.Logger

	generate func(length int) (string, error)
	now      func() int64
}

// NewLinkService creates a new link service with dependencies injected.
// cache may be nil.
func NewLinkService(
	links repository.LinkRepository,
	analytics AnalyticsService,
	cache cache.Cache,
	cfg *config.Config,
	logger *logger.Logger,
) LinkService {
	return &linkService{
		links:     links,
		analytics: analytics,
		cache:     cache,
		cfg:       cfg,
		logger:    logger,
		generate:  shortener.Generate,
		now:       timeutil.Now,
	}
}

// Allocate creates a new short link.
// Input is fully validated before the store is touched.
func (s *linkService) Allocate(ctx context.Context, req AllocateRequest, ownerID string) (*AllocateResult, error) {
	if err := validator.ValidateURL(req.URL); err != nil {
		s.logger.Warn("Invalid URL provided", "url", req.URL, "error", err)
		return nil, domain.NewValidationError(domain.ErrInvalidURL, err.Error())
	}

	createdAt := s.now()
	if ttl := req.ExpiresInSeconds; ttl != nil {
		if *ttl <= 0 {
			return nil, domain.NewValidationError(domain.ErrInvalidInput, "expiresInSeconds must be positive")
		}
		if *ttl > timeutil.MaxSecondsAfter(createdAt) {
			return nil, domain.NewValidationError(domain.ErrInvalidInput, "expiresInSeconds is too large")
		}
	}

	custom := req.CustomAlias != ""
	if custom && !shortener.IsValidFormat(req.CustomAlias) {
		return nil, domain.ErrInvalidAlias
	}

	if ownerID == "" {
		ownerID = domain.AnonymousOwner
	}

	var code string
	if custom {
		if _, err := s.Lookup(ctx, req.CustomAlias); err == nil {
			return nil, domain.ErrAliasTaken
		} else if !errors.Is(err, domain.ErrURLNotFound) {
			return nil, err
		}
		code = req.CustomAlias
	} else {
		var err error
		code, err = s.GenerateUniqueCode(ctx, DefaultMaxAttempts)
		if err != nil {
			s.logger.Error("Failed to generate short code", "error", err)
			return nil, err
		}
	}

	link := &domain.ShortLink{
		Code:          code,
		OriginalURL:   req.URL,
		OwnerID:       ownerID,
		CreatedAt:     createdAt,
		IsCustomAlias: custom,
		IsSafe:        true,
	}
	if req.ExpiresInSeconds != nil {
		expiresAt := timeutil.AddSeconds(createdAt, *req.ExpiresInSeconds)
		link.ExpiresAt = &expiresAt
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.links.Create(storeCtx, link); err != nil {
		switch {
		case errors.Is(err, domain.ErrAliasTaken) && custom:
			s.logger.Info("Custom alias lost creation race", "code", code)
			return nil, domain.ErrAliasTaken
		case errors.Is(err, domain.ErrAliasTaken):
			s.logger.Warn("Generated code collided on create", "code", code)
			return nil, fmt.Errorf("generated code %s: %w", code, domain.ErrAliasTaken)
		default:
			s.logger.Error("Failed to create link", "error", err, "code", code)
			return nil, asStorageError("create link", err)
		}
	}

	s.logger.Info("URL shortened successfully",
		"code", code,
		"custom", custom,
		"expires_at", link.ExpiresAt,
	)

	return &AllocateResult{Link: link, ShortURL: s.ShortURL(code)}, nil
}

// GenerateUniqueCode draws up to maxAttempts 6-character candidates and returns
// the first one the store does not know. Once they are exhausted it returns an
// 8-character code without checking it.
func (s *linkService) GenerateUniqueCode(ctx context.Context, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		code, err := s.generate(shortener.DefaultLength)
		if err != nil {
			return "", domain.NewInternalError(fmt.Errorf("generate short code: %w", err))
		}

		_, err = s.Lookup(ctx, code)
		if errors.Is(err, domain.ErrURLNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}

		s.logger.Warn("Short code collision detected, retrying",
			"code", code,
			"attempt", attempt,
		)
	}

	code, err := s.generate(shortener.FallbackLength)
	if err != nil {
		return "", domain.NewInternalError(fmt.Errorf("generate short code: %w", err))
	}
	return code, nil
}

// Lookup reads a link straight from the store
func (s *linkService) Lookup(ctx context.Context, code string) (*domain.ShortLink, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	link, err := s.links.Get(storeCtx, code)
	if err != nil {
		if errors.Is(err, domain.ErrURLNotFound) {
			return nil, err
		}
		s.logger.Error("Failed to read link", "error", err, "code", code)
		return nil, asStorageError("get link", err)
	}
	return link, nil
}

// Resolve looks the link up through the cache, refuses expired links and
// then records the click. Analytics run detached from the caller's
// cancellation and their failures never fail the redirect.
func (s *linkService) Resolve(ctx context.Context, code string, visit domain.Visit) (string, error) {
	link, err := s.cachedLookup(ctx, code)
	if err != nil {
		return "", err
	}

	if link.IsExpired(s.now()) {
		s.logger.Info("Attempted to access expired URL", "code", code)
		s.evict(ctx, code)
		return "", domain.ErrURLExpired
	}

	detached := context.WithoutCancel(ctx)
	recorded := s.analytics.RecordClick(detached, code, visit)
	counted := s.analytics.IncrementClicks(detached, code)

	s.logger.Info("URL accessed", "code", code, "click_recorded", recorded, "count_incremented", counted)
	return link.OriginalURL, nil
}

// ShortURL joins the configured base URL and code
func (s *linkService) ShortURL(code string) string {
	return s.cfg.BaseURL + "/" + code
}

// cachedLookup implements cache-aside in front of Lookup.
// Cache failures fall through to the store.
func (s *linkService) cachedLookup(ctx context.Context, code string) (*domain.ShortLink, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, code); err != nil {
			s.logger.Warn("Cache read failed", "error", err, "code", code)
		} else if cached != "" {
			var link domain.ShortLink
			if err := json.Unmarshal([]byte(cached), &link); err == nil {
				s.logger.Debug("Cache hit", "code", code)
				return &link, nil
			}
			s.logger.Warn("Discarding undecodable cache entry", "code", code)
		}
	}

	link, err := s.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(link); err == nil {
			if err := s.cache.Set(ctx, code, string(payload), s.cfg.CacheTTL); err != nil {
				s.logger.Warn("Failed to update cache", "error", err, "code", code)
			}
		}
	}

	return link, nil
}

// evict drops code from the cache so expired links stop occupying it
func (s *linkService) evict(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, code); err != nil {
		s.logger.Warn("Failed to evict cache entry", "error", err, "code", code)
	}
}

func (s *linkService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// asStorageError makes sure err carries the ErrStorageUnavailable kind
func asStorageError(op string, err error) error {
	if errors.Is(err, domain.ErrStorageUnavailable) {
		return err
	}
	return domain.NewStorageError(op, err)
}
