package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/keshsri/tinylinker/internal/attributes"
	"github.com/keshsri/tinylinker/internal/config"
	"github.com/keshsri/tinylinker/internal/domain"
	"github.com/keshsri/tinylinker/internal/geo"
	"github.com/keshsri/tinylinker/internal/handler"
	"github.com/keshsri/tinylinker/internal/repository"
	"github.com/keshsri/tinylinker/internal/repository/memory"
	"github.com/keshsri/tinylinker/internal/service"
	"github.com/keshsri/tinylinker/pkg/logger"
)

type RouterTestSuite struct {
	suite.Suite
	router *gin.Engine
	store  *repository.Store
	config *config.Config
}

func (s *RouterTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *RouterTestSuite) SetupTest() {
	s.config = &config.Config{
		Environment:        "test",
		BaseURL:            "http://localhost:8081",
		StoreBackend:       config.BackendMemory,
		StoreTimeout:       time.Second,
		RequestTimeout:     5 * time.Second,
		ClickRetentionDays: 15,
		AllowedOrigins:     []string{"*"},
	}
	s.store = memory.NewStore()
	s.router = buildRouter(s.config, s.store)
}

func buildRouter(cfg *config.Config, store *repository.Store) *gin.Engine {
	log := logger.NewNop()
	resolver := geo.NewResolver(nil, geo.DefaultTimeout, log)
	analytics := service.NewAnalyticsService(store.Clicks, store.Links, resolver, attributes.NewIPHasher("salt"), cfg, log)
	links := service.NewLinkService(store.Links, analytics, nil, cfg, log)
	return handler.NewRouter(handler.NewLinkHandler(links, analytics, log), cfg, log)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterTestSuite) shorten(body map[string]interface{}) domain.CreateLinkResponse {
	w := s.do(http.MethodPost, "/api/v1/shorten", body, nil)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp domain.CreateLinkResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *RouterTestSuite) TestShortenAndRedirect() {
	resp := s.shorten(map[string]interface{}{"url": "https://example.com/very/long/path/to/resource"})

	s.Len(resp.Code, 6)
	s.Equal("https://example.com/very/long/path/to/resource", resp.OriginalURL)
	s.Equal(s.config.BaseURL+"/"+resp.Code, resp.ShortURL)
	s.True(resp.IsSafe)
	s.Nil(resp.ExpiresAt)

	w := s.do(http.MethodGet, "/"+resp.Code, nil, map[string]string{
		"User-Agent": "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) Safari/604.1",
		"Referer":    "https://social.example",
	})

	s.Equal(http.StatusTemporaryRedirect, w.Code)
	s.Equal("https://example.com/very/long/path/to/resource", w.Header().Get("Location"))

	link, err := s.store.Links.Get(context.Background(), resp.Code)
	s.Require().NoError(err)
	s.Equal(int64(1), link.ClickCount)
	s.NotNil(link.LastClickedAt)

	events, err := s.store.Clicks.QueryByCode(context.Background(), resp.Code, 0)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("mobile", events[0].Device)
	s.Equal("Safari", events[0].Browser)
	s.Equal("https://social.example", events[0].Referrer)
	s.Equal(geo.UnknownValue, events[0].Country)
}

func (s *RouterTestSuite) TestShortenWithExpiry() {
	resp := s.shorten(map[string]interface{}{"url": "https://example.com", "expiresInSeconds": 60})

	s.Require().NotNil(resp.ExpiresAt)
	s.Equal(resp.CreatedAt+60_000, *resp.ExpiresAt)
}

func (s *RouterTestSuite) TestCustomAlias() {
	body := map[string]interface{}{"url": "https://example.com/custom", "customAlias": "myCustomLink"}

	resp := s.shorten(body)
	s.Equal("myCustomLink", resp.Code)

	w := s.do(http.MethodPost, "/api/v1/shorten", body, nil)
	s.Equal(http.StatusConflict, w.Code)
}

func (s *RouterTestSuite) TestInvalidRequests() {
	cases := []struct {
		name    string
		body    interface{}
		error   string
		message string
	}{
		{name: "missing url", body: map[string]interface{}{}, error: "invalid_request"},
		{name: "bad url", body: map[string]interface{}{"url": "not-a-valid-url"}, error: "invalid_url"},
		{name: "bad alias", body: map[string]interface{}{"url": "https://example.com", "customAlias": "my-custom-link"}, error: "invalid_alias"},
		{name: "zero ttl", body: map[string]interface{}{"url": "https://example.com", "expiresInSeconds": 0}, error: "invalid_input"},
		{name: "ttl past timestamp range", body: map[string]interface{}{"url": "https://example.com", "expiresInSeconds": int64(9_300_000_000_000_000)}, error: "invalid_input", message: "expiresInSeconds is too large"},
		{name: "unsupported scheme", body: map[string]interface{}{"url": "ftp://example.com/file"}, error: "invalid_url", message: "Invalid URL format"},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			w := s.do(http.MethodPost, "/api/v1/shorten", tc.body, nil)
			s.Equal(http.StatusBadRequest, w.Code)

			var resp domain.ErrorResponse
			s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
			s.Equal(tc.error, resp.Error)
			if tc.message != "" {
				s.Equal(tc.message, resp.Message)
			}
		})
	}
}

func (s *RouterTestSuite) TestRedirectUnknownCode() {
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/zzzzzz", nil, nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/favicon.ico", nil, nil).Code)
}

func (s *RouterTestSuite) TestRedirectExpired() {
	past := time.Now().Add(-time.Minute).UnixMilli()
	s.Require().NoError(s.store.Links.Create(context.Background(), &domain.ShortLink{
		Code:        "expired1",
		OriginalURL: "https://example.com",
		OwnerID:     domain.AnonymousOwner,
		ExpiresAt:   &past,
	}))

	w := s.do(http.MethodGet, "/expired1", nil, nil)
	s.Equal(http.StatusGone, w.Code)

	events, err := s.store.Clicks.QueryByCode(context.Background(), "expired1", 0)
	s.Require().NoError(err)
	s.Empty(events)

	// preview stays available
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/v1/urls/expired1", nil, nil).Code)
}

func (s *RouterTestSuite) TestPreviewDoesNotRecordClick() {
	resp := s.shorten(map[string]interface{}{"url": "https://example.com/info-test"})

	w := s.do(http.MethodGet, "/api/v1/urls/"+resp.Code, nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var preview domain.LinkPreview
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &preview))
	s.Equal(resp.Code, preview.Code)
	s.Equal(resp.ShortURL, preview.ShortURL)
	s.Equal("https://example.com/info-test", preview.OriginalURL)
	s.Zero(preview.ClickCount)

	events, err := s.store.Clicks.QueryByCode(context.Background(), resp.Code, 0)
	s.Require().NoError(err)
	s.Empty(events)

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/v1/urls/nothere", nil, nil).Code)
}

func (s *RouterTestSuite) TestAnalytics() {
	resp := s.shorten(map[string]interface{}{"url": "https://example.com/analytics"})

	agents := []string{
		"Mozilla/5.0 (Windows NT 10.0) AppleWebKit Chrome/100 Safari/537",
		"Mozilla/5.0 (Windows NT 10.0) AppleWebKit Chrome/100 Safari/537",
		"Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0",
	}
	for _, ua := range agents {
		w := s.do(http.MethodGet, "/"+resp.Code, nil, map[string]string{"User-Agent": ua})
		s.Require().Equal(http.StatusTemporaryRedirect, w.Code)
	}

	w := s.do(http.MethodGet, fmt.Sprintf("/api/v1/urls/%s/analytics?timeRange=7d", resp.Code), nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var summary domain.AnalyticsSummary
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &summary))
	s.Equal(int64(3), summary.TotalClicks)
	s.Equal(int64(2), summary.ClicksByBrowser["Chrome"])
	s.Equal(int64(1), summary.ClicksByBrowser["Firefox"])
	s.Equal(int64(2), summary.ClicksByOS["Windows"])
	s.Equal(int64(1), summary.ClicksByOS["Linux"])
	s.Equal(int64(3), summary.ClicksByReferrer[domain.DirectReferrer])
	s.Len(summary.RecentClicks, 3)
	s.Empty(summary.Error)
}

func (s *RouterTestSuite) TestAnalyticsErrors() {
	resp := s.shorten(map[string]interface{}{"url": "https://example.com"})

	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/urls/"+resp.Code+"/analytics?timeRange=forever", nil, nil).Code)

	w := s.do(http.MethodGet, "/api/v1/urls/"+resp.Code+"/analytics?timeRange=9999999999h", nil, nil)
	s.Equal(http.StatusBadRequest, w.Code)
	var errResp domain.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &errResp))
	s.Equal("invalid_input", errResp.Error)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/v1/urls/missing1/analytics", nil, nil).Code)
}

func (s *RouterTestSuite) redirectFrom(code, forwardedFor string) {
	w := s.do(http.MethodGet, "/"+code, nil, map[string]string{"X-Forwarded-For": forwardedFor})
	s.Require().Equal(http.StatusTemporaryRedirect, w.Code)
}

func (s *RouterTestSuite) TestForwardedForIgnoredWithoutTrustedProxies() {
	resp := s.shorten(map[string]interface{}{"url": "https://example.com/xff"})

	s.redirectFrom(resp.Code, "203.0.113.7")
	s.redirectFrom(resp.Code, "198.51.100.23")

	events, err := s.store.Clicks.QueryByCode(context.Background(), resp.Code, 0)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(events[0].IPHash, events[1].IPHash)
}

func (s *RouterTestSuite) TestForwardedForHonouredFromTrustedProxy() {
	// httptest requests arrive from 192.0.2.1
	s.config.TrustedProxies = []string{"192.0.2.0/24"}
	s.router = buildRouter(s.config, s.store)
	resp := s.shorten(map[string]interface{}{"url": "https://example.com/xff"})

	s.redirectFrom(resp.Code, "203.0.113.7")
	s.redirectFrom(resp.Code, "198.51.100.23")

	events, err := s.store.Clicks.QueryByCode(context.Background(), resp.Code, 0)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.NotEqual(events[0].IPHash, events[1].IPHash)
}

func (s *RouterTestSuite) TestHealthCheck() {
	w := s.do(http.MethodGet, "/health", nil, nil)
	s.Equal(http.StatusOK, w.Code)

	var health map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &health))
	s.Equal("healthy", health["status"])
}

func (s *RouterTestSuite) TestSecurityAndCORSHeaders() {
	w := s.do(http.MethodGet, "/health", nil, map[string]string{"Origin": "https://app.example"})

	s.Equal("nosniff", w.Header().Get("X-Content-Type-Options"))
	s.Equal("DENY", w.Header().Get("X-Frame-Options"))
	s.Equal("*", w.Header().Get("Access-Control-Allow-Origin"))

	preflight := s.do(http.MethodOptions, "/api/v1/shorten", nil, map[string]string{"Origin": "https://app.example"})
	s.Equal(http.StatusNoContent, preflight.Code)
}

// brokenClicks fails every read and write
type brokenClicks struct{ repository.ClickRepository }

func (brokenClicks) Put(context.Context, *domain.ClickEvent) error {
	return domain.NewStorageError("put click", errors.New("throttled"))
}

func (brokenClicks) QueryByCode(context.Context, string, int64) ([]domain.ClickEvent, error) {
	return nil, domain.NewStorageError("query clicks", errors.New("throttled"))
}

// brokenLinks fails every write
type brokenLinks struct{ repository.LinkRepository }

func (brokenLinks) Create(context.Context, *domain.ShortLink) error {
	return domain.NewStorageError("create link", errors.New("disk full"))
}

func (s *RouterTestSuite) TestStorageFailures() {
	mem := memory.NewStore()
	store := &repository.Store{
		Links:  brokenLinks{mem.Links},
		Clicks: brokenClicks{mem.Clicks},
	}
	s.router = buildRouter(s.config, store)

	w := s.do(http.MethodPost, "/api/v1/shorten", map[string]interface{}{"url": "https://example.com", "customAlias": "fine1"}, nil)
	s.Equal(http.StatusInternalServerError, w.Code)

	s.Require().NoError(mem.Links.Create(context.Background(), &domain.ShortLink{Code: "exists1", OriginalURL: "https://example.com"}))
	w = s.do(http.MethodGet, "/api/v1/urls/exists1/analytics", nil, nil)
	s.Equal(http.StatusInternalServerError, w.Code)

	var summary domain.AnalyticsSummary
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &summary))
	s.NotEmpty(summary.Error)

	// click recording fails but the redirect still succeeds
	w = s.do(http.MethodGet, "/exists1", nil, nil)
	s.Equal(http.StatusTemporaryRedirect, w.Code)
}
