package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keshsri/tinylinker/internal/domain"
	"github.com/keshsri/tinylinker/internal/service"
	"github.com/keshsri/tinylinker/internal/shortener"
	"github.com/keshsri/tinylinker/pkg/logger"
	"github.com/keshsri/tinylinker/pkg/timeutil"
)

// LinkHandler handles HTTP requests for short links and their analytics
type LinkHandler struct {
	links     service.LinkService
	analytics service.AnalyticsService
	logger    *logger.Logger
}

// NewLinkHandler creates a new link handler with dependencies
func NewLinkHandler(links service.LinkService, analytics service.AnalyticsService, logger *logger.Logger) *LinkHandler {
	return &LinkHandler{
		links:     links,
		analytics: analytics,
		logger:    logger,
	}
}

// ShortenURL handles POST /api/v1/shorten
func (h *LinkHandler) ShortenURL(c *gin.Context) {
	var req domain.CreateLinkRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	res, err := h.links.Allocate(c.Request.Context(), service.AllocateRequest{
		URL:              req.URL,
		CustomAlias:      req.CustomAlias,
		ExpiresInSeconds: req.ExpiresInSeconds,
	}, domain.AnonymousOwner)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, domain.CreateLinkResponse{
		Code:        res.Link.Code,
		ShortURL:    res.ShortURL,
		OriginalURL: res.Link.OriginalURL,
		CreatedAt:   res.Link.CreatedAt,
		ExpiresAt:   res.Link.ExpiresAt,
		IsSafe:      res.Link.IsSafe,
	})
}

// RedirectURL handles GET /:code
// Uses a temporary redirect so every visit comes back through here.
func (h *LinkHandler) RedirectURL(c *gin.Context) {
	code := c.Param("code")
	if !shortener.IsValidFormat(code) {
		h.handleError(c, domain.ErrURLNotFound)
		return
	}

	target, err := h.links.Resolve(c.Request.Context(), code, domain.Visit{
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Cache-Control", "private, no-cache")
	c.Redirect(http.StatusTemporaryRedirect, target)
}

// GetURLInfo handles GET /api/v1/urls/:code
// Returns the public fields of a link without recording a click
func (h *LinkHandler) GetURLInfo(c *gin.Context) {
	code := c.Param("code")
	if !shortener.IsValidFormat(code) {
		h.handleError(c, domain.ErrURLNotFound)
		return
	}

	link, err := h.links.Lookup(c.Request.Context(), code)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, domain.LinkPreview{
		Code:          link.Code,
		ShortURL:      h.links.ShortURL(link.Code),
		OriginalURL:   link.OriginalURL,
		CreatedAt:     link.CreatedAt,
		ExpiresAt:     link.ExpiresAt,
		ClickCount:    link.ClickCount,
		IsCustomAlias: link.IsCustomAlias,
		IsSafe:        link.IsSafe,
		LastClickedAt: link.LastClickedAt,
	})
}

// GetAnalytics handles GET /api/v1/urls/:code/analytics
// Optional timeRange limits the window, e.g. 1h, 7d, 30d
func (h *LinkHandler) GetAnalytics(c *gin.Context) {
	code := c.Param("code")
	if !shortener.IsValidFormat(code) {
		h.handleError(c, domain.ErrURLNotFound)
		return
	}

	window, err := service.ParseTimeRange(c.Query("timeRange"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	if _, err := h.links.Lookup(c.Request.Context(), code); err != nil {
		h.handleError(c, err)
		return
	}

	var since int64
	if window > 0 {
		since = timeutil.Now() - window.Milliseconds()
	}

	summary := h.analytics.Aggregate(c.Request.Context(), code, since)
	if summary.Failed() {
		c.JSON(http.StatusInternalServerError, summary)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// handleError processes domain errors and returns appropriate HTTP responses.
// Validation errors built with domain.NewValidationError surface their message.
func (h *LinkHandler) handleError(c *gin.Context, err error) {
	var appErr *domain.AppError

	switch {
	case errors.As(err, &appErr) && appErr.Internal:
		h.logger.Error("Internal server error", "error", appErr.Err)
		c.JSON(appErr.StatusCode, domain.ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
			Code:    appErr.StatusCode,
		})

	case errors.Is(err, domain.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_url",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})

	case errors.Is(err, domain.ErrInvalidAlias):
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_alias",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})

	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_input",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})

	case errors.Is(err, domain.ErrAliasTaken):
		c.JSON(http.StatusConflict, domain.ErrorResponse{
			Error:   "short_code_taken",
			Message: "This short code is already in use",
			Code:    http.StatusConflict,
		})

	case errors.Is(err, domain.ErrURLNotFound):
		c.JSON(http.StatusNotFound, domain.ErrorResponse{
			Error:   "not_found",
			Message: "The requested URL was not found",
			Code:    http.StatusNotFound,
		})

	case errors.Is(err, domain.ErrURLExpired):
		c.JSON(http.StatusGone, domain.ErrorResponse{
			Error:   "url_expired",
			Message: "This URL has expired and is no longer available",
			Code:    http.StatusGone,
		})

	case errors.Is(err, domain.ErrStorageUnavailable):
		h.logger.Error("Storage unavailable", "error", err)
		c.JSON(http.StatusInternalServerError, domain.ErrorResponse{
			Error:   "storage_unavailable",
			Message: "The service is temporarily unavailable",
			Code:    http.StatusInternalServerError,
		})

	default:
		h.logger.Error("Unexpected error", "error", err)
		c.JSON(http.StatusInternalServerError, domain.ErrorResponse{
			Error:   "internal_error",
			Message: "An unexpected error occurred",
			Code:    http.StatusInternalServerError,
		})
	}
}
