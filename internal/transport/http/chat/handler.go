// Package chat provides the HTTP handlers of the chat relay.
package chat

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/planoeducation/planoeducation/internal/domain"
	"github.com/planoeducation/planoeducation/internal/service"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// HeaderRequestID carries the relay call ID on chat responses.
const HeaderRequestID = "X-Request-ID"

// Options configures the handlers.
type Options struct {
	// RateLimitRPS of zero disables per-IP rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	opts    Options
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, opts Options) *Handler {
	return &Handler{
		service: service,
		opts:    opts,
	}
}

// RegisterRoutes registers the relay routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	var chatMiddleware []echo.MiddlewareFunc
	if h.opts.RateLimitRPS > 0 {
		chatMiddleware = append(chatMiddleware, rateLimiter(h.opts.RateLimitRPS, h.opts.RateLimitBurst))
	}

	e.POST("/api/getChat", h.GetChat, chatMiddleware...)
	e.OPTIONS("/api/getChat", h.Preflight)

	e.GET("/api/calls/:request_id/events", h.GetCallEvents)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

// Preflight answers CORS preflight requests for the chat endpoint.
// OPTIONS /api/getChat
func (h *Handler) Preflight(c echo.Context) error {
	header := c.Response().Header()
	header.Set(echo.HeaderAccessControlAllowOrigin, "*")
	header.Set(echo.HeaderAccessControlAllowMethods, "GET, POST, OPTIONS")
	header.Set(echo.HeaderAccessControlAllowHeaders, "Content-Type, Authorization")
	return c.NoContent(http.StatusNoContent)
}

func rateLimiter(rps float64, burst int) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(rps),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, domain.ErrorResponse{Error: "Too Many Requests"})
		},
	})
}
