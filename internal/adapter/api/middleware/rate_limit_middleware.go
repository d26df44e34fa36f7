package middleware

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"foundly/internal/infrastructure/ratelimit"
	"foundly/pkg/errors"
	"foundly/pkg/response"
)

type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
}

func NewRateLimitMiddleware(limiter *ratelimit.Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Limit enforces the per-user budget for one action. Runs after
// authentication so the bucket key is the verified uid.
func (m *RateLimitMiddleware) Limit(action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get("uid").(string)
			if !ok || userID == "" {
				return response.Error(c, errors.Unauthorized("Authentication required", nil))
			}

			allowed, wait := m.limiter.Allow(userID, action)
			if !allowed {
				log.Printf("RateLimit: %s throttled on %s (retry in %v)", userID, action, wait)
				c.Response().Header().Set("Retry-After", wait.Round(1e9).String())
				return response.Error(c, errors.New("RATE_LIMITED", "Too many requests, slow down", http.StatusTooManyRequests, nil))
			}

			return next(c)
		}
	}
}
