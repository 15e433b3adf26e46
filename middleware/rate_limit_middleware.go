package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/duonguwu/notification-bot/limiter"
)

// RateLimitMiddleware bounds message traffic per caller. The key comes
// from keyFunc so all message routes share one bucket per principal.
func RateLimitMiddleware(manager *limiter.Manager, limit int, window time.Duration, keyFunc func(echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := keyFunc(c)
			if key == "" {
				return next(c)
			}

			allowed, err := manager.Allow(c.Request().Context(), fmt.Sprintf("limit:messages:%s", key), limit, window)
			if err != nil {
				// Limiter backend failure never blocks the chat.
				return next(c)
			}
			if !allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "too many messages, slow down",
				})
			}
			return next(c)
		}
	}
}
