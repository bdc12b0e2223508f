package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/loamstore/access/internal/errors"
	"github.com/loamstore/access/internal/httputil"
)

// rateLimiterStore holds per-key rate limiters with automatic cleanup.
// Keys are principal names or client IPs depending on the middleware.
type rateLimiterStore struct {
	limiters sync.Map // map[string]*rateLimiterEntry
	rps      float64
	burst    int
}

// rateLimiterEntry holds a rate limiter and last access time for cleanup.
type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	mu         sync.Mutex
}

// PrincipalRateLimitMiddleware enforces per-principal rate limiting.
//
// MUST be used after CredentialsMiddleware. Uses a token bucket per
// principal name via golang.org/x/time/rate, so one noisy tablet server
// cannot starve the rest of the cluster's permission checks.
//
// The cleanup goroutine for stale limiters runs until ctx is canceled;
// pass the server's lifecycle context.
//
// Returns:
//   - 429 Too Many Requests: Rate limit exceeded (includes Retry-After header)
//   - Continues: Request allowed within rate limit
func PrincipalRateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := &rateLimiterStore{
		rps:   rps,
		burst: burst,
	}

	// Start cleanup goroutine for stale limiters (every 5 minutes)
	go store.cleanupStale(ctx, 5*time.Minute)

	return func(c *gin.Context) {
		creds, ok := GetCredentials(c.Request.Context())
		if !ok {
			// Should never happen - credentials middleware should have caught this
			logger.Error("rate limit middleware: no credentials in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		limiter := store.getLimiter(creds.User)
		if !limiter.Allow() {
			rejectRateLimited(c, limiter, logger, slog.String("principal", creds.User))
			return
		}

		c.Next()
	}
}

// AuthnRateLimitMiddleware enforces per-IP rate limiting on the
// authentication endpoint.
//
// The authentication endpoint verifies arbitrary credentials, which makes
// it the natural target for brute forcing secrets. Each IP address gets
// an independent token bucket, keyed on c.ClientIP() so proxy headers are
// honored.
//
// The cleanup goroutine for stale limiters runs until ctx is canceled;
// pass the server's lifecycle context.
//
// Returns:
//   - 429 Too Many Requests: Rate limit exceeded (includes Retry-After header)
//   - Continues: Request allowed within rate limit
func AuthnRateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := &rateLimiterStore{
		rps:   rps,
		burst: burst,
	}

	// Start cleanup goroutine for stale limiters (every 5 minutes)
	go store.cleanupStale(ctx, 5*time.Minute)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		limiter := store.getLimiter(clientIP)
		if !limiter.Allow() {
			rejectRateLimited(c, limiter, logger, slog.String("client_ip", clientIP))
			return
		}

		c.Next()
	}
}

// rejectRateLimited writes the 429 response with a Retry-After hint.
func rejectRateLimited(c *gin.Context, limiter *rate.Limiter, logger *slog.Logger, attrs ...any) {
	reservation := limiter.Reserve()
	retryAfter := int(reservation.Delay().Seconds())
	reservation.Cancel()

	logger.Debug("rate limit exceeded", append(attrs, slog.Int("retry_after", retryAfter))...)

	c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":   "rate_limit_exceeded",
		"message": "Too many requests. Please retry after the specified delay.",
	})
	c.Abort()
}

// getLimiter retrieves or creates a rate limiter for a key.
func (s *rateLimiterStore) getLimiter(key string) *rate.Limiter {
	if val, ok := s.limiters.Load(key); ok {
		entry := val.(*rateLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = time.Now()
		entry.mu.Unlock()
		return entry.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(s.rps), s.burst)
	entry := &rateLimiterEntry{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	s.limiters.Store(key, entry)
	return limiter
}

// cleanupStale removes rate limiters that haven't been accessed recently.
// Runs periodically to prevent unbounded memory growth from key churn.
func (s *rateLimiterStore) cleanupStale(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Remove limiters not accessed in the last hour
			threshold := time.Now().Add(-1 * time.Hour)
			s.limiters.Range(func(key, value interface{}) bool {
				entry := value.(*rateLimiterEntry)
				entry.mu.Lock()
				shouldDelete := entry.lastAccess.Before(threshold)
				entry.mu.Unlock()

				if shouldDelete {
					s.limiters.Delete(key)
				}
				return true
			})
		}
	}
}
