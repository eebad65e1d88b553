package server

import (
	"context"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/domainledger/internal/observability/context"
	"github.com/smallbiznis/domainledger/internal/observability/logger"
	"github.com/smallbiznis/domainledger/internal/ratelimit"
	"go.uber.org/zap"
)

// ManualSyncLimiter throttles user-triggered syncs.
type ManualSyncLimiter interface {
	AllowManualSync(ctx context.Context, userID, endpoint string) (*ratelimit.RateLimitResult, error)
}

// ManualSyncRateLimit rejects a trigger once the caller's bucket for endpoint is empty.
func (s *Server) ManualSyncRateLimit(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := s.limiter.AllowManualSync(ctx, obscontext.UserIDFromContext(ctx), endpoint)
		if err != nil {
			logger.FromContext(ctx).Warn("manual sync rate limit check failed", zap.String("endpoint", endpoint), zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if res == nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
