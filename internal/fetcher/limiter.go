package fetcher

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/smallbiznis/domainledger/internal/config"
	"golang.org/x/time/rate"
)

// HostLimiter paces outbound requests per host. Rate and burst come from the sync config
// and are re-read whenever a limiter for a new host is created.
type HostLimiter struct {
	cfg *config.SyncConfigHolder

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewHostLimiter(cfg *config.SyncConfigHolder) *HostLimiter {
	return &HostLimiter{cfg: cfg, limiters: map[string]*rate.Limiter{}}
}

// Wait blocks until a request to rawURL's host may proceed.
func (l *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil {
		return nil
	}
	return l.limiter(hostOf(rawURL)).Wait(ctx)
}

func (l *HostLimiter) limiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[host]; ok {
		return lim
	}
	cfg := l.cfg.Get()
	lim := rate.NewLimiter(rate.Limit(cfg.FetchRatePerHost), cfg.FetchBurst)
	l.limiters[host] = lim
	return lim
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return strings.ToLower(parsed.Host)
}
