package fetcher

import (
	"net/http"

	"github.com/smallbiznis/domainledger/internal/config"
	"github.com/smallbiznis/domainledger/internal/observability/metrics"
	obstracing "github.com/smallbiznis/domainledger/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("fetcher",
	fx.Provide(NewHostLimiter),
	fx.Provide(provideFetcher),
)

func provideFetcher(cfg config.Config, syncCfg *config.SyncConfigHolder, limiter *HostLimiter, m *metrics.SyncMetrics, log *zap.Logger) Fetcher {
	var renderer Renderer
	if cfg.ScrapingantAPIKey != "" {
		renderer = NewScrapingAnt(
			cfg.ScrapingantAPIKey,
			"",
			obstracing.WrapHTTPClient(&http.Client{Timeout: cfg.RenderTimeout}),
			syncCfg,
			log,
		)
	}
	client := obstracing.WrapHTTPClient(&http.Client{Timeout: cfg.FetchTimeout})
	return NewResilient(client, renderer, limiter, m, log)
}
