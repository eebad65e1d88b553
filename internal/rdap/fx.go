package rdap

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/domainledger/internal/clock"
	"github.com/smallbiznis/domainledger/internal/config"
	"github.com/smallbiznis/domainledger/internal/fetcher"
	"github.com/smallbiznis/domainledger/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("rdap",
	fx.Provide(NewRepository),
	fx.Provide(provideDirectory),
	fx.Provide(provideClient),
)

func httpClient(cfg config.Config) *http.Client {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return tracing.WrapHTTPClient(&http.Client{Timeout: timeout})
}

type directoryParams struct {
	fx.In

	DB      *gorm.DB
	Repo    Repository
	GenID   *snowflake.Node
	Config  config.Config
	Limiter *fetcher.HostLimiter
	Clock   clock.Clock `optional:"true"`
	Log     *zap.Logger
}

func provideDirectory(p directoryParams) *Directory {
	return NewDirectory(p.DB, p.Repo, p.GenID, httpClient(p.Config), p.Limiter, p.Log).WithClock(p.Clock)
}

func provideClient(directory *Directory, cfg config.Config, limiter *fetcher.HostLimiter, log *zap.Logger) *Client {
	return NewClient(directory, httpClient(cfg), limiter, log)
}
