package clients

import (
	"fmt"
	"net/http"

	"github.com/smallbiznis/domainledger/internal/config"
	"github.com/smallbiznis/domainledger/internal/fetcher"
	"github.com/smallbiznis/domainledger/internal/observability/metrics"
	obstracing "github.com/smallbiznis/domainledger/internal/observability/tracing"
	"github.com/smallbiznis/domainledger/internal/registrar/clients/dynadot"
	"github.com/smallbiznis/domainledger/internal/registrar/clients/idcloudhost"
	"github.com/smallbiznis/domainledger/internal/registrar/clients/idwebhost"
	"github.com/smallbiznis/domainledger/internal/registrar/clients/porkbun"
	"github.com/smallbiznis/domainledger/internal/registrar/clients/transport"
	"github.com/smallbiznis/domainledger/internal/registrar/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("registrar.clients",
	fx.Provide(NewRegistry),
)

// Factory builds a client bound to one registrar's credentials.
type Factory func(creds domain.Credentials) domain.Client

// Registry maps integration codes to client factories.
type Registry struct {
	factories map[domain.Code]Factory
}

type Params struct {
	fx.In

	Config     config.Config
	SyncConfig *config.SyncConfigHolder
	Fetcher    fetcher.Fetcher
	Limiter    *fetcher.HostLimiter
	Metrics    *metrics.SyncMetrics
	Log        *zap.Logger
}

// NewRegistry registers every built-in client.
func NewRegistry(p Params) *Registry {
	deps := transport.Deps{
		HTTP:       obstracing.WrapHTTPClient(&http.Client{Timeout: p.Config.FetchTimeout}),
		Fetcher:    p.Fetcher,
		Limiter:    p.Limiter,
		SyncConfig: p.SyncConfig,
		Metrics:    p.Metrics,
		Log:        p.Log,
	}
	return NewRegistryWithDeps(deps)
}

func NewRegistryWithDeps(deps transport.Deps) *Registry {
	r := &Registry{factories: map[domain.Code]Factory{}}
	r.Register(domain.CodeDynadot, func(creds domain.Credentials) domain.Client {
		return dynadot.New(creds, deps)
	})
	r.Register(domain.CodePorkbun, func(creds domain.Credentials) domain.Client {
		return porkbun.New(creds, deps)
	})
	r.Register(domain.CodeIDwebhost, func(creds domain.Credentials) domain.Client {
		return idwebhost.New(creds, deps)
	})
	r.Register(domain.CodeIDCloudHost, func(creds domain.Credentials) domain.Client {
		return idcloudhost.New(creds, deps)
	})
	return r
}

// Register replaces any factory already bound to code.
func (r *Registry) Register(code domain.Code, factory Factory) {
	r.factories[code] = factory
}

func (r *Registry) Build(code domain.Code, creds domain.Credentials) (domain.Client, error) {
	factory, ok := r.factories[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrClientNotRegistered, code)
	}
	return factory(creds), nil
}
