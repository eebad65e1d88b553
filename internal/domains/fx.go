package domains

import (
	"github.com/smallbiznis/domainledger/internal/domains/aggregator"
	"github.com/smallbiznis/domainledger/internal/domains/repository"
	"github.com/smallbiznis/domainledger/internal/domains/service"
	"github.com/smallbiznis/domainledger/internal/ratelimit"
	"github.com/smallbiznis/domainledger/internal/rdap"
	"github.com/smallbiznis/domainledger/internal/whois"
	"go.uber.org/fx"
)

var Module = fx.Module("domain.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(
		func(c *rdap.Client) aggregator.RDAPLookup { return c },
		func(c *whois.Client) aggregator.WhoisLookup { return c },
		func(g *ratelimit.SyncGuard) aggregator.DomainLocker { return g },
	),
	fx.Provide(aggregator.New),
)
