package fee

import (
	"github.com/smallbiznis/domainledger/internal/fee/report"
	"github.com/smallbiznis/domainledger/internal/fee/repository"
	"github.com/smallbiznis/domainledger/internal/fee/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fee.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(report.New),
)
