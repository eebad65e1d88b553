package registrar

import (
	"github.com/smallbiznis/domainledger/internal/registrar/clients"
	"github.com/smallbiznis/domainledger/internal/registrar/credentials"
	"github.com/smallbiznis/domainledger/internal/registrar/repository"
	"github.com/smallbiznis/domainledger/internal/registrar/service"
	"go.uber.org/fx"
)

var Module = fx.Module("registrar.service",
	clients.Module,
	fx.Provide(credentials.ProvideCodec),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
