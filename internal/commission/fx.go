package commission

import (
	"github.com/blackbridgeaiagency-star/flywheel/internal/commission/repository"
	"github.com/blackbridgeaiagency-star/flywheel/internal/commission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commission.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
