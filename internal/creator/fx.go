package creator

import (
	"github.com/blackbridgeaiagency-star/flywheel/internal/creator/repository"
	"github.com/blackbridgeaiagency-star/flywheel/internal/creator/service"
	"go.uber.org/fx"
)

var Module = fx.Module("creator.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
