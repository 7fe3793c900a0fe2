package invoice

import (
	"github.com/blackbridgeaiagency-star/flywheel/internal/invoice/repository"
	"github.com/blackbridgeaiagency-star/flywheel/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
