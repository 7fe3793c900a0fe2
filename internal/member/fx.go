package member

import (
	"github.com/blackbridgeaiagency-star/flywheel/internal/member/repository"
	"github.com/blackbridgeaiagency-star/flywheel/internal/member/service"
	"go.uber.org/fx"
)

var Module = fx.Module("member.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
