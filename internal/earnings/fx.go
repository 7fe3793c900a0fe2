package earnings

import "go.uber.org/fx"

var Module = fx.Module("earnings.service",
	fx.Provide(New),
)
