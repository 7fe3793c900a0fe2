package billing

import (
	"github.com/blackbridgeaiagency-star/flywheel/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.billing",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.BillingAPIBaseURL == "" {
		log.Named("providers.billing").Info("no billing api configured, using noop provider")
		return &NoOpProvider{}
	}
	return NewHTTP(Config{
		BaseURL: cfg.BillingAPIBaseURL,
		APIKey:  cfg.BillingAPIKey,
	}, log)
}
