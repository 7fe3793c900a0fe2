package providers

import (
	"github.com/blackbridgeaiagency-star/flywheel/internal/providers/billing"
	"github.com/blackbridgeaiagency-star/flywheel/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	billing.Module,
	pdf.Module,
)
