package platformfee

import (
	"io"
	"math/rand"
	"sync"

	"github.com/blackbridgeaiagency-star/flywheel/internal/clock"
	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/config"
	creatordomain "github.com/blackbridgeaiagency-star/flywheel/internal/creator/domain"
	invoicedomain "github.com/blackbridgeaiagency-star/flywheel/internal/invoice/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/lock"
	"github.com/blackbridgeaiagency-star/flywheel/internal/providers/billing"
	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	commissionRepo commissiondomain.Repository
	creatorRepo    creatordomain.Repository
	invoiceRepo    invoicedomain.Repository
	invoiceSvc     invoicedomain.Service
	billing        billing.Provider
	locker         lock.Locker
	program        *config.ProgramConfigHolder

	entropyMu sync.Mutex
	entropy   io.Reader
}

type ServiceParam struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	CommissionRepo commissiondomain.Repository
	CreatorRepo    creatordomain.Repository
	InvoiceRepo    invoicedomain.Repository
	InvoiceSvc     invoicedomain.Service
	Billing        billing.Provider
	Locker         lock.Locker
	Program        *config.ProgramConfigHolder
}

func New(p ServiceParam) *Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("platformfee.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		commissionRepo: p.CommissionRepo,
		creatorRepo:    p.CreatorRepo,
		invoiceRepo:    p.InvoiceRepo,
		invoiceSvc:     p.InvoiceSvc,
		billing:        p.Billing,
		locker:         p.Locker,
		program:        p.Program,
		entropy:        ulid.Monotonic(rand.New(rand.NewSource(p.Clock.Now().UnixNano())), 0),
	}
}

var Module = fx.Module("platformfee.service",
	fx.Provide(New),
)
