package service

import (
	"context"
	"strings"

	"github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	creatordomain "github.com/blackbridgeaiagency-star/flywheel/internal/creator/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/config"
	memberdomain "github.com/blackbridgeaiagency-star/flywheel/internal/member/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/tier"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/db"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/money"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	repo        domain.Repository
	memberRepo  memberdomain.Repository
	creatorRepo creatordomain.Repository
	tiers       *tier.Resolver
	program     *config.ProgramConfigHolder
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	MemberRepo  memberdomain.Repository
	CreatorRepo creatordomain.Repository
	Tiers       *tier.Resolver
	Program     *config.ProgramConfigHolder
}

func New(p ServiceParam) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("commission.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		memberRepo:  p.MemberRepo,
		creatorRepo: p.CreatorRepo,
		tiers:       p.Tiers,
		program:     p.Program,
	}
}

// RecordSale attributes a sale to its member and writes the three-way split.
//
// For referred sales the member share uses the referrer's commission rate as
// of this sale, so a tier upgrade never retroactively reprices old rows. The
// creator share is computed as the remainder, which keeps the split-sum
// invariant exact regardless of rounding on the other two legs.
func (s *Service) RecordSale(ctx context.Context, req domain.RecordSaleRequest) (*domain.Commission, error) {
	paymentID := strings.TrimSpace(req.ExternalPaymentID)
	if paymentID == "" || req.Amount <= 0 {
		return nil, domain.ErrInvalidSale
	}

	if existing, err := s.repo.FindByExternalPaymentID(ctx, s.db, paymentID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	member, err := s.memberRepo.FindByMembershipID(ctx, s.db, strings.TrimSpace(req.MembershipID))
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrUnknownMember
	}

	commission := &domain.Commission{
		ID:                s.genID.Generate(),
		CreatorID:         member.CreatorID,
		MemberID:          member.ID,
		ReferrerID:        member.ReferredBy,
		SaleAmount:        req.Amount,
		Status:            domain.StatusPaid,
		PaymentType:       normalizePaymentType(req.PaymentType),
		ExternalPaymentID: paymentID,
		Metadata:          datatypes.JSONMap(req.Metadata),
	}
	if commission.Metadata == nil {
		commission.Metadata = datatypes.JSONMap{}
	}

	if member.ReferredBy != nil {
		referrals, err := s.repo.PaidReferralCount(ctx, s.db, *member.ReferredBy)
		if err != nil {
			return nil, err
		}
		rate := s.tiers.Resolve(int(referrals)).MemberRate
		feePct := s.program.Get().PlatformFeePercent

		commission.MemberShare = money.Round2(req.Amount * rate)
		commission.PlatformShare = money.Round2(req.Amount * feePct)
		commission.CreatorShare = req.Amount - commission.MemberShare - commission.PlatformShare
	} else {
		commission.CreatorShare = req.Amount
	}

	if err := s.repo.Insert(ctx, s.db, commission); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Lost a race against a concurrent replay of the same webhook.
			return s.repo.FindByExternalPaymentID(ctx, s.db, paymentID)
		}
		return nil, err
	}

	s.log.Info("sale recorded",
		zap.String("commission_id", commission.ID.String()),
		zap.String("external_payment_id", paymentID),
		zap.Float64("sale_amount", commission.SaleAmount),
		zap.Float64("member_share", commission.MemberShare),
		zap.Bool("referred", commission.ReferrerID != nil),
	)
	return commission, nil
}

// RecordRefund voids a sale in the ledger. Aggregations only read paid rows,
// so flipping the status removes the sale from earnings, rankings and future
// invoicing in one write. A fee already billed for the row becomes a credit
// on the creator's next invoice rather than a ledger rewrite.
func (s *Service) RecordRefund(ctx context.Context, externalPaymentID string) (*domain.Commission, error) {
	commission, err := s.repo.FindByExternalPaymentID(ctx, s.db, strings.TrimSpace(externalPaymentID))
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, domain.ErrCommissionNotFound
	}
	if commission.Status == domain.StatusRefunded {
		return commission, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.MarkRefunded(ctx, tx, commission.ID); err != nil {
			return err
		}
		if commission.PlatformFeeInvoiced && commission.PlatformShare > 0 {
			return s.creatorRepo.AddRefundCredit(ctx, tx, commission.CreatorID, commission.PlatformShare)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	commission.Status = domain.StatusRefunded
	s.log.Info("sale refunded",
		zap.String("commission_id", commission.ID.String()),
		zap.Bool("fee_credited", commission.PlatformFeeInvoiced),
	)
	return commission, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Commission, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrCommissionNotFound
	}
	commission, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, domain.ErrCommissionNotFound
	}
	return commission, nil
}

func normalizePaymentType(t string) domain.PaymentType {
	if strings.EqualFold(strings.TrimSpace(t), string(domain.PaymentRecurring)) {
		return domain.PaymentRecurring
	}
	return domain.PaymentInitial
}
