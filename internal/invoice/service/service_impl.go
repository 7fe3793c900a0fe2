package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/blackbridgeaiagency-star/flywheel/internal/clock"
	"github.com/blackbridgeaiagency-star/flywheel/internal/invoice/domain"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/db/pagination"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/money"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	repo domain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

func New(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvoiceNotFound
	}
	invoice, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *Service) ListByCreator(ctx context.Context, creatorID string, page pagination.Pagination) ([]domain.Invoice, *pagination.PageInfo, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(creatorID))
	if err != nil {
		return nil, nil, domain.ErrInvoiceNotFound
	}
	return s.repo.ListByCreator(ctx, s.db, parsed, page)
}

// HandleBillingEvent applies a provider webhook to the matching invoice.
//
// invoice.paid wins from any non-paid state, including overdue, because a
// late payment still settles the invoice. payment_failed and overdue both
// park the invoice at overdue; a paid invoice never regresses.
func (s *Service) HandleBillingEvent(ctx context.Context, event domain.BillingEvent) (*domain.Invoice, error) {
	externalID := strings.TrimSpace(event.ExternalInvoiceID)
	if externalID == "" {
		return nil, domain.ErrInvoiceNotFound
	}

	var target domain.InvoiceStatus
	switch event.Type {
	case domain.EventInvoicePaid:
		target = domain.StatusPaid
	case domain.EventInvoicePaymentFailed, domain.EventInvoiceOverdue:
		target = domain.StatusOverdue
	default:
		return nil, domain.ErrUnknownBillingEvent
	}

	invoice, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrInvoiceNotFound
	}

	if invoice.Status == target {
		return invoice, nil
	}
	if invoice.Status == domain.StatusPaid {
		return nil, domain.ErrInvalidTransition
	}

	now := s.clock.Now()
	if err := s.repo.UpdateStatus(ctx, s.db, invoice.ID, target, now); err != nil {
		return nil, err
	}
	invoice.Status = target
	if target == domain.StatusPaid {
		invoice.PaidAt = &now
	}

	s.log.Info("invoice transitioned",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("event", event.Type),
		zap.String("status", string(target)),
	)
	return invoice, nil
}

// Lines derives the rendered line items. The refund credit appears as a
// negative line so the rendered total matches TotalAmount.
func (s *Service) Lines(invoice *domain.Invoice) []domain.LineItem {
	lines := []domain.LineItem{
		{
			Description: fmt.Sprintf("Platform fee on %d referred sales (%s – %s)",
				invoice.CommissionCount,
				invoice.PeriodStart.Format("Jan 2, 2006"),
				invoice.PeriodEnd.Add(-1).Format("Jan 2, 2006"),
			),
			Amount: money.Round2(invoice.FeeAmount),
		},
	}
	if invoice.RefundCredit > 0 {
		lines = append(lines, domain.LineItem{
			Description: "Refund credit",
			Amount:      -money.Round2(invoice.RefundCredit),
		})
	}
	return lines
}
