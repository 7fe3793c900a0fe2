// Package platformfee computes what the referral program is worth to each
// creator and bills the platform's cut of referred revenue.
package platformfee

import (
	"context"
	"time"

	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/config"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/money"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Skip reasons for creators the invoicing run passes over.
const (
	SkipNoReferredSales = "no_referred_sales"
	SkipBelowMinimum    = "below_minimum"
)

// ValueReport quantifies the referral program's contribution to one
// creator's revenue over one period.
type ValueReport struct {
	CreatorID   string    `json:"creator_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	OrganicRevenue  float64 `json:"organic_revenue"`
	OrganicCount    int64   `json:"organic_count"`
	ReferredRevenue float64 `json:"referred_revenue"`
	ReferredCount   int64   `json:"referred_count"`

	// AdditionalRevenue is referred revenue net of the member shares paid
	// out to earn it: money the creator would not have seen without the
	// program.
	AdditionalRevenue float64 `json:"additional_revenue"`
	PlatformFee       float64 `json:"platform_fee"`
	NetBenefit        float64 `json:"net_benefit"`
	// ROIMultiple is additional revenue per fee dollar, 0 when no fee is
	// due.
	ROIMultiple float64 `json:"roi_multiple"`
}

// Eligibility is the should-invoice verdict for one creator and period.
type Eligibility struct {
	ShouldInvoice bool    `json:"should_invoice"`
	Reason        string  `json:"reason,omitempty"`
	Fee           float64 `json:"fee"`
}

// BuildValueReport derives the report from a ledger partition and the
// current fee percentage.
func BuildValueReport(creatorID snowflake.ID, window commissiondomain.Window, partition commissiondomain.RevenuePartition, feePercent float64) ValueReport {
	additional := money.Round2(partition.ReferredRevenue - partition.ReferredMemberShare)
	fee := money.Round2(partition.ReferredRevenue * feePercent)

	report := ValueReport{
		CreatorID:         creatorID.String(),
		PeriodStart:       window.From,
		PeriodEnd:         window.To,
		OrganicRevenue:    money.Round2(partition.OrganicRevenue),
		OrganicCount:      partition.OrganicCount,
		ReferredRevenue:   money.Round2(partition.ReferredRevenue),
		ReferredCount:     partition.ReferredCount,
		AdditionalRevenue: additional,
		PlatformFee:       fee,
		NetBenefit:        money.Round2(additional - fee),
	}
	if fee > 0 {
		report.ROIMultiple = money.Round2(additional / fee)
	}
	return report
}

// Eligibility applies the should-invoice rules: some referred sales must
// exist, and the fee must clear the configured minimum.
func (r ValueReport) Eligibility(minimum float64) Eligibility {
	if r.ReferredCount == 0 {
		return Eligibility{Reason: SkipNoReferredSales}
	}
	if r.PlatformFee < minimum {
		return Eligibility{Reason: SkipBelowMinimum, Fee: r.PlatformFee}
	}
	return Eligibility{ShouldInvoice: true, Fee: r.PlatformFee}
}

// ValueReport computes the report for a creator over a window.
func (s *Service) ValueReport(ctx context.Context, creatorID snowflake.ID, window commissiondomain.Window) (*ValueReport, error) {
	return s.valueReport(ctx, s.db, creatorID, window)
}

func (s *Service) valueReport(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, window commissiondomain.Window) (*ValueReport, error) {
	partition, err := s.commissionRepo.PartitionRevenue(ctx, db, creatorID, window)
	if err != nil {
		return nil, err
	}
	report := BuildValueReport(creatorID, window, partition, s.feePercent())
	return &report, nil
}

func (s *Service) feePercent() float64 {
	return s.program.Get().PlatformFeePercent
}

func (s *Service) invoiceMinimum() float64 {
	cfg := s.program.Get()
	if cfg.InvoiceMinimum <= 0 {
		return config.DefaultProgramConfig().InvoiceMinimum
	}
	return cfg.InvoiceMinimum
}
