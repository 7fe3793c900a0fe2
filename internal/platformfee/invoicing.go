package platformfee

import (
	"context"
	"errors"
	"fmt"
	"time"

	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	creatordomain "github.com/blackbridgeaiagency-star/flywheel/internal/creator/domain"
	invoicedomain "github.com/blackbridgeaiagency-star/flywheel/internal/invoice/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/lock"
	"github.com/blackbridgeaiagency-star/flywheel/internal/observability/metrics"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/money"
	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	runLockName = "flywheel:invoicing:run"
	runLockTTL  = 10 * time.Minute
)

// ErrRunInProgress means another instance holds the invoicing lock.
var ErrRunInProgress = errors.New("invoicing_run_in_progress")

// RunResult is the full outcome of one invoicing run. Every creator lands in
// exactly one of the three buckets.
type RunResult struct {
	RunID       string          `json:"run_id"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Invoiced    []InvoicedEntry `json:"invoiced"`
	Skipped     []SkippedEntry  `json:"skipped"`
	Errors      []RunErrorEntry `json:"errors"`
}

type InvoicedEntry struct {
	CreatorID   string  `json:"creator_id"`
	InvoiceID   string  `json:"invoice_id"`
	Number      string  `json:"number"`
	Fee         float64 `json:"fee"`
	Credit      float64 `json:"credit"`
	Total       float64 `json:"total"`
	Commissions int64   `json:"commissions"`
	// BillingPending is set when the local invoice committed but external
	// billing failed; the invoice stays pending for a later retry.
	BillingPending bool   `json:"billing_pending,omitempty"`
	BillingError   string `json:"billing_error,omitempty"`
}

type SkippedEntry struct {
	CreatorID string  `json:"creator_id"`
	Reason    string  `json:"reason"`
	Fee       float64 `json:"fee,omitempty"`
}

type RunErrorEntry struct {
	CreatorID string `json:"creator_id"`
	Error     string `json:"error"`
}

// RunInvoicing bills every creator's platform fee for the period. The run is
// serialized behind a distributed lock; within a run creators are processed
// one at a time and a failure for one never aborts the others.
func (s *Service) RunInvoicing(ctx context.Context, window commissiondomain.Window) (*RunResult, error) {
	release, err := s.locker.Acquire(ctx, runLockName, runLockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrRunInProgress
		}
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("release invoicing lock failed", zap.Error(err))
		}
	}()

	result := &RunResult{
		RunID:       s.newULID().String(),
		PeriodStart: window.From,
		PeriodEnd:   window.To,
		Invoiced:    []InvoicedEntry{},
		Skipped:     []SkippedEntry{},
		Errors:      []RunErrorEntry{},
	}
	log := s.log.With(zap.String("run_id", result.RunID))

	creators, err := s.creatorRepo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	for _, creator := range creators {
		entry, skip, err := s.invoiceCreator(ctx, creator, window)
		switch {
		case err != nil:
			metrics.Jobs().IncInvoicingOutcome("error")
			log.Error("invoicing creator failed",
				zap.String("creator_id", creator.ID.String()),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, RunErrorEntry{
				CreatorID: creator.ID.String(),
				Error:     err.Error(),
			})
		case skip != nil:
			metrics.Jobs().IncInvoicingOutcome("skipped")
			result.Skipped = append(result.Skipped, *skip)
		default:
			metrics.Jobs().IncInvoicingOutcome("invoiced")
			result.Invoiced = append(result.Invoiced, *entry)
		}
	}

	log.Info("invoicing run finished",
		zap.Int("invoiced", len(result.Invoiced)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// invoiceCreator is the per-creator unit of work. The local side (invoice
// row, commission flags, refund credit, counters) commits in one
// transaction; external billing runs after the commit so a provider outage
// can never roll back ledger state.
func (s *Service) invoiceCreator(ctx context.Context, creator *creatordomain.Creator, window commissiondomain.Window) (*InvoicedEntry, *SkippedEntry, error) {
	rows, err := s.commissionRepo.ListUninvoicedReferred(ctx, s.db, creator.ID, window)
	if err != nil {
		return nil, nil, err
	}

	var referred float64
	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		referred += row.SaleAmount
		ids = append(ids, row.ID)
	}

	report := BuildValueReport(creator.ID, window, commissiondomain.RevenuePartition{
		ReferredRevenue: referred,
		ReferredCount:   int64(len(rows)),
	}, s.feePercent())

	eligibility := report.Eligibility(s.invoiceMinimum())
	if !eligibility.ShouldInvoice {
		return nil, &SkippedEntry{
			CreatorID: creator.ID.String(),
			Reason:    eligibility.Reason,
			Fee:       eligibility.Fee,
		}, nil
	}

	now := s.clock.Now()
	credit := money.Round2(creator.PendingRefundCredit)
	// Credit never drives an invoice negative. The consumed amount is capped
	// at the fee and the unconsumed remainder stays on the creator for the
	// next run.
	if money.GreaterByCent(credit, eligibility.Fee) {
		credit = eligibility.Fee
	}
	total := money.Round2(eligibility.Fee - credit)
	dueAt := now.AddDate(0, 0, 14)

	inv := &invoicedomain.Invoice{
		ID:              s.genID.Generate(),
		Number:          fmt.Sprintf("FW-%s", s.newULID()),
		CreatorID:       creator.ID,
		PeriodStart:     window.From,
		PeriodEnd:       window.To,
		FeeAmount:       eligibility.Fee,
		RefundCredit:    credit,
		TotalAmount:     total,
		ReferredRevenue: report.ReferredRevenue,
		CommissionCount: int64(len(rows)),
		Status:          invoicedomain.StatusPending,
		DueAt:           &dueAt,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.invoiceRepo.Insert(ctx, tx, inv); err != nil {
			return err
		}
		affected, err := s.commissionRepo.MarkInvoiced(ctx, tx, ids, inv.ID)
		if err != nil {
			return err
		}
		if affected != int64(len(ids)) {
			return fmt.Errorf("marked %d of %d commissions, concurrent invoicing suspected", affected, len(ids))
		}
		if credit > 0 {
			if err := s.creatorRepo.ConsumeRefundCredit(ctx, tx, creator.ID, credit); err != nil {
				return err
			}
		}
		return s.creatorRepo.BumpInvoicedCounters(ctx, tx, creator.ID, total)
	})
	if err != nil {
		return nil, nil, err
	}

	entry := &InvoicedEntry{
		CreatorID:   creator.ID.String(),
		InvoiceID:   inv.ID.String(),
		Number:      inv.Number,
		Fee:         inv.FeeAmount,
		Credit:      inv.RefundCredit,
		Total:       inv.TotalAmount,
		Commissions: inv.CommissionCount,
	}

	if err := s.sendToBilling(ctx, creator, inv); err != nil {
		entry.BillingPending = true
		entry.BillingError = err.Error()
		s.log.Warn("external billing failed, invoice kept pending",
			zap.String("invoice_id", inv.ID.String()),
			zap.Error(err),
		)
	}
	return entry, nil, nil
}

// sendToBilling pushes the committed invoice to the billing provider and
// promotes it to sent. A noop provider returns empty ids and leaves the
// invoice pending.
func (s *Service) sendToBilling(ctx context.Context, creator *creatordomain.Creator, inv *invoicedomain.Invoice) error {
	customerID := creator.BillingCustomerID
	if customerID == "" {
		id, err := s.billing.CreateCustomer(ctx, creator.ExternalID, creator.Name, creator.Email)
		if err != nil {
			return err
		}
		if id == "" {
			return nil
		}
		customerID = id
		if err := s.creatorRepo.UpdateBillingCustomerID(ctx, s.db, creator.ID, customerID); err != nil {
			return err
		}
	}

	externalID, err := s.billing.CreateInvoice(ctx, customerID, map[string]string{
		"invoice_number": inv.Number,
		"creator_id":     creator.ID.String(),
	})
	if err != nil {
		return err
	}
	if externalID == "" {
		return nil
	}

	for _, line := range s.invoiceSvc.Lines(inv) {
		if err := s.billing.AddLineItem(ctx, externalID, line.Description, line.Amount); err != nil {
			return err
		}
	}
	if err := s.billing.FinalizeInvoice(ctx, externalID); err != nil {
		return err
	}
	if err := s.billing.SendInvoice(ctx, externalID); err != nil {
		return err
	}

	if err := s.invoiceRepo.SetExternalID(ctx, s.db, inv.ID, externalID); err != nil {
		return err
	}
	return s.invoiceRepo.UpdateStatus(ctx, s.db, inv.ID, invoicedomain.StatusSent, s.clock.Now())
}

func (s *Service) newULID() ulid.ULID {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.clock.Now()), s.entropy)
}
