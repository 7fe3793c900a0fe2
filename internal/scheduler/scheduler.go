// Package scheduler drives the engine's recurring work: monthly platform-fee
// invoicing, creator revenue-summary refreshes, and referral-counter
// reconciliation.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blackbridgeaiagency-star/flywheel/internal/clock"
	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	creatordomain "github.com/blackbridgeaiagency-star/flywheel/internal/creator/domain"
	memberdomain "github.com/blackbridgeaiagency-star/flywheel/internal/member/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/observability/metrics"
	"github.com/blackbridgeaiagency-star/flywheel/internal/platformfee"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	CreatorSvc creatordomain.Service
	MemberRepo memberdomain.Repository
	FeeSvc     *platformfee.Service
	Config     Config `optional:"true"`
}

type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	creatorSvc creatordomain.Service
	memberRepo memberdomain.Repository
	feeSvc     *platformfee.Service

	lastRevenueRefresh time.Time
	lastInvoicedMonth  time.Time
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.CreatorSvc == nil || p.MemberRepo == nil || p.FeeSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler"),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		creatorSvc: p.CreatorSvc,
		memberRepo: p.MemberRepo,
		feeSvc:     p.FeeSvc,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	jobMetrics := metrics.Jobs()
	jobMetrics.IncJobRun(name)

	err := fn(ctx)
	jobMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		jobMetrics.IncJobTimeout(name)
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}
	jobMetrics.IncJobError(name, err)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{"monthly_invoicing", s.isJobEnabled("monthly_invoicing"), func(ctx context.Context) error {
			return s.runJob(ctx, "monthly_invoicing", 5*time.Minute, s.MonthlyInvoicingJob)
		}},
		{"revenue_refresh", s.isJobEnabled("revenue_refresh"), func(ctx context.Context) error {
			return s.runJob(ctx, "revenue_refresh", 2*time.Minute, s.RevenueRefreshJob)
		}},
		{"referral_recount", s.isJobEnabled("referral_recount"), func(ctx context.Context) error {
			return s.runJob(ctx, "referral_recount", time.Minute, s.ReferralRecountJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// MonthlyInvoicingJob bills the previous calendar month once per month. The
// tick fires every minute, so the job gates on the month boundary itself;
// a rerun after a crash is safe because the run is idempotent end to end.
func (s *Scheduler) MonthlyInvoicingJob(ctx context.Context) error {
	now := s.clock.Now()
	currentMonth := clock.StartOfMonth(now)
	if !s.lastInvoicedMonth.Before(currentMonth) {
		return nil
	}

	window := commissiondomain.Window{
		From: clock.StartOfPreviousMonth(now),
		To:   currentMonth,
	}
	result, err := s.feeSvc.RunInvoicing(ctx, window)
	if err != nil {
		if errors.Is(err, platformfee.ErrRunInProgress) {
			s.log.Info("invoicing already running elsewhere, will retry next tick")
			return nil
		}
		return err
	}

	s.lastInvoicedMonth = currentMonth
	s.log.Info("monthly invoicing done",
		zap.String("run_id", result.RunID),
		zap.Time("period_start", window.From),
		zap.Int("invoiced", len(result.Invoiced)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("errors", len(result.Errors)),
	)
	return nil
}

// RevenueRefreshJob recomputes every creator's cached revenue fields from
// the ledger.
func (s *Scheduler) RevenueRefreshJob(ctx context.Context) error {
	now := s.clock.Now()
	if now.Sub(s.lastRevenueRefresh) < s.cfg.RevenueRefreshInterval {
		return nil
	}

	creators, err := s.creatorSvc.List(ctx)
	if err != nil {
		return err
	}
	var errs error
	for _, creator := range creators {
		if _, err := s.creatorSvc.RefreshRevenueSummary(ctx, creator.ID); err != nil {
			errs = errors.Join(errs, fmt.Errorf("creator %s: %w", creator.ID, err))
		}
	}
	if errs != nil {
		return errs
	}
	s.lastRevenueRefresh = now
	return nil
}

// ReferralRecountJob reconciles the derived total_referred counters against
// the member rows, catching any drift from crashed upserts.
func (s *Scheduler) ReferralRecountJob(ctx context.Context) error {
	touched, err := s.memberRepo.RecomputeAllTotalReferred(ctx, s.db)
	if err != nil {
		return err
	}
	s.log.Debug("referral counters reconciled", zap.Int64("rows", touched))
	return nil
}
