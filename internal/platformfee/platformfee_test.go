package platformfee_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/blackbridgeaiagency-star/flywheel/internal/clock"
	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	commissionrepo "github.com/blackbridgeaiagency-star/flywheel/internal/commission/repository"
	"github.com/blackbridgeaiagency-star/flywheel/internal/config"
	creatordomain "github.com/blackbridgeaiagency-star/flywheel/internal/creator/domain"
	creatorrepo "github.com/blackbridgeaiagency-star/flywheel/internal/creator/repository"
	invoicedomain "github.com/blackbridgeaiagency-star/flywheel/internal/invoice/domain"
	invoicerepo "github.com/blackbridgeaiagency-star/flywheel/internal/invoice/repository"
	invoiceservice "github.com/blackbridgeaiagency-star/flywheel/internal/invoice/service"
	"github.com/blackbridgeaiagency-star/flywheel/internal/lock"
	"github.com/blackbridgeaiagency-star/flywheel/internal/platformfee"
	"github.com/blackbridgeaiagency-star/flywheel/internal/providers/billing"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestValueReportScenario(t *testing.T) {
	node := newNode(t)
	creatorID := node.Generate()

	// $1000 referred revenue costing $100 in member shares: $900 additional,
	// $200 fee, $700 net, 4.5x return.
	report := platformfee.BuildValueReport(creatorID, commissiondomain.Window{}, commissiondomain.RevenuePartition{
		OrganicRevenue:      5000,
		OrganicCount:        50,
		ReferredRevenue:     1000,
		ReferredCount:       10,
		ReferredMemberShare: 100,
	}, 0.20)

	if report.AdditionalRevenue != 900 {
		t.Errorf("additional = %v, want 900", report.AdditionalRevenue)
	}
	if report.PlatformFee != 200 {
		t.Errorf("fee = %v, want 200", report.PlatformFee)
	}
	if report.NetBenefit != 700 {
		t.Errorf("net = %v, want 700", report.NetBenefit)
	}
	if report.ROIMultiple != 4.5 {
		t.Errorf("roi = %v, want 4.5", report.ROIMultiple)
	}
}

func TestValueReportZeroFee(t *testing.T) {
	node := newNode(t)
	report := platformfee.BuildValueReport(node.Generate(), commissiondomain.Window{}, commissiondomain.RevenuePartition{
		OrganicRevenue: 300,
		OrganicCount:   3,
	}, 0.20)

	if report.PlatformFee != 0 || report.ROIMultiple != 0 {
		t.Errorf("fee = %v roi = %v, want both 0", report.PlatformFee, report.ROIMultiple)
	}
}

func TestEligibilityThresholds(t *testing.T) {
	cases := []struct {
		name   string
		count  int64
		fee    float64
		should bool
		reason string
	}{
		{"no referred sales", 0, 0, false, platformfee.SkipNoReferredSales},
		{"just below minimum", 3, 9.99, false, platformfee.SkipBelowMinimum},
		{"exactly minimum", 3, 10.00, true, ""},
		{"above minimum", 3, 25, true, ""},
	}
	for _, tc := range cases {
		report := platformfee.ValueReport{ReferredCount: tc.count, PlatformFee: tc.fee}
		got := report.Eligibility(10.00)
		if got.ShouldInvoice != tc.should || got.Reason != tc.reason {
			t.Errorf("%s: got %+v, want should=%v reason=%q", tc.name, got, tc.should, tc.reason)
		}
	}
}

func TestRunInvoicesEligibleCreator(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	svc, _ := newService(t, db, node)

	creator := seedCreator(t, db, node, 15) // $15 pending refund credit
	member := seedMember(t, db, node, creator.ID)

	// Five referred sales of $100 each: fee 20% = $100.
	for i := 0; i < 5; i++ {
		seedCommission(t, db, node, creator.ID, member, 100, false)
	}
	// An organic sale and an already-invoiced referred sale must not count.
	seedOrganicCommission(t, db, node, creator.ID, 100)
	seedCommission(t, db, node, creator.ID, member, 100, true)

	result, err := svc.RunInvoicing(ctx, commissiondomain.Window{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Invoiced) != 1 || len(result.Skipped) != 0 || len(result.Errors) != 0 {
		t.Fatalf("result = %d invoiced %d skipped %d errors, want 1/0/0",
			len(result.Invoiced), len(result.Skipped), len(result.Errors))
	}

	entry := result.Invoiced[0]
	if entry.Fee != 100 {
		t.Errorf("fee = %v, want 100", entry.Fee)
	}
	if entry.Credit != 15 {
		t.Errorf("credit = %v, want 15", entry.Credit)
	}
	if entry.Total != 85 {
		t.Errorf("total = %v, want 85", entry.Total)
	}
	if entry.Commissions != 5 {
		t.Errorf("commissions = %v, want 5", entry.Commissions)
	}

	var marked int64
	db.Model(&commissiondomain.Commission{}).
		Where("platform_fee_invoiced = ? AND invoice_id IS NOT NULL", true).
		Count(&marked)
	if marked != 6 { // 5 new + 1 pre-seeded
		t.Errorf("marked rows = %d, want 6", marked)
	}

	var updated creatordomain.Creator
	if err := db.First(&updated, "id = ?", creator.ID).Error; err != nil {
		t.Fatalf("reload creator: %v", err)
	}
	if updated.PendingRefundCredit != 0 {
		t.Errorf("pending credit = %v, want 0", updated.PendingRefundCredit)
	}
	if updated.LifetimeInvoicedCount != 1 || updated.LifetimeInvoicedAmount != 85 {
		t.Errorf("lifetime counters = %d/%v, want 1/85", updated.LifetimeInvoicedCount, updated.LifetimeInvoicedAmount)
	}

	var inv invoicedomain.Invoice
	if err := db.First(&inv, "creator_id = ?", creator.ID).Error; err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	// Noop billing provider: invoice committed locally but never sent.
	if inv.Status != invoicedomain.StatusPending {
		t.Errorf("status = %s, want pending", inv.Status)
	}
}

func TestRunCapsCreditAtFee(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	svc, _ := newService(t, db, node)

	// Credit far above the fee: one referred $100 sale yields a $20 fee.
	creator := seedCreator(t, db, node, 150)
	member := seedMember(t, db, node, creator.ID)
	seedCommission(t, db, node, creator.ID, member, 100, false)

	result, err := svc.RunInvoicing(ctx, commissiondomain.Window{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Invoiced) != 1 {
		t.Fatalf("invoiced = %d, want 1", len(result.Invoiced))
	}

	entry := result.Invoiced[0]
	if entry.Fee != 20 || entry.Credit != 20 || entry.Total != 0 {
		t.Errorf("entry = fee %v credit %v total %v, want 20/20/0", entry.Fee, entry.Credit, entry.Total)
	}

	// The unconsumed remainder stays on the creator for the next run.
	var updated creatordomain.Creator
	if err := db.First(&updated, "id = ?", creator.ID).Error; err != nil {
		t.Fatalf("reload creator: %v", err)
	}
	if updated.PendingRefundCredit != 130 {
		t.Errorf("pending credit = %v, want 130", updated.PendingRefundCredit)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	svc, _ := newService(t, db, node)

	creator := seedCreator(t, db, node, 0)
	member := seedMember(t, db, node, creator.ID)
	for i := 0; i < 5; i++ {
		seedCommission(t, db, node, creator.ID, member, 100, false)
	}

	first, err := svc.RunInvoicing(ctx, commissiondomain.Window{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(first.Invoiced) != 1 {
		t.Fatalf("first run invoiced %d, want 1", len(first.Invoiced))
	}

	second, err := svc.RunInvoicing(ctx, commissiondomain.Window{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second.Invoiced) != 0 {
		t.Fatalf("second run invoiced %d, want 0", len(second.Invoiced))
	}
	if len(second.Skipped) != 1 || second.Skipped[0].Reason != platformfee.SkipNoReferredSales {
		t.Fatalf("second run skipped = %+v, want no_referred_sales", second.Skipped)
	}

	var invoiceCount int64
	db.Model(&invoicedomain.Invoice{}).Count(&invoiceCount)
	if invoiceCount != 1 {
		t.Errorf("invoice count = %d, want 1", invoiceCount)
	}
}

func TestRunSkipsBelowMinimum(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	svc, _ := newService(t, db, node)

	creator := seedCreator(t, db, node, 0)
	member := seedMember(t, db, node, creator.ID)
	// One $49.95 referred sale: fee $9.99, one cent short.
	seedCommission(t, db, node, creator.ID, member, 49.95, false)

	result, err := svc.RunInvoicing(ctx, commissiondomain.Window{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != platformfee.SkipBelowMinimum {
		t.Fatalf("skipped = %+v, want below_minimum", result.Skipped)
	}

	// A nickel more crosses the threshold.
	seedCommission(t, db, node, creator.ID, member, 0.05, false)
	result, err = svc.RunInvoicing(ctx, commissiondomain.Window{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(result.Invoiced) != 1 {
		t.Fatalf("invoiced = %d, want 1 once fee reaches $10.00", len(result.Invoiced))
	}
	if result.Invoiced[0].Fee != 10.00 {
		t.Errorf("fee = %v, want 10.00", result.Invoiced[0].Fee)
	}
}

func TestRunRefusedWhileLocked(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	svc, locker := newService(t, db, node)

	release, err := locker.Acquire(ctx, "flywheel:invoicing:run", time.Minute)
	if err != nil {
		t.Fatalf("pre-acquire: %v", err)
	}
	defer release(ctx)

	if _, err := svc.RunInvoicing(ctx, commissiondomain.Window{}); err != platformfee.ErrRunInProgress {
		t.Fatalf("err = %v, want ErrRunInProgress", err)
	}
}

func TestRunProcessesCreatorsIndependently(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	svc, _ := newService(t, db, node)

	bad := seedCreator(t, db, node, 0)
	good := seedCreator(t, db, node, 0)
	goodMember := seedMember(t, db, node, good.ID)
	badMember := seedMember(t, db, node, bad.ID)

	seedCommission(t, db, node, good.ID, goodMember, 100, false)
	seedCommission(t, db, node, bad.ID, badMember, 100, false)

	// Flag the bad creator's rows as already invoiced so its unit resolves
	// to a skip; the good creator must still be processed.
	if err := db.Model(&commissiondomain.Commission{}).
		Where("creator_id = ?", bad.ID).
		Update("platform_fee_invoiced", true).Error; err != nil {
		t.Fatalf("flag rows: %v", err)
	}

	result, err := svc.RunInvoicing(ctx, commissiondomain.Window{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Invoiced) != 1 || result.Invoiced[0].CreatorID != good.ID.String() {
		t.Fatalf("invoiced = %+v, want only the good creator", result.Invoiced)
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("skipped = %+v, want the bad creator", result.Skipped)
	}
}

func newService(t *testing.T, db *gorm.DB, node *snowflake.Node) (*platformfee.Service, lock.Locker) {
	t.Helper()
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	holder := config.NewStaticProgramConfigHolder(config.DefaultProgramConfig())
	locker := lock.NewLocalLocker()
	invoiceRepo := invoicerepo.Provide()
	invoiceSvc := invoiceservice.New(invoiceservice.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: fake,
		Repo:  invoiceRepo,
	})
	svc := platformfee.New(platformfee.ServiceParam{
		DB:             db,
		Log:            zap.NewNop(),
		GenID:          node,
		Clock:          fake,
		CommissionRepo: commissionrepo.Provide(),
		CreatorRepo:    creatorrepo.Provide(),
		InvoiceRepo:    invoiceRepo,
		InvoiceSvc:     invoiceSvc,
		Billing:        &billing.NoOpProvider{},
		Locker:         locker,
		Program:        holder,
	})
	return svc, locker
}

func seedCreator(t *testing.T, db *gorm.DB, node *snowflake.Node, refundCredit float64) *creatordomain.Creator {
	t.Helper()
	id := node.Generate()
	creator := creatordomain.Creator{
		ID:                  id,
		ExternalID:          fmt.Sprintf("ext_%s", id),
		Name:                fmt.Sprintf("Creator %s", id.Base36()),
		Slug:                fmt.Sprintf("creator-%s", id.Base36()),
		Competition:         datatypes.JSONMap{},
		Metadata:            datatypes.JSONMap{},
		PendingRefundCredit: refundCredit,
	}
	if err := db.Create(&creator).Error; err != nil {
		t.Fatalf("seed creator: %v", err)
	}
	return &creator
}

// seedMember returns a fresh referrer id; commission rows carry the
// referrer without a foreign key, so no member row is needed here.
func seedMember(t *testing.T, db *gorm.DB, node *snowflake.Node, creatorID snowflake.ID) snowflake.ID {
	t.Helper()
	return node.Generate()
}

func seedCommission(t *testing.T, db *gorm.DB, node *snowflake.Node, creatorID, referrerID snowflake.ID, amount float64, invoiced bool) {
	t.Helper()
	commission := commissiondomain.Commission{
		ID:                  node.Generate(),
		CreatorID:           creatorID,
		MemberID:            node.Generate(),
		ReferrerID:          &referrerID,
		SaleAmount:          amount,
		MemberShare:         amount * 0.10,
		CreatorShare:        amount * 0.70,
		PlatformShare:       amount * 0.20,
		Status:              commissiondomain.StatusPaid,
		PaymentType:         commissiondomain.PaymentInitial,
		PlatformFeeInvoiced: invoiced,
		ExternalPaymentID:   fmt.Sprintf("pay_%s", node.Generate()),
		CreatedAt:           time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		UpdatedAt:           time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	if invoiced {
		invoiceID := node.Generate()
		commission.InvoiceID = &invoiceID
	}
	if err := db.Create(&commission).Error; err != nil {
		t.Fatalf("seed commission: %v", err)
	}
}

func seedOrganicCommission(t *testing.T, db *gorm.DB, node *snowflake.Node, creatorID snowflake.ID, amount float64) {
	t.Helper()
	commission := commissiondomain.Commission{
		ID:                node.Generate(),
		CreatorID:         creatorID,
		MemberID:          node.Generate(),
		SaleAmount:        amount,
		CreatorShare:      amount,
		Status:            commissiondomain.StatusPaid,
		PaymentType:       commissiondomain.PaymentInitial,
		ExternalPaymentID: fmt.Sprintf("pay_%s", node.Generate()),
		CreatedAt:         time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&commission).Error; err != nil {
		t.Fatalf("seed organic commission: %v", err)
	}
}

func newNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:platformfee_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&creatordomain.Creator{}, &commissiondomain.Commission{}, &invoicedomain.Invoice{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
