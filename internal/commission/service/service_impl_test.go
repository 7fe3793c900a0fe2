package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	commissionrepo "github.com/blackbridgeaiagency-star/flywheel/internal/commission/repository"
	"github.com/blackbridgeaiagency-star/flywheel/internal/commission/service"
	"github.com/blackbridgeaiagency-star/flywheel/internal/config"
	creatordomain "github.com/blackbridgeaiagency-star/flywheel/internal/creator/domain"
	creatorrepo "github.com/blackbridgeaiagency-star/flywheel/internal/creator/repository"
	memberdomain "github.com/blackbridgeaiagency-star/flywheel/internal/member/domain"
	memberrepo "github.com/blackbridgeaiagency-star/flywheel/internal/member/repository"
	"github.com/blackbridgeaiagency-star/flywheel/internal/tier"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/money"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestRecordSaleReferredSplit(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	svc := newService(t, db, node)

	creator := seedCreator(t, db, node)
	referrer := seedMember(t, db, node, creator.ID, nil)
	buyer := seedMember(t, db, node, creator.ID, &referrer.ID)

	row, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
		MembershipID:      buyer.MembershipID,
		ExternalPaymentID: "pay_1",
		Amount:            99.99,
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	// Referrer has no paid referrals yet, so the starter rate applies.
	if !money.Equal(row.MemberShare, 10.00) {
		t.Errorf("member share = %v, want 10.00", row.MemberShare)
	}
	if !money.Equal(row.PlatformShare, 20.00) {
		t.Errorf("platform share = %v, want 20.00", row.PlatformShare)
	}
	if sum := row.MemberShare + row.CreatorShare + row.PlatformShare; sum != row.SaleAmount {
		t.Errorf("split sum = %v, want exactly %v", sum, row.SaleAmount)
	}
	if row.ReferrerID == nil || *row.ReferrerID != referrer.ID {
		t.Errorf("referrer = %v, want %v", row.ReferrerID, referrer.ID)
	}
	if row.Status != domain.StatusPaid {
		t.Errorf("status = %v, want paid", row.Status)
	}
}

func TestRecordSaleOrganicKeepsFullAmount(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	svc := newService(t, db, node)

	creator := seedCreator(t, db, node)
	buyer := seedMember(t, db, node, creator.ID, nil)

	row, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
		MembershipID:      buyer.MembershipID,
		ExternalPaymentID: "pay_organic",
		Amount:            50,
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if row.MemberShare != 0 || row.PlatformShare != 0 {
		t.Errorf("organic sale carries shares: member=%v platform=%v", row.MemberShare, row.PlatformShare)
	}
	if row.CreatorShare != 50 {
		t.Errorf("creator share = %v, want 50", row.CreatorShare)
	}
	if row.ReferrerID != nil {
		t.Errorf("organic sale has referrer %v", row.ReferrerID)
	}
}

func TestRecordSaleUsesReferrerTierRate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	svc := newService(t, db, node)

	creator := seedCreator(t, db, node)
	referrer := seedMember(t, db, node, creator.ID, nil)
	buyer := seedMember(t, db, node, creator.ID, &referrer.ID)

	// 50 distinct paid referrals put the referrer in the ambassador bracket.
	for i := 0; i < 50; i++ {
		seedPaidCommission(t, db, node, creator.ID, referrer.ID, 10)
	}

	row, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
		MembershipID:      buyer.MembershipID,
		ExternalPaymentID: "pay_tiered",
		Amount:            100,
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if !money.Equal(row.MemberShare, 15.00) {
		t.Errorf("member share = %v, want ambassador rate 15.00", row.MemberShare)
	}
}

func TestRecordSaleReplayReturnsOriginal(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	svc := newService(t, db, node)

	creator := seedCreator(t, db, node)
	buyer := seedMember(t, db, node, creator.ID, nil)

	first, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
		MembershipID:      buyer.MembershipID,
		ExternalPaymentID: "pay_replay",
		Amount:            30,
	})
	if err != nil {
		t.Fatalf("first sale: %v", err)
	}

	second, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
		MembershipID:      buyer.MembershipID,
		ExternalPaymentID: "pay_replay",
		Amount:            9999,
	})
	if err != nil {
		t.Fatalf("replayed sale: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("replay created a new row: %v != %v", second.ID, first.ID)
	}
	if second.SaleAmount != 30 {
		t.Errorf("replay repriced the row to %v", second.SaleAmount)
	}

	var count int64
	if err := db.Model(&domain.Commission{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("ledger rows = %d, want 1", count)
	}
}

func TestRecordSaleValidation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	svc := newService(t, db, node)

	if _, err := svc.RecordSale(ctx, domain.RecordSaleRequest{ExternalPaymentID: "", Amount: 10}); !errors.Is(err, domain.ErrInvalidSale) {
		t.Errorf("empty payment id: err = %v, want ErrInvalidSale", err)
	}
	if _, err := svc.RecordSale(ctx, domain.RecordSaleRequest{ExternalPaymentID: "pay_x", Amount: 0}); !errors.Is(err, domain.ErrInvalidSale) {
		t.Errorf("zero amount: err = %v, want ErrInvalidSale", err)
	}
	if _, err := svc.RecordSale(ctx, domain.RecordSaleRequest{MembershipID: "nope", ExternalPaymentID: "pay_x", Amount: 10}); !errors.Is(err, domain.ErrUnknownMember) {
		t.Errorf("unknown member: err = %v, want ErrUnknownMember", err)
	}
}

func TestRecordRefundFlipsStatus(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	svc := newService(t, db, node)

	creator := seedCreator(t, db, node)
	buyer := seedMember(t, db, node, creator.ID, nil)

	if _, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
		MembershipID:      buyer.MembershipID,
		ExternalPaymentID: "pay_refund",
		Amount:            25,
	}); err != nil {
		t.Fatalf("record sale: %v", err)
	}

	row, err := svc.RecordRefund(ctx, "pay_refund")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if row.Status != domain.StatusRefunded {
		t.Errorf("status = %v, want refunded", row.Status)
	}

	// An uninvoiced refund accrues no credit.
	var got creatordomain.Creator
	if err := db.First(&got, "id = ?", creator.ID).Error; err != nil {
		t.Fatalf("reload creator: %v", err)
	}
	if got.PendingRefundCredit != 0 {
		t.Errorf("refund credit = %v, want 0", got.PendingRefundCredit)
	}

	// Refund replay is a no-op.
	again, err := svc.RecordRefund(ctx, "pay_refund")
	if err != nil {
		t.Fatalf("replayed refund: %v", err)
	}
	if again.Status != domain.StatusRefunded {
		t.Errorf("replay status = %v", again.Status)
	}
}

func TestRecordRefundCreditsInvoicedFee(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	svc := newService(t, db, node)

	creator := seedCreator(t, db, node)
	referrer := seedMember(t, db, node, creator.ID, nil)

	invoiceID := node.Generate()
	row := domain.Commission{
		ID:                  node.Generate(),
		CreatorID:           creator.ID,
		MemberID:            node.Generate(),
		ReferrerID:          &referrer.ID,
		SaleAmount:          100,
		MemberShare:         10,
		CreatorShare:        70,
		PlatformShare:       20,
		Status:              domain.StatusPaid,
		PaymentType:         domain.PaymentInitial,
		PlatformFeeInvoiced: true,
		InvoiceID:           &invoiceID,
		ExternalPaymentID:   "pay_invoiced",
		Metadata:            datatypes.JSONMap{},
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed commission: %v", err)
	}

	if _, err := svc.RecordRefund(ctx, "pay_invoiced"); err != nil {
		t.Fatalf("refund: %v", err)
	}

	var got creatordomain.Creator
	if err := db.First(&got, "id = ?", creator.ID).Error; err != nil {
		t.Fatalf("reload creator: %v", err)
	}
	if !money.Equal(got.PendingRefundCredit, 20) {
		t.Errorf("refund credit = %v, want 20", got.PendingRefundCredit)
	}
}

func TestRecordRefundUnknownPayment(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)
	svc := newService(t, db, node)

	if _, err := svc.RecordRefund(ctx, "pay_missing"); !errors.Is(err, domain.ErrCommissionNotFound) {
		t.Errorf("err = %v, want ErrCommissionNotFound", err)
	}
}

func newService(t *testing.T, db *gorm.DB, node *snowflake.Node) domain.Service {
	t.Helper()
	holder := config.NewStaticProgramConfigHolder(config.DefaultProgramConfig())
	return service.New(service.ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        commissionrepo.Provide(),
		MemberRepo:  memberrepo.Provide(),
		CreatorRepo: creatorrepo.Provide(),
		Tiers:       tier.NewResolver(holder),
		Program:     holder,
	})
}

func seedCreator(t *testing.T, db *gorm.DB, node *snowflake.Node) *creatordomain.Creator {
	t.Helper()
	id := node.Generate()
	creator := creatordomain.Creator{
		ID:          id,
		ExternalID:  fmt.Sprintf("ext_%s", id),
		Name:        fmt.Sprintf("Creator %s", id.Base36()),
		Slug:        fmt.Sprintf("creator-%s", id.Base36()),
		Competition: datatypes.JSONMap{},
		Metadata:    datatypes.JSONMap{},
	}
	if err := db.Create(&creator).Error; err != nil {
		t.Fatalf("seed creator: %v", err)
	}
	return &creator
}

func seedMember(t *testing.T, db *gorm.DB, node *snowflake.Node, creatorID snowflake.ID, referredBy *snowflake.ID) *memberdomain.Member {
	t.Helper()
	id := node.Generate()
	member := memberdomain.Member{
		ID:           id,
		CreatorID:    creatorID,
		MembershipID: fmt.Sprintf("mem_%s", id),
		Username:     fmt.Sprintf("user_%s", id.Base36()),
		ReferralCode: fmt.Sprintf("code-%s", id.Base36()),
		ReferredBy:   referredBy,
		Origin:       memberdomain.OriginOrganic,
		Metadata:     datatypes.JSONMap{},
	}
	if referredBy != nil {
		member.Origin = memberdomain.OriginReferred
	}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return &member
}

func seedPaidCommission(t *testing.T, db *gorm.DB, node *snowflake.Node, creatorID, referrerID snowflake.ID, amount float64) {
	t.Helper()
	row := domain.Commission{
		ID:                node.Generate(),
		CreatorID:         creatorID,
		MemberID:          node.Generate(),
		ReferrerID:        &referrerID,
		SaleAmount:        amount,
		MemberShare:       amount * 0.10,
		CreatorShare:      amount * 0.70,
		PlatformShare:     amount * 0.20,
		Status:            domain.StatusPaid,
		PaymentType:       domain.PaymentInitial,
		ExternalPaymentID: fmt.Sprintf("pay_%s", node.Generate()),
		Metadata:          datatypes.JSONMap{},
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed paid commission: %v", err)
	}
}

func newNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:commission_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&creatordomain.Creator{}, &memberdomain.Member{}, &domain.Commission{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
