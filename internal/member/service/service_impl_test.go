package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	creatordomain "github.com/blackbridgeaiagency-star/flywheel/internal/creator/domain"
	creatorrepo "github.com/blackbridgeaiagency-star/flywheel/internal/creator/repository"
	"github.com/blackbridgeaiagency-star/flywheel/internal/member/domain"
	memberrepo "github.com/blackbridgeaiagency-star/flywheel/internal/member/repository"
	"github.com/blackbridgeaiagency-star/flywheel/internal/member/service"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestUpsertCreatesOrganicMember(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	creator := seedCreator(t, db)

	m, err := svc.Upsert(ctx, domain.UpsertRequest{
		MembershipID:      "mem_1",
		CreatorExternalID: creator.ExternalID,
		Username:          "Jordan Example",
		PlanPrice:         49,
		BillingCycle:      "monthly",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if m.Origin != domain.OriginOrganic {
		t.Errorf("origin = %v, want organic", m.Origin)
	}
	if m.ReferredBy != nil {
		t.Errorf("organic member has referrer %v", m.ReferredBy)
	}
	if m.ReferralCode == "" {
		t.Error("no referral code generated")
	}
	if m.MonthlyValue != 49 {
		t.Errorf("monthly value = %v, want 49", m.MonthlyValue)
	}
}

func TestUpsertResolvesReferral(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	creator := seedCreator(t, db)

	referrer, err := svc.Upsert(ctx, domain.UpsertRequest{
		MembershipID:      "mem_ref",
		CreatorExternalID: creator.ExternalID,
		Username:          "referrer",
		PlanPrice:         49,
	})
	if err != nil {
		t.Fatalf("upsert referrer: %v", err)
	}

	joined, err := svc.Upsert(ctx, domain.UpsertRequest{
		MembershipID:      "mem_joined",
		CreatorExternalID: creator.ExternalID,
		Username:          "joined",
		PlanPrice:         49,
		ReferralCode:      referrer.ReferralCode,
	})
	if err != nil {
		t.Fatalf("upsert referred: %v", err)
	}
	if joined.Origin != domain.OriginReferred {
		t.Errorf("origin = %v, want referred", joined.Origin)
	}
	if joined.ReferredBy == nil || *joined.ReferredBy != referrer.ID {
		t.Errorf("referred_by = %v, want %v", joined.ReferredBy, referrer.ID)
	}

	var reloaded domain.Member
	if err := db.First(&reloaded, "id = ?", referrer.ID).Error; err != nil {
		t.Fatalf("reload referrer: %v", err)
	}
	if reloaded.TotalReferred != 1 {
		t.Errorf("total_referred = %d, want 1", reloaded.TotalReferred)
	}
}

func TestUpsertIgnoresForeignCreatorCode(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	creatorA := seedCreator(t, db)
	creatorB := seedCreator(t, db)

	referrer, err := svc.Upsert(ctx, domain.UpsertRequest{
		MembershipID:      "mem_a",
		CreatorExternalID: creatorA.ExternalID,
		Username:          "alice",
		PlanPrice:         10,
	})
	if err != nil {
		t.Fatalf("upsert referrer: %v", err)
	}

	// Codes do not cross community boundaries.
	joined, err := svc.Upsert(ctx, domain.UpsertRequest{
		MembershipID:      "mem_b",
		CreatorExternalID: creatorB.ExternalID,
		Username:          "bob",
		PlanPrice:         10,
		ReferralCode:      referrer.ReferralCode,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if joined.Origin != domain.OriginOrganic || joined.ReferredBy != nil {
		t.Errorf("cross-creator code attributed: origin=%v referred_by=%v", joined.Origin, joined.ReferredBy)
	}
}

func TestUpsertIsIdempotentAndRefreshesPlan(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	creator := seedCreator(t, db)

	first, err := svc.Upsert(ctx, domain.UpsertRequest{
		MembershipID:      "mem_1",
		CreatorExternalID: creator.ExternalID,
		Username:          "jordan",
		PlanPrice:         49,
		BillingCycle:      "monthly",
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second, err := svc.Upsert(ctx, domain.UpsertRequest{
		MembershipID:      "mem_1",
		CreatorExternalID: creator.ExternalID,
		Username:          "jordan",
		PlanPrice:         120,
		BillingCycle:      "annual",
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert created a new member: %v != %v", second.ID, first.ID)
	}
	if second.PlanPrice != 120 || second.BillingCycle != "annual" {
		t.Errorf("plan not refreshed: price=%v cycle=%v", second.PlanPrice, second.BillingCycle)
	}
	if second.MonthlyValue != 10 {
		t.Errorf("monthly value = %v, want 10", second.MonthlyValue)
	}
}

func TestUpsertUnknownCreator(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	if _, err := svc.Upsert(ctx, domain.UpsertRequest{
		MembershipID:      "mem_1",
		CreatorExternalID: "nope",
	}); !errors.Is(err, domain.ErrUnknownCreator) {
		t.Errorf("err = %v, want ErrUnknownCreator", err)
	}
}

func TestUpdateReferralCode(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	creator := seedCreator(t, db)
	m, err := svc.Upsert(ctx, domain.UpsertRequest{
		MembershipID:      "mem_1",
		CreatorExternalID: creator.ExternalID,
		Username:          "jordan",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	updated, err := svc.UpdateReferralCode(ctx, domain.UpdateReferralCodeRequest{
		MemberID: m.ID.String(),
		Code:     "My-Code-42",
	})
	if err != nil {
		t.Fatalf("update code: %v", err)
	}
	if updated.ReferralCode != "my-code-42" {
		t.Errorf("code = %q, want normalized my-code-42", updated.ReferralCode)
	}
}

func TestUpdateReferralCodeValidation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	creator := seedCreator(t, db)
	m, err := svc.Upsert(ctx, domain.UpsertRequest{
		MembershipID:      "mem_1",
		CreatorExternalID: creator.ExternalID,
		Username:          "jordan",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	for _, code := range []string{"abc", "has space", "way-too-long-for-a-referral-code", "emoji🚀"} {
		if _, err := svc.UpdateReferralCode(ctx, domain.UpdateReferralCodeRequest{
			MemberID: m.ID.String(),
			Code:     code,
		}); !errors.Is(err, domain.ErrInvalidReferralCode) {
			t.Errorf("code %q: err = %v, want ErrInvalidReferralCode", code, err)
		}
	}
}

func TestUpdateReferralCodeTaken(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	creator := seedCreator(t, db)
	first, err := svc.Upsert(ctx, domain.UpsertRequest{
		MembershipID:      "mem_1",
		CreatorExternalID: creator.ExternalID,
		Username:          "first",
	})
	if err != nil {
		t.Fatalf("upsert first: %v", err)
	}
	second, err := svc.Upsert(ctx, domain.UpsertRequest{
		MembershipID:      "mem_2",
		CreatorExternalID: creator.ExternalID,
		Username:          "second",
	})
	if err != nil {
		t.Fatalf("upsert second: %v", err)
	}

	if _, err := svc.UpdateReferralCode(ctx, domain.UpdateReferralCodeRequest{
		MemberID: second.ID.String(),
		Code:     first.ReferralCode,
	}); !errors.Is(err, domain.ErrReferralCodeTaken) {
		t.Errorf("err = %v, want ErrReferralCodeTaken", err)
	}

	// Re-claiming your own code is a no-op, not a conflict.
	if _, err := svc.UpdateReferralCode(ctx, domain.UpdateReferralCodeRequest{
		MemberID: first.ID.String(),
		Code:     first.ReferralCode,
	}); err != nil {
		t.Errorf("own code: err = %v", err)
	}
}

func TestNormalizeMonthlyValue(t *testing.T) {
	cases := []struct {
		price float64
		cycle string
		want  float64
	}{
		{49, "monthly", 49},
		{120, "annual", 10},
		{240, "lifetime", 10},
		{0, "monthly", 0},
		{-5, "annual", 0},
	}
	for _, tc := range cases {
		if got := service.NormalizeMonthlyValue(tc.price, tc.cycle); got != tc.want {
			t.Errorf("NormalizeMonthlyValue(%v, %q) = %v, want %v", tc.price, tc.cycle, got, tc.want)
		}
	}
}

func newService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return service.New(service.ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        memberrepo.Provide(),
		CreatorRepo: creatorrepo.Provide(),
	})
}

func seedCreator(t *testing.T, db *gorm.DB) *creatordomain.Creator {
	t.Helper()
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
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

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:member_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&creatordomain.Creator{}, &domain.Member{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
