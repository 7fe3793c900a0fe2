package repository

import (
	"context"
	"time"

	"github.com/blackbridgeaiagency-star/flywheel/internal/invoice/domain"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/db/option"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/db/pagination"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/repository"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Invoice rows are simple keyed lookups, so the repo rides on the generic
// store instead of hand-written queries.
type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) store(db *gorm.DB) repository.Repository[domain.Invoice] {
	return repository.ProvideStore[domain.Invoice](db)
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return r.store(db).Create(ctx, invoice)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return r.store(db).FindOne(ctx, &domain.Invoice{ID: id})
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalInvoiceID string) (*domain.Invoice, error) {
	return r.store(db).FindOne(ctx, &domain.Invoice{ExternalInvoiceID: externalInvoiceID})
}

// ListByCreator pages newest first on a descending id keyset.
func (r *repo) ListByCreator(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, page pagination.Pagination) ([]domain.Invoice, *pagination.PageInfo, error) {
	rows, err := r.store(db).Find(ctx, &domain.Invoice{},
		option.WithWhere("creator_id = ?", creatorID),
		option.WithOrder("id desc"),
		option.ApplyPagination(page),
	)
	if err != nil {
		return nil, nil, err
	}

	rows, info := pagination.TrimPage(rows, page.Limit(), func(inv *domain.Invoice) string {
		return pagination.EncodeCursor(pagination.Cursor{ID: inv.ID.String()})
	})
	invoices := make([]domain.Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, *row)
	}
	return invoices, info, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.InvoiceStatus, at time.Time) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": at,
	}
	switch status {
	case domain.StatusSent:
		updates["sent_at"] = at
	case domain.StatusPaid:
		updates["paid_at"] = at
	}
	return db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repo) SetExternalID(ctx context.Context, db *gorm.DB, id snowflake.ID, externalInvoiceID string) error {
	return db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"external_invoice_id": externalInvoiceID,
			"updated_at":          time.Now().UTC(),
		}).Error
}
