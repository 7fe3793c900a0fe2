package domain

import (
	"context"
	"time"

	"github.com/blackbridgeaiagency-star/flywheel/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalInvoiceID string) (*Invoice, error)
	ListByCreator(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, page pagination.Pagination) ([]Invoice, *pagination.PageInfo, error)

	// UpdateStatus writes the new status plus its timestamp column. Legality
	// of the transition is the service's concern.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status InvoiceStatus, at time.Time) error
	SetExternalID(ctx context.Context, db *gorm.DB, id snowflake.ID, externalInvoiceID string) error
}
