// Package domain contains persistence models for platform-fee invoices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// InvoiceStatus tracks the billing lifecycle of one invoice.
type InvoiceStatus string

const (
	StatusPending InvoiceStatus = "pending"
	StatusSent    InvoiceStatus = "sent"
	StatusPaid    InvoiceStatus = "paid"
	StatusOverdue InvoiceStatus = "overdue"
)

// Invoice is one creator's platform fee for one billing period.
//
// FeeAmount and RefundCredit are frozen at creation from the ledger rows the
// invoice covers; TotalAmount = FeeAmount - RefundCredit. The row starts
// pending and moves to sent once the external billing provider accepts it,
// then to paid or overdue on webhook events.
type Invoice struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Number    string       `gorm:"type:text;not null;uniqueIndex"`
	CreatorID snowflake.ID `gorm:"not null;index"`

	PeriodStart time.Time `gorm:"not null"`
	PeriodEnd   time.Time `gorm:"not null"`

	FeeAmount       float64 `gorm:"not null"`
	RefundCredit    float64 `gorm:"not null;default:0"`
	TotalAmount     float64 `gorm:"not null"`
	ReferredRevenue float64 `gorm:"not null;default:0"`
	CommissionCount int64   `gorm:"not null;default:0"`

	Status            InvoiceStatus `gorm:"type:text;not null;index"`
	ExternalInvoiceID string        `gorm:"type:text;index"`

	SentAt *time.Time
	PaidAt *time.Time
	DueAt  *time.Time

	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// LineItem is one rendered line of an invoice. Lines are derived, not
// stored; the fee and refund credit on the row are the source of truth.
type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}
