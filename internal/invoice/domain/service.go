package domain

import (
	"context"
	"errors"

	"github.com/blackbridgeaiagency-star/flywheel/pkg/db/pagination"
)

// BillingEvent is a payment-provider webhook about one invoice, matched to
// the local row by the provider's invoice id.
type BillingEvent struct {
	Type              string `json:"type"`
	ExternalInvoiceID string `json:"external_invoice_id"`
}

// Billing event types the engine reacts to.
const (
	EventInvoicePaid          = "invoice.paid"
	EventInvoicePaymentFailed = "invoice.payment_failed"
	EventInvoiceOverdue       = "invoice.overdue"
)

type Service interface {
	GetByID(ctx context.Context, id string) (*Invoice, error)
	ListByCreator(ctx context.Context, creatorID string, page pagination.Pagination) ([]Invoice, *pagination.PageInfo, error)

	// HandleBillingEvent transitions the matching invoice. Unknown event
	// types are ignored; a paid invoice never regresses.
	HandleBillingEvent(ctx context.Context, event BillingEvent) (*Invoice, error)

	// Lines derives the rendered line items for an invoice.
	Lines(invoice *Invoice) []LineItem
}

var (
	ErrInvoiceNotFound     = errors.New("invoice_not_found")
	ErrInvalidTransition   = errors.New("invalid_invoice_transition")
	ErrUnknownBillingEvent = errors.New("unknown_billing_event")
)
