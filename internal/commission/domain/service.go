package domain

import (
	"context"
	"errors"
)

// RecordSaleRequest carries the fields a payment webhook supplies.
type RecordSaleRequest struct {
	MembershipID      string         `json:"membership_id"`
	ExternalPaymentID string         `json:"external_payment_id"`
	Amount            float64        `json:"amount"`
	PaymentType       string         `json:"payment_type"`
	Metadata          map[string]any `json:"metadata"`
}

type Service interface {
	// RecordSale writes one split ledger row for a paid sale. Replayed
	// webhooks with an already-seen external payment id return the original
	// row unchanged.
	RecordSale(ctx context.Context, req RecordSaleRequest) (*Commission, error)

	// RecordRefund flips a paid row to refunded. When the platform fee for
	// the row was already invoiced, the fee is credited back to the creator
	// against their next invoice.
	RecordRefund(ctx context.Context, externalPaymentID string) (*Commission, error)

	GetByID(ctx context.Context, id string) (*Commission, error)
}

var (
	ErrCommissionNotFound = errors.New("commission_not_found")
	ErrInvalidSale        = errors.New("invalid_sale")
	ErrUnknownMember      = errors.New("unknown_member")
)
