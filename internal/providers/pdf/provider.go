// Package pdf renders platform-fee invoices for download.
package pdf

import (
	"context"
	"io"
)

// InvoiceData is everything the rendered document shows. Amounts arrive
// pre-formatted so the renderer stays free of money math.
type InvoiceData struct {
	InvoiceNumber string
	IssueDate     string
	DueDate       string
	ServicePeriod string

	CreatorName  string
	CreatorEmail string

	Lines []LineData

	Subtotal  string
	AmountDue string
	Status    string
}

// LineData is one rendered invoice line. Credit lines carry a negative
// formatted amount.
type LineData struct {
	Description string
	Amount      string
}

type Provider interface {
	RenderInvoice(ctx context.Context, data InvoiceData) (io.Reader, error)
}
