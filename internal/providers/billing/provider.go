// Package billing talks to the external billing collaborator that actually
// charges creators. The engine only creates and sends invoices; payment
// collection and dunning live on the provider side and come back as
// webhooks.
package billing

import "context"

// Provider is the minimal invoice surface of the billing API, in the order
// invoicing calls it: customer, invoice shell, lines, finalize, send.
type Provider interface {
	// CreateCustomer returns the provider's customer id, creating the
	// customer when the external reference is unknown.
	CreateCustomer(ctx context.Context, externalRef, name, email string) (string, error)
	CreateInvoice(ctx context.Context, customerID string, metadata map[string]string) (string, error)
	// AddLineItem accepts negative amounts for credit lines.
	AddLineItem(ctx context.Context, invoiceID, description string, amount float64) error
	FinalizeInvoice(ctx context.Context, invoiceID string) error
	SendInvoice(ctx context.Context, invoiceID string) error
}

// NoOpProvider satisfies Provider without side effects, for local runs
// without billing credentials. Invoices stay pending locally.
type NoOpProvider struct{}

func (p *NoOpProvider) CreateCustomer(ctx context.Context, externalRef, name, email string) (string, error) {
	return "", nil
}

func (p *NoOpProvider) CreateInvoice(ctx context.Context, customerID string, metadata map[string]string) (string, error) {
	return "", nil
}

func (p *NoOpProvider) AddLineItem(ctx context.Context, invoiceID, description string, amount float64) error {
	return nil
}

func (p *NoOpProvider) FinalizeInvoice(ctx context.Context, invoiceID string) error {
	return nil
}

func (p *NoOpProvider) SendInvoice(ctx context.Context, invoiceID string) error {
	return nil
}
