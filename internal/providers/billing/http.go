package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPProvider is the REST client for the billing API.
type HTTPProvider struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger
}

func NewHTTP(cfg Config, log *zap.Logger) *HTTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &HTTPProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.Named("providers.billing"),
	}
}

type customerResponse struct {
	ID string `json:"id"`
}

type invoiceResponse struct {
	ID string `json:"id"`
}

func (p *HTTPProvider) CreateCustomer(ctx context.Context, externalRef, name, email string) (string, error) {
	var resp customerResponse
	err := p.do(ctx, http.MethodPost, "/v1/customers", map[string]any{
		"external_ref": externalRef,
		"name":         name,
		"email":        email,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (p *HTTPProvider) CreateInvoice(ctx context.Context, customerID string, metadata map[string]string) (string, error) {
	var resp invoiceResponse
	err := p.do(ctx, http.MethodPost, "/v1/invoices", map[string]any{
		"customer_id": customerID,
		"currency":    "usd",
		"metadata":    metadata,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (p *HTTPProvider) AddLineItem(ctx context.Context, invoiceID, description string, amount float64) error {
	return p.do(ctx, http.MethodPost, fmt.Sprintf("/v1/invoices/%s/lines", invoiceID), map[string]any{
		"description": description,
		"amount":      amount,
	}, nil)
}

func (p *HTTPProvider) FinalizeInvoice(ctx context.Context, invoiceID string) error {
	return p.do(ctx, http.MethodPost, fmt.Sprintf("/v1/invoices/%s/finalize", invoiceID), nil, nil)
}

func (p *HTTPProvider) SendInvoice(ctx context.Context, invoiceID string) error {
	return p.do(ctx, http.MethodPost, fmt.Sprintf("/v1/invoices/%s/send", invoiceID), nil, nil)
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		p.log.Warn("billing api error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data),
		)
		return fmt.Errorf("billing api: %s returned %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
