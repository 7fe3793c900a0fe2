package server

import (
	"errors"
	"net/http"
	"strings"

	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	invoicedomain "github.com/blackbridgeaiagency-star/flywheel/internal/invoice/domain"
	memberdomain "github.com/blackbridgeaiagency-star/flywheel/internal/member/domain"
	"github.com/gin-gonic/gin"
)

// HandleMembershipWebhook upserts a member from a membership platform event.
// The same payload serves created and updated events, so replays converge.
func (s *Server) HandleMembershipWebhook(c *gin.Context) {
	var req memberdomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	m, err := s.memberSvc.Upsert(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "member_id": m.ID.String()})
}

// Payment event types the engine reacts to. Invoice events are forwarded to
// the invoice service keyed by the provider's invoice id.
const (
	eventPaymentSucceeded = "payment.succeeded"
	eventPaymentRefunded  = "payment.refunded"
)

type paymentEvent struct {
	Type string `json:"type"`

	// sale / refund fields
	MembershipID      string         `json:"membership_id"`
	ExternalPaymentID string         `json:"external_payment_id"`
	Amount            float64        `json:"amount"`
	PaymentType       string         `json:"payment_type"`
	Metadata          map[string]any `json:"metadata"`

	// invoice status fields
	ExternalInvoiceID string `json:"external_invoice_id"`
}

// HandlePaymentWebhook dispatches one payment-provider event. Unknown event
// types are acknowledged and ignored so the provider stops retrying them.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	var event paymentEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	switch {
	case event.Type == eventPaymentSucceeded:
		row, err := s.commissionSvc.RecordSale(c.Request.Context(), commissiondomain.RecordSaleRequest{
			MembershipID:      event.MembershipID,
			ExternalPaymentID: event.ExternalPaymentID,
			Amount:            event.Amount,
			PaymentType:       event.PaymentType,
			Metadata:          event.Metadata,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "commission_id": row.ID.String()})

	case event.Type == eventPaymentRefunded:
		row, err := s.commissionSvc.RecordRefund(c.Request.Context(), event.ExternalPaymentID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "commission_id": row.ID.String()})

	case strings.HasPrefix(event.Type, "invoice."):
		inv, err := s.invoiceSvc.HandleBillingEvent(c.Request.Context(), invoicedomain.BillingEvent{
			Type:              event.Type,
			ExternalInvoiceID: event.ExternalInvoiceID,
		})
		if err != nil {
			if errors.Is(err, invoicedomain.ErrUnknownBillingEvent) {
				c.JSON(http.StatusOK, gin.H{"status": "ignored"})
				return
			}
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "invoice_status": inv.Status})

	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}
