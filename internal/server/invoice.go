package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/blackbridgeaiagency-star/flywheel/internal/providers/pdf"
)

const invoiceDateLayout = "Jan 2, 2006"

func (s *Server) RenderInvoicePDF(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	inv, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	creator, err := s.creatorSvc.GetByID(c.Request.Context(), inv.CreatorID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := pdf.InvoiceData{
		InvoiceNumber: inv.Number,
		IssueDate:     inv.CreatedAt.UTC().Format(invoiceDateLayout),
		ServicePeriod: formatPeriod(inv.PeriodStart, inv.PeriodEnd),
		CreatorName:   creator.Name,
		CreatorEmail:  creator.Email,
		Subtotal:      formatAmount(inv.FeeAmount),
		AmountDue:     formatAmount(inv.TotalAmount),
		Status:        strings.ToUpper(string(inv.Status)),
	}
	if inv.DueAt != nil {
		data.DueDate = inv.DueAt.UTC().Format(invoiceDateLayout)
	}
	for _, line := range s.invoiceSvc.Lines(inv) {
		data.Lines = append(data.Lines, pdf.LineData{
			Description: line.Description,
			Amount:      formatAmount(line.Amount),
		})
	}

	doc, err := s.pdfSvc.RenderInvoice(c.Request.Context(), data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	buf, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", inv.Number))
	c.Data(http.StatusOK, "application/pdf", buf)
}

func formatPeriod(start, end time.Time) string {
	return fmt.Sprintf("%s – %s", start.UTC().Format(invoiceDateLayout), end.UTC().Format(invoiceDateLayout))
}

func formatAmount(amount float64) string {
	if amount < 0 {
		return fmt.Sprintf("-$%.2f", -amount)
	}
	return fmt.Sprintf("$%.2f", amount)
}
