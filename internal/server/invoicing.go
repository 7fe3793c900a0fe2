package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blackbridgeaiagency-star/flywheel/internal/clock"
	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
)

type runInvoicingRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// RunInvoicing triggers a platform-fee invoicing run outside the scheduler,
// for backfills and reruns. Defaults to the previous calendar month. A
// concurrent run answers 409.
func (s *Server) RunInvoicing(c *gin.Context) {
	var req runInvoicingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	window, err := s.invoicingWindow(req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.feeSvc.RunInvoicing(c.Request.Context(), window)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) invoicingWindow(req runInvoicingRequest) (commissiondomain.Window, error) {
	var window commissiondomain.Window

	if req.PeriodStart == "" && req.PeriodEnd == "" {
		now := s.clk.Now()
		window.From = clock.StartOfPreviousMonth(now)
		window.To = clock.StartOfMonth(now)
		return window, nil
	}

	start, err := parseTimeParam(req.PeriodStart)
	if err != nil || start.IsZero() {
		return window, newValidationError("period_start", "invalid_period_start", "invalid period start")
	}
	end, err := parseTimeParam(req.PeriodEnd)
	if err != nil || end.IsZero() {
		return window, newValidationError("period_end", "invalid_period_end", "invalid period end")
	}
	if !end.After(start) {
		return window, newValidationError("period_end", "invalid_window", "period end must follow period start")
	}
	if end.Sub(start) > 366*24*time.Hour {
		return window, newValidationError("period_end", "invalid_window", "period too long")
	}

	window.From = start
	window.To = end
	return window, nil
}
