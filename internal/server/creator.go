package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/blackbridgeaiagency-star/flywheel/pkg/db/pagination"
)

func (s *Server) GetCreatorDashboard(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	dash, err := s.dashboardSvc.CreatorDashboard(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dash})
}

func (s *Server) GetValueReport(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	creatorID, err := snowflake.ParseString(id)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	window, err := parseWindow(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Resolve first so unknown creators 404 instead of reporting zeros.
	if _, err := s.creatorSvc.GetByID(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	report, err := s.feeSvc.ValueReport(c.Request.Context(), creatorID, window)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) GetLeaderboard(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	creatorID, err := snowflake.ParseString(id)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	if _, err := s.creatorSvc.GetByID(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	limit := parseLimitParam(c, 10, 50)

	switch by := strings.TrimSpace(c.DefaultQuery("by", "earnings")); by {
	case "earnings":
		window, err := parseWindow(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		rows, err := s.commissionRepo.TopEarners(c.Request.Context(), s.db, creatorID, window, limit)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"by": by, "data": rows})

	case "referrals":
		rows, err := s.memberRepo.TopReferrers(c.Request.Context(), s.db, creatorID, limit)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"by": by, "data": rows})

	default:
		AbortWithError(c, newValidationError("by", "invalid_by", "invalid value"))
	}
}

func (s *Server) ListCreatorInvoices(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	if _, err := s.creatorSvc.GetByID(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoices, info, err := s.invoiceSvc.ListByCreator(c.Request.Context(), id, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoices, "page_info": info})
}
