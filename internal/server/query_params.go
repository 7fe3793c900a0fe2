package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
)

// parseWindow reads optional start/end query params. Missing bounds stay
// zero, which aggregation queries treat as unbounded.
func parseWindow(c *gin.Context) (commissiondomain.Window, error) {
	var window commissiondomain.Window

	start, err := parseTimeParam(c.Query("start"))
	if err != nil {
		return window, newValidationError("start", "invalid_start", "invalid start time")
	}
	end, err := parseTimeParam(c.Query("end"))
	if err != nil {
		return window, newValidationError("end", "invalid_end", "invalid end time")
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return window, newValidationError("end", "invalid_window", "end before start")
	}

	window.From = start
	window.To = end
	return window, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseLimitParam(c *gin.Context, def, max int) int {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
