package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	deliverydomain "github.com/smallbiznis/recurra/internal/delivery/domain"
)

// contextSkippedItemsKey is read by the request logger.
const contextSkippedItemsKey = "skipped_items"

func (s *Server) GetTeamDashboard(c *gin.Context) {
	resp, err := s.deliverySvc.TeamDashboard(c.Request.Context(), deliverydomain.DashboardRequest{
		TeamID: strings.TrimSpace(c.Param("team_id")),
		Date:   strings.TrimSpace(c.Query("date")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(contextSkippedItemsKey, len(resp.DataQuality.SkippedItems))
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProductionSheet(c *gin.Context) {
	resp, err := s.productionSheet(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(contextSkippedItemsKey, len(resp.DataQuality.SkippedItems))
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProductionSheetPDF(c *gin.Context) {
	resp, err := s.productionSheet(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reader, err := s.pdfProvider.GenerateProductionSheet(c.Request.Context(), *resp)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("production-%s-%s.pdf", resp.Range.Start, resp.Range.End)
	c.Set(contextSkippedItemsKey, len(resp.DataQuality.SkippedItems))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", body)
}

func (s *Server) productionSheet(c *gin.Context) (*deliverydomain.ProductionResponse, error) {
	return s.deliverySvc.ProductionSheet(c.Request.Context(), deliverydomain.ProductionRequest{
		TeamID: strings.TrimSpace(c.Param("team_id")),
		Start:  strings.TrimSpace(c.Query("start")),
		End:    strings.TrimSpace(c.Query("end")),
	})
}

func (s *Server) GetCustomerUpcoming(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a non-negative integer"))
		return
	}

	resp, err := s.deliverySvc.CustomerUpcoming(c.Request.Context(), deliverydomain.UpcomingRequest{
		CustomerID: strings.TrimSpace(c.Param("customer_id")),
		Limit:      limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(contextSkippedItemsKey, len(resp.DataQuality.SkippedItems))
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, ErrInvalidRequest
	}
	return limit, nil
}
