package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	pricingdomain "github.com/smallbiznis/recurra/internal/pricing/domain"
)

func (s *Server) ReconcileSubscription(c *gin.Context) {
	resp, err := s.pricingSvc.ReconcileSubscription(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SchedulePriceUpdate(c *gin.Context) {
	var req pricingdomain.SchedulePriceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TeamID = strings.TrimSpace(c.Param("team_id"))

	resp, err := s.pricingSvc.SchedulePriceUpdate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
