package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	notificationdomain "github.com/smallbiznis/recurra/internal/notification/domain"
)

func (s *Server) ListCustomerNotifications(c *gin.Context) {
	customerID, err := snowflake.ParseString(strings.TrimSpace(c.Param("customer_id")))
	if err != nil || customerID <= 0 {
		AbortWithError(c, notificationdomain.ErrInvalidCustomer)
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a non-negative integer"))
		return
	}

	items, err := s.notificationSvc.ListForCustomer(c.Request.Context(), customerID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
