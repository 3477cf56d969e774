package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	deliverydomain "github.com/smallbiznis/recurra/internal/delivery/domain"
	notificationdomain "github.com/smallbiznis/recurra/internal/notification/domain"
	pricingdomain "github.com/smallbiznis/recurra/internal/pricing/domain"
	productdomain "github.com/smallbiznis/recurra/internal/product/domain"
	"github.com/smallbiznis/recurra/internal/ratelimit"
	subscriptiondomain "github.com/smallbiznis/recurra/internal/subscription/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrRateLimited        = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, pricingdomain.ErrDuplicatePriceUpdate):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isDeliveryValidationError(err),
		isPricingValidationError(err),
		isNotificationValidationError(err):
		return true
	default:
		return false
	}
}

func isDeliveryValidationError(err error) bool {
	switch {
	case errors.Is(err, deliverydomain.ErrInvalidTeam),
		errors.Is(err, deliverydomain.ErrInvalidCustomer),
		errors.Is(err, deliverydomain.ErrInvalidLimit),
		errors.Is(err, deliverydomain.ErrInvalidDate),
		errors.Is(err, deliverydomain.ErrInvalidDateRange),
		errors.Is(err, deliverydomain.ErrDateRangeTooLong),
		errors.Is(err, ratelimit.ErrInvalidTeam):
		return true
	default:
		return false
	}
}

func isPricingValidationError(err error) bool {
	switch {
	case errors.Is(err, pricingdomain.ErrInvalidTeam),
		errors.Is(err, pricingdomain.ErrInvalidSubscription),
		errors.Is(err, pricingdomain.ErrInvalidProduct),
		errors.Is(err, pricingdomain.ErrInvalidUnitPrice),
		errors.Is(err, pricingdomain.ErrInvalidEffectiveDate),
		errors.Is(err, pricingdomain.ErrEffectiveDateInPast):
		return true
	default:
		return false
	}
}

func isNotificationValidationError(err error) bool {
	switch {
	case errors.Is(err, notificationdomain.ErrInvalidCustomer),
		errors.Is(err, notificationdomain.ErrInvalidTitle),
		errors.Is(err, notificationdomain.ErrInvalidMessage):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, pricingdomain.ErrSubscriptionNotFound),
		errors.Is(err, pricingdomain.ErrProductNotFound),
		errors.Is(err, subscriptiondomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

var validationFields = map[string]string{
	"invalid_request":        "request",
	"invalid_date":           "date",
	"invalid_date_range":     "end",
	"date_range_too_long":    "end",
	"effective_date_in_past": "effective_date",
	"invalid_unit_price":     "new_unit_price",
}

func validationErrorField(code string) string {
	if field, ok := validationFields[code]; ok {
		return field
	}
	return strings.TrimPrefix(code, "invalid_")
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_date_range":
		return "end must not be before start"
	case "date_range_too_long":
		return "date range is too long"
	case "effective_date_in_past":
		return "effective date must not be in the past"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog returns the error type and code written to the request log.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
