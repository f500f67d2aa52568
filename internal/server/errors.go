package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallgrid/aquabill/internal/authorization"
	billingdomain "github.com/smallgrid/aquabill/internal/billing/domain"
	customerdomain "github.com/smallgrid/aquabill/internal/customer/domain"
	identitydomain "github.com/smallgrid/aquabill/internal/identity/domain"
	"github.com/smallgrid/aquabill/internal/identity/token"
	meterdomain "github.com/smallgrid/aquabill/internal/meter/domain"
	sitedomain "github.com/smallgrid/aquabill/internal/site/domain"
	tariffdomain "github.com/smallgrid/aquabill/internal/tariff/domain"
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
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
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
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case errors.Is(err, identitydomain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_attempts",
			Message: "too many attempts, retry later",
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
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, identitydomain.ErrInvalidEmail),
		errors.Is(err, identitydomain.ErrInvalidPassword),
		errors.Is(err, identitydomain.ErrInvalidID),
		errors.Is(err, identitydomain.ErrInvalidRole),
		errors.Is(err, sitedomain.ErrInvalidName),
		errors.Is(err, sitedomain.ErrInvalidID),
		errors.Is(err, meterdomain.ErrInvalidID),
		errors.Is(err, meterdomain.ErrInvalidMeterNumber),
		errors.Is(err, meterdomain.ErrInvalidMeterType),
		errors.Is(err, meterdomain.ErrInvalidStatus),
		errors.Is(err, customerdomain.ErrInvalidID),
		errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidStatus),
		errors.Is(err, customerdomain.ErrMeterWrongSite),
		errors.Is(err, tariffdomain.ErrInvalidPrice),
		errors.Is(err, billingdomain.ErrInvalidID),
		errors.Is(err, billingdomain.ErrReadingRegression),
		errors.Is(err, billingdomain.ErrNoLinkedMeter),
		errors.Is(err, billingdomain.ErrNoTariff),
		errors.Is(err, billingdomain.ErrInvalidAmount),
		errors.Is(err, authorization.ErrInvalidObject),
		errors.Is(err, authorization.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, identitydomain.ErrInvalidCredentials),
		errors.Is(err, identitydomain.ErrInvalidToken),
		errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, authorization.ErrUnauthenticated):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, identitydomain.ErrNotFound),
		errors.Is(err, sitedomain.ErrNotFound),
		errors.Is(err, meterdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrMeterNotFound),
		errors.Is(err, billingdomain.ErrNotFound),
		errors.Is(err, tariffdomain.ErrNoTariff),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, identitydomain.ErrEmailTaken),
		errors.Is(err, identitydomain.ErrRoleTaken),
		errors.Is(err, sitedomain.ErrDuplicateCode),
		errors.Is(err, sitedomain.ErrDuplicateAssignment),
		errors.Is(err, meterdomain.ErrDuplicateNumber),
		errors.Is(err, customerdomain.ErrMeterAttached),
		errors.Is(err, billingdomain.ErrDuplicateReference):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, customerdomain.ErrMeterAttached):
		return "meter already attached to another customer"
	case errors.Is(err, billingdomain.ErrDuplicateReference):
		return "transaction reference already used"
	default:
		return "conflict"
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "reading_regression":
		return "current reading is below the previous reading"
	case "no_linked_meter":
		return "customer has no linked meter"
	case "no_tariff":
		return "no unit price effective for the reading date"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog maps a handler error to the type and code fields
// emitted by the request logger.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	switch {
	case status >= 500:
		return "server_error", code
	case status == http.StatusTooManyRequests:
		return "rate_limited", code
	case status >= 400:
		return "client_error", code
	default:
		return "", code
	}
}
