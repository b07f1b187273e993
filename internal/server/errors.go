package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/shopfinder/internal/audit/domain"
	"github.com/smallbiznis/shopfinder/internal/authorization"
	enforcementdomain "github.com/smallbiznis/shopfinder/internal/enforcement/domain"
	"github.com/smallbiznis/shopfinder/pkg/db/pagination"
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
	Type              string            `json:"type"`
	Message           string            `json:"message"`
	Errors            []ValidationError `json:"errors,omitempty"`
	Score             *int              `json:"score,omitempty"`
	Reasons           []string          `json:"reasons,omitempty"`
	Window            string            `json:"window,omitempty"`
	Cap               int               `json:"cap,omitempty"`
	RetryAfterSeconds int               `json:"retry_after_seconds,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
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
		if payload.RetryAfterSeconds > 0 {
			c.Header("Retry-After", strconv.Itoa(payload.RetryAfterSeconds))
		}
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

	var enfErr *enforcementdomain.Error
	if errors.As(err, &enfErr) {
		return mapEnforcementError(enfErr)
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
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor):
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
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// mapEnforcementError keeps the error kind as the stable type code. Internal
// failures never echo their message.
func mapEnforcementError(err *enforcementdomain.Error) (int, errorPayload) {
	payload := errorPayload{
		Type:    string(err.Kind),
		Message: strings.TrimSpace(err.Message),
	}

	status := http.StatusInternalServerError
	switch err.Kind {
	case enforcementdomain.KindInvalidInput, enforcementdomain.KindInvalidPayload:
		status = http.StatusBadRequest
	case enforcementdomain.KindEligibilityRequired:
		status = http.StatusUnprocessableEntity
	case enforcementdomain.KindRateLimited:
		status = http.StatusTooManyRequests
		payload.Window = err.Window
		payload.Cap = err.Cap
		if err.RetryAfter > 0 {
			payload.RetryAfterSeconds = int(math.Ceil(err.RetryAfter.Seconds()))
		}
	case enforcementdomain.KindBrandBlocked, enforcementdomain.KindChainNotAllowed:
		status = http.StatusForbidden
		payload.Score = err.Score
		payload.Reasons = err.Reasons
	case enforcementdomain.KindNotFound:
		status = http.StatusNotFound
	case enforcementdomain.KindAlreadyReviewed:
		status = http.StatusConflict
	case enforcementdomain.KindSchemaNotReady:
		status = http.StatusServiceUnavailable
	default:
		payload.Type = string(enforcementdomain.KindInternal)
		payload.Message = "internal server error"
	}
	if payload.Message == "" {
		payload.Message = strings.ReplaceAll(payload.Type, "_", " ")
	}
	return status, payload
}

// classifyErrorForLog feeds the request logger's error_type and error_code
// fields.
func classifyErrorForLog(err error) (string, string) {
	var enfErr *enforcementdomain.Error
	if errors.As(err, &enfErr) {
		return "enforcement", string(enfErr.Kind)
	}
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server", payload.Type
	default:
		return "client", payload.Type
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
		errors.Is(err, pagination.ErrInvalidCursor),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, pagination.ErrInvalidCursor):
		return "invalid_page_token"
	default:
		return err.Error()
	}
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
	default:
		return "invalid value"
	}
}
