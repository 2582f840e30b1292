package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"storefront/domain"
	"storefront/pkg/logger"

	jsonres "storefront/pkg/response"

	"github.com/labstack/echo/v4"
)

// ErrorHandler is installed as echo's HTTPErrorHandler. Handlers return
// service errors unchanged and this translates them into the error envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := Translate(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", err, "method", c.Request().Method, "path", c.Path())
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logger.Error("Failed to write error response", err)
	}
}

// Translate maps an error to its HTTP status and response body.
func Translate(err error) (int, jsonres.Response) {
	var (
		httpErr  *echo.HTTPError
		verr     *domain.ValidationError
		stockErr *domain.StockError
	)

	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, jsonres.Error(codeFor(httpErr.Code), fmt.Sprint(httpErr.Message), nil)
	case errors.As(err, &verr):
		return http.StatusBadRequest, jsonres.Error("VALIDATION_ERROR", verr.Error(), map[string]any{"fields": verr.Fields})
	case errors.As(err, &stockErr):
		return http.StatusConflict, jsonres.Error("INSUFFICIENT_STOCK", stockErr.Error(), map[string]any{"product": stockErr.ProductID})
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, jsonres.Error("INSUFFICIENT_STOCK", err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, jsonres.Error("NOT_FOUND", err.Error(), nil)
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusConflict, jsonres.Error("DUPLICATE_EMAIL", err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return http.StatusConflict, jsonres.Error("INVALID_STATUS_TRANSITION", err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, jsonres.Error("INVALID_CREDENTIALS", err.Error(), nil)
	case errors.Is(err, domain.ErrNotVerified):
		return http.StatusForbidden, jsonres.Error("NOT_VERIFIED", err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusBadRequest, jsonres.Error("INVALID_TOKEN", err.Error(), nil)
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, jsonres.Error("FORBIDDEN", err.Error(), nil)
	case errors.Is(err, domain.ErrCustomerMissing):
		return http.StatusConflict, jsonres.Error("CUSTOMER_MISSING", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, jsonres.Error("TIMEOUT", "request timed out", nil)
	default:
		return http.StatusInternalServerError, jsonres.Error("INTERNAL_SERVER_ERROR", "internal server error", nil)
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	}
	if status >= http.StatusInternalServerError {
		return "INTERNAL_SERVER_ERROR"
	}
	return "ERROR"
}
