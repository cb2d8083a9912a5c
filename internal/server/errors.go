package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/prepdeck/metering/internal/account/domain"
	usagedomain "github.com/prepdeck/metering/internal/usage/domain"
)

// errorResponse is the flat wire shape the practice client expects:
// { "error": "<message>" }.
type errorResponse struct {
	Error string `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTooManyTracks  = errors.New("too_many_requests")
	ErrInvalidRequest = errors.New("invalid_request")
)

const fingerprintRequiredMessage = "Fingerprint is required for anonymous users"

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

		status, message := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: message})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, usagedomain.ErrFingerprintRequired):
		return http.StatusBadRequest, fingerprintRequiredMessage
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, accountdomain.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"
	case errors.Is(err, accountdomain.ErrTrialUnavailable):
		return http.StatusConflict, "trial not available for this account"
	case errors.Is(err, accountdomain.ErrAlreadyPaid):
		return http.StatusConflict, "plan is already active"
	case errors.Is(err, ErrTooManyTracks):
		return http.StatusTooManyRequests, "too many requests"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
