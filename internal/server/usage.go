package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepdeck/metering/internal/observability/metrics"
	usagedomain "github.com/prepdeck/metering/internal/usage/domain"
	"github.com/prepdeck/metering/internal/usage/policy"
	"go.uber.org/zap"
)

type usageRequest struct {
	Fingerprint string `json:"fingerprint"`
}

type trackResponse struct {
	Message string                  `json:"message"`
	Status  usagedomain.UsageStatus `json:"status"`
}

const trackedMessage = "Question tracked successfully"

func (s *Server) CheckUsage(c *gin.Context) {
	req, ok := s.usageRequestFrom(c)
	if !ok {
		return
	}

	status, err := s.usageSvc.Check(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, usagedomain.ErrFingerprintRequired) {
			AbortWithError(c, err)
			return
		}
		// Fail open: metering infrastructure must never block practice.
		s.log.Warn("usage check degraded to fallback", zap.Error(err))
		s.countFallback(metrics.OperationCheck)
		c.JSON(http.StatusOK, policy.FallbackStatus(0, s.quota.Limits()))
		return
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) TrackUsage(c *gin.Context) {
	req, ok := s.usageRequestFrom(c)
	if !ok {
		return
	}

	status, err := s.usageSvc.Track(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, usagedomain.ErrFingerprintRequired) {
			AbortWithError(c, err)
			return
		}
		// Report success with one question consumed; uninterrupted practice
		// wins over strict accounting during an outage.
		s.log.Warn("usage track degraded to fallback", zap.Error(err))
		s.countFallback(metrics.OperationTrack)
		c.JSON(http.StatusOK, trackResponse{
			Message: trackedMessage,
			Status:  policy.FallbackStatus(1, s.quota.Limits()),
		})
		return
	}

	c.JSON(http.StatusOK, trackResponse{
		Message: trackedMessage,
		Status:  status,
	})
}

// usageRequestFrom builds the service request from the body and the resolved
// identity. The body is optional for authenticated callers.
func (s *Server) usageRequestFrom(c *gin.Context) (usagedomain.Request, bool) {
	var body usageRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return usagedomain.Request{}, false
		}
	}

	return usagedomain.Request{
		AccountID:   accountIDFromContext(c),
		Fingerprint: body.Fingerprint,
		IPAddress:   c.ClientIP(),
	}, true
}

func (s *Server) countFallback(operation string) {
	if s.metrics != nil {
		s.metrics.FallbacksTotal.WithLabelValues(operation).Inc()
	}
}
