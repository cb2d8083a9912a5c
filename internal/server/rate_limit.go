package server

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TrackRateLimit throttles track calls per identity. The limiter is optional
// wiring; without redis the middleware is a no-op.
func (s *Server) TrackRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.trackLimiter == nil || !s.trackLimiter.Enabled() {
			c.Next()
			return
		}

		identity := s.limiterIdentity(c)
		if identity == "" {
			c.Next()
			return
		}

		allowed, err := s.trackLimiter.Allow(c.Request.Context(), identity)
		if err != nil {
			// Limiter outage must not block tracking.
			s.log.Warn("track rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			AbortWithError(c, ErrTooManyTracks)
			return
		}

		c.Next()
	}
}

// limiterIdentity keys the bucket on the account id when resolved, otherwise
// on the fingerprint peeked from the body. The body is restored so the
// handler can bind it again.
func (s *Server) limiterIdentity(c *gin.Context) string {
	if id := accountIDFromContext(c); id != 0 {
		return "account:" + id.String()
	}

	if c.Request.Body == nil || c.Request.ContentLength <= 0 {
		return ""
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var body usageRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	fingerprint := strings.TrimSpace(body.Fingerprint)
	if fingerprint == "" {
		return ""
	}
	return "fingerprint:" + fingerprint
}
