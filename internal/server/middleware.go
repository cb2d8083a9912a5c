package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerRequestID     = "X-Request-ID"
	contextAccountIDKey = "account_id"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func AccessLog(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http.access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.Writer.Header().Get(headerRequestID)),
		)
	}
}

// ResolveIdentity reads the authenticated-identity marker attached upstream:
// a Bearer token whose subject is the account id. Absent or unverifiable
// markers leave the request anonymous; the fingerprint requirement downstream
// covers that path.
func (s *Server) ResolveIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" || s.cfg.AuthJWTSecret == "" {
			c.Next()
			return
		}

		parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(s.cfg.AuthJWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			s.log.Debug("identity marker rejected", zap.Error(err))
			c.Next()
			return
		}

		subject, err := parsed.Claims.GetSubject()
		if err != nil {
			c.Next()
			return
		}
		accountID, err := snowflake.ParseString(strings.TrimSpace(subject))
		if err != nil || accountID == 0 {
			c.Next()
			return
		}

		c.Set(contextAccountIDKey, accountID)
		c.Next()
	}
}

// AuthRequired gates plan endpoints on a resolved identity.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if accountIDFromContext(c) == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func accountIDFromContext(c *gin.Context) snowflake.ID {
	value, ok := c.Get(contextAccountIDKey)
	if !ok {
		return 0
	}
	id, ok := value.(snowflake.ID)
	if !ok {
		return 0
	}
	return id
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
