package handler

import (
	"account_service/internal/metrics"
	"account_service/internal/models"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

const accountIDKey = "AccountID"

// TokenVerifier checks purpose-bound signed tokens.
type TokenVerifier interface {
	Verify(token string, purpose models.Purpose) (uuid.UUID, error)
}

// AuthMiddleware admits requests carrying a valid access token as a bearer credential.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			newErrorResponse(c, http.StatusUnauthorized, msgEmptyAuthHeader)

			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			newErrorResponse(c, http.StatusUnauthorized, msgBadAuthHeader)

			return
		}

		id, err := verifier.Verify(parts[1], models.PurposeAccess)
		if err != nil {
			newErrorResponse(c, http.StatusUnauthorized, msgBadBearerToken)

			return
		}

		c.Set(accountIDKey, id)

		c.Next()
	}
}

// RequestMetrics records count and latency per route template.
func RequestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		m.ObserveRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
