package middleware

import (
	"net/http"
	"strings"

	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	dbKey = "db"
	// UserIDKey holds the authenticated user's ID (uint).
	UserIDKey = "user_id"
	// RoleKey holds the authenticated user's role (model.Role).
	RoleKey = "role"
	// RequestIDKey holds the per-request correlation ID.
	RequestIDKey = "request_id"

	requestIDHeader = "X-Request-ID"
)

// CORSMiddleware configures CORS headers for incoming requests. An empty list
// or "*" allows every origin.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		setCorsHeaders(c, allowedOrigins)

		// For preflight requests, respond with 204 and abort further processing.
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func setCorsHeaders(c *gin.Context, allowedOrigins []string) {
	h := c.Writer.Header()
	origin := c.GetHeader("Origin")
	switch {
	case len(allowedOrigins) == 0 || util.Contains("*", allowedOrigins):
		h.Set("Access-Control-Allow-Origin", "*")
	case origin != "" && util.Contains(origin, allowedOrigins):
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
	}
	h.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE, PATCH, PUT")
	h.Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Authorization, session-token, X-Request-ID")
	h.Set("Access-Control-Expose-Headers", requestIDHeader)
	h.Set("Access-Control-Max-Age", "86400")
}

// DatabaseMiddleware stores db in the request context.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dbKey, db)
		c.Next()
	}
}

// GetDB returns the request's database handle, or nil when none was set.
func GetDB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(dbKey)
	if !ok {
		return nil
	}
	db, _ := v.(*gorm.DB)
	return db
}

// SessionToken reads "Authorization: Bearer <token>" and falls
// back to the session-token header.
func SessionToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		if scheme, tok, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	return strings.TrimSpace(c.GetHeader("session-token"))
}
