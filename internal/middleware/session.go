package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aman-churiwal/redaction-gateway/internal/service"
	"github.com/aman-churiwal/redaction-gateway/internal/tenant"
)

// Context keys set by the session gate for downstream middleware and
// handlers.
const (
	ContextTenantToken = "tenant_token"
	ContextTenantAbbr  = "tenant_abbr"
	ContextTenantName  = "tenant_full_name"
)

// SessionGate authenticates every request outside the unprotected
// prefixes. A session token is accepted from the Authorization header
// first, then the named cookie. Each rejection carries a machine-readable
// code; browser-looking GETs are redirected to /auth instead.
func SessionGate(sessions *service.SessionService, registry *tenant.Registry, cookieName string, unprotectedPrefixes []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range unprotectedPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		token := extractSessionToken(c, cookieName)
		if token == "" {
			rejectSession(c, "missing_session")
			return
		}

		claims, err := sessions.Verify(token)
		if err != nil {
			if errors.Is(err, service.ErrTokenExpired) {
				rejectSession(c, "session_expired")
			} else {
				rejectSession(c, "invalid_session")
			}
			return
		}

		// The subject is the long-lived tenant credential; it must still
		// be present in the registry, or the session is orphaned.
		entry, ok := registry.Lookup(claims.Subject)
		if !ok {
			rejectSession(c, "unknown_team")
			return
		}

		c.Set(ContextTenantToken, entry.Token)
		c.Set(ContextTenantAbbr, entry.Abbr)
		c.Set(ContextTenantName, entry.FullName)

		c.Next()
	}
}

func extractSessionToken(c *gin.Context, cookieName string) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if cookie, err := c.Cookie(cookieName); err == nil {
		return strings.TrimSpace(cookie)
	}

	return ""
}

func rejectSession(c *gin.Context, code string) {
	if c.Request.Method == http.MethodGet && prefersHTML(c) {
		c.Redirect(http.StatusFound, "/auth")
		c.Abort()
		return
	}

	c.JSON(http.StatusUnauthorized, gin.H{"error": code})
	c.Abort()
}

// A request "prefers HTML" when its Accept header names text/html; API
// clients sending Accept: application/json (or nothing) get JSON errors.
func prefersHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
