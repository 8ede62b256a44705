package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aman-churiwal/redaction-gateway/internal/config"
	"github.com/aman-churiwal/redaction-gateway/internal/service"
	"github.com/aman-churiwal/redaction-gateway/internal/tenant"
)

// Exchanges long-lived tenant tokens for session JWTs.
type AuthHandler struct {
	sessions *service.SessionService
	registry *tenant.Registry
	cookie   config.SessionConfig
}

func NewAuthHandler(sessions *service.SessionService, registry *tenant.Registry, cookie config.SessionConfig) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		registry: registry,
		cookie:   cookie,
	}
}

// POST /auth. The tenant token is accepted from the JSON body, a form
// field, or the query string, in that order.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	token := extractTenantToken(c)
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_token"})
		return
	}

	entry, ok := h.registry.Lookup(token)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}

	signed, err := h.sessions.Issue(entry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_misconfigured"})
		return
	}

	maxAge := int(h.sessions.TTL().Seconds())
	c.SetCookie(h.cookie.CookieName, signed, maxAge, "/", "", h.cookie.CookieSecure, true)

	c.JSON(http.StatusOK, gin.H{
		"team": gin.H{
			"abbr":      entry.Abbr,
			"full_name": entry.FullName,
		},
		"jwt":        signed,
		"expires_in": maxAge,
	})
}

// GET /auth. Documents the exchange so clients hitting it without a
// session know what to send.
func (h *AuthHandler) Usage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "POST your team token to receive a session JWT",
		"fields":  gin.H{"token": "long-lived team token"},
		"cookie":  h.cookie.CookieName,
	})
}

func extractTenantToken(c *gin.Context) string {
	if strings.Contains(c.ContentType(), "json") {
		var body struct {
			Token string `json:"token"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			if token := strings.TrimSpace(body.Token); token != "" {
				return token
			}
		}
	}

	if token := strings.TrimSpace(c.PostForm("token")); token != "" {
		return token
	}

	return strings.TrimSpace(c.Query("token"))
}
