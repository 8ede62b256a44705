package middleware

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aman-churiwal/redaction-gateway/internal/redactor"
)

// Content types the redaction gate understands. Anything else passes
// through untouched.
var redactableContentTypes = map[string]bool{
	"application/json": true,
	"text/plain":       true,
	"text/html":        true,
}

// bufferedWriter captures the handler's response instead of streaming
// it, so the redaction gate can rewrite or replace the body before any
// byte reaches the client.
type bufferedWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

// Redact rewrites successful responses on the given path prefixes
// through the redaction capability. When redaction cannot be performed
// the original body is withheld and the client gets a 503; an
// unredacted byte must never leave the gateway on these routes.
func Redact(client *redactor.Client, cache *redactor.Cache, redactedPrefixes []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		writer := &bufferedWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer

		c.Next()

		c.Writer = writer.ResponseWriter
		body := writer.body.String()

		if !shouldRedact(c, redactedPrefixes) {
			c.Writer.Write(writer.body.Bytes())
			return
		}

		contentType := mediaType(c.Writer.Header().Get("Content-Type"))
		ctx := c.Request.Context()

		if cached, ok := cache.Get(ctx, contentType, body); ok {
			c.Set("redacted", true)
			c.Writer.WriteString(cached)
			return
		}

		redacted, err := client.Redact(ctx, body, contentType)
		if err != nil {
			requestID := c.GetString("request_id")
			if !errors.Is(err, redactor.ErrDisabled) {
				log.Printf("[%s] Redaction failed for %s: %v", requestID, c.Request.URL.Path, err)
			}
			failClosed(c, contentType)
			return
		}

		cache.Put(ctx, contentType, body, redacted)

		c.Set("redacted", true)
		c.Writer.WriteString(redacted)
	}
}

func shouldRedact(c *gin.Context, redactedPrefixes []string) bool {
	if c.Writer.Status() != http.StatusOK {
		return false
	}

	path := c.Request.URL.Path
	matched := false
	for _, prefix := range redactedPrefixes {
		if strings.HasPrefix(path, prefix) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	return redactableContentTypes[mediaType(c.Writer.Header().Get("Content-Type"))]
}

// Replaces the buffered body with a redaction-failure response. The
// headers haven't been flushed yet, so the status can still change.
func failClosed(c *gin.Context, contentType string) {
	c.Writer.Header().Del("Content-Length")

	if contentType == "application/json" {
		c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
		c.Writer.WriteHeader(http.StatusServiceUnavailable)
		c.Writer.WriteString(`{"error":"ai_redaction_failed"}`)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.Writer.WriteHeader(http.StatusServiceUnavailable)
	c.Writer.WriteString("ai_redaction_failed")
}

// Strips parameters like "; charset=utf-8" off a Content-Type value.
func mediaType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
