// Package handler provides HTTP handlers for the report pages and the JSON API.
package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/verustcode/glance/internal/api/middleware"
	"github.com/verustcode/glance/pkg/errors"
)

// abortWithError hands err to the ErrorHandler middleware
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// badRequest aborts with a validation error
func badRequest(c *gin.Context, message string) {
	body := gin.H{"code": errors.ErrCodeValidation, "message": message}
	if id := c.GetString(middleware.ContextKeyRequestID); id != "" {
		body[middleware.ContextKeyRequestID] = id
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}

// validateFilename accepts a bare file name: no directory part, no
// parent reference, no NUL byte
func validateFilename(name string) bool {
	switch name {
	case "", ".", "..":
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00") && !strings.Contains(name, "..")
}

// truncateContent shortens s to max runes for log fields
func truncateContent(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

// computeETag returns a strong ETag derived from the content hash
func computeETag(content []byte) string {
	sum := sha256.Sum256(content)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// attachment marks the response as a download named filename
func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}
