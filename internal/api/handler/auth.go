package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verustcode/glance/internal/api/middleware"
	"github.com/verustcode/glance/internal/auth"
	"github.com/verustcode/glance/pkg/errors"
)

// AuthHandler handles token requests
type AuthHandler struct {
	auth *auth.Authenticator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(a *auth.Authenticator) *AuthHandler {
	return &AuthHandler{auth: a}
}

// TokenRequest represents the token request body
type TokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Token handles POST /api/v1/auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	username, exists := c.Get(middleware.ContextKeyUsername)
	if !exists {
		abortWithError(c, errors.ErrUnauthorized("Not authenticated"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username": username,
	})
}
