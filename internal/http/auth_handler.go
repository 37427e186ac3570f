package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-shell/internal/domain"
	"chat-shell/internal/service"
)

// AuthHandler traduce el shell de autenticación a JSON y redirecciones.
type AuthHandler struct {
	logger   *zap.Logger
	shell    *service.AuthShell
	nav      *service.LocationTracker
	chatPage string
}

// NewAuthHandler requiere el mismo LocationTracker que usa el shell como Navigator.
func NewAuthHandler(logger *zap.Logger, shell *service.AuthShell, nav *service.LocationTracker, chatPage string) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		shell:    shell,
		nav:      nav,
		chatPage: chatPage,
	}
}

// GetState maneja GET /auth/state.
func (h *AuthHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.shell.State(c.Request.Context())})
}

// Login maneja GET /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	authURL := h.shell.Login()
	h.nav.Take()
	c.Redirect(http.StatusFound, authURL)
}

// Callback maneja GET /auth/callback?code=.
func (h *AuthHandler) Callback(c *gin.Context) {
	if !h.shell.HandleCallback(c.Request.Context(), c.Query("code")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}
	c.Redirect(http.StatusFound, h.chatPage)
}

// Logout maneja POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.shell.Logout(c.Request.Context()); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"location": h.nav.Take()})
}

// SwitchTab maneja POST /auth/tab.
func (h *AuthHandler) SwitchTab(c *gin.Context) {
	var req struct {
		Tab string `json:"tab" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.shell.SwitchTab(req.Tab); err != nil {
		if errors.Is(err, domain.ErrUnknownTab) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown tab"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.shell.State(c.Request.Context())})
}

// HandleLogin maneja POST /auth/login.
func (h *AuthHandler) HandleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	ok := h.shell.HandleLogin(c.Request.Context(), req.Email, req.Password)
	h.respondSignIn(c, ok)
}

// HandleRegister maneja POST /auth/register.
func (h *AuthHandler) HandleRegister(c *gin.Context) {
	var req struct {
		Username        string `json:"username"`
		Email           string `json:"email" binding:"required"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	ctx := c.Request.Context()
	if !h.shell.HandleRegister(ctx, req.Username, req.Email, req.Password, req.ConfirmPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"state": h.shell.State(ctx)})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"state": h.shell.State(ctx)})
}

// HandleSocial maneja POST /auth/social/:provider.
func (h *AuthHandler) HandleSocial(c *gin.Context) {
	kind, err := service.ParseProviderKind(c.Param("provider"))
	if err != nil || kind == service.ProviderEmailPassword {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}
	ok, err := h.shell.HandleSocial(c.Request.Context(), kind)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}
	h.respondSignIn(c, ok)
}

// Me maneja GET /auth/me para tokens de cuentas locales.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":      claims.UserID,
		"email":        claims.Email,
		"display_name": claims.DisplayName,
	})
}

func (h *AuthHandler) respondSignIn(c *gin.Context, ok bool) {
	state := h.shell.State(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"state": state})
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": h.nav.Take(), "state": state})
}
