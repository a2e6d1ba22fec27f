package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/photohunt/internal/identity"
	"github.com/jmerrifield20/photohunt/internal/themes"
	"go.uber.org/zap"
)

type themeAdder interface {
	Add(ctx context.Context, displayName string, start time.Time) (*themes.Theme, error)
}

// AdminHandler serves the operator routes.
type AdminHandler struct {
	tokens *identity.AdminTokenIssuer
	themes themeAdder
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(tokens *identity.AdminTokenIssuer, themes themeAdder, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{tokens: tokens, themes: themes, logger: logger}
}

// Register mounts the admin routes on rg.
//
//	POST /admin/token   exchange the admin secret for a bearer token
//	POST /admin/themes  schedule a theme (bearer token required)
func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/admin/token", h.Token)
	admin := rg.Group("/admin", identity.RequireAdmin(h.tokens))
	admin.POST("/themes", h.AddTheme)
}

type adminTokenRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// Token handles POST /admin/token.
func (h *AdminHandler) Token(c *gin.Context) {
	var req adminTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Malformed request body.")
		return
	}
	tok, err := h.tokens.Exchange(req.Secret)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidAdminSecret) {
			h.logger.Warn("admin token refused", zap.String("client_ip", c.ClientIP()))
			sendError(c, http.StatusUnauthorized, "Invalid admin secret.")
			return
		}
		h.logger.Error("issue admin token", zap.Error(err))
		sendError(c, http.StatusInternalServerError, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok})
}

type addThemeRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
	// Start is a YYYY-MM-DD date; empty means today.
	Start string `json:"start"`
}

// AddTheme handles POST /admin/themes.
func (h *AdminHandler) AddTheme(c *gin.Context) {
	var req addThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Malformed request body.")
		return
	}

	start := time.Now().UTC()
	if req.Start != "" {
		t, err := time.Parse(time.DateOnly, req.Start)
		if err != nil {
			sendError(c, http.StatusBadRequest, "start must be YYYY-MM-DD.")
			return
		}
		start = t
	}

	t, err := h.themes.Add(c.Request.Context(), req.DisplayName, start)
	if err != nil {
		if errors.Is(err, themes.ErrDuplicate) {
			sendError(c, http.StatusConflict, "A theme already starts on that day.")
			return
		}
		h.logger.Error("add theme", zap.Error(err))
		sendError(c, http.StatusInternalServerError, "")
		return
	}
	c.JSON(http.StatusCreated, t.API())
}
