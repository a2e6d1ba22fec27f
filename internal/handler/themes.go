package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/photohunt/internal/session"
	"github.com/jmerrifield20/photohunt/internal/themes"
	"go.uber.org/zap"
)

type themeLister interface {
	List(ctx context.Context) ([]themes.Theme, error)
}

// ThemesHandler lists themes.
type ThemesHandler struct {
	themes themeLister
	binder *session.Binder
	logger *zap.Logger
}

// NewThemesHandler creates a new ThemesHandler.
func NewThemesHandler(svc themeLister, binder *session.Binder, logger *zap.Logger) *ThemesHandler {
	return &ThemesHandler{themes: svc, binder: binder, logger: logger}
}

// Register mounts the theme routes on rg.
func (h *ThemesHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/themes", h.List)
}

// List handles GET /themes.
func (h *ThemesHandler) List(c *gin.Context) {
	list, err := h.themes.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list themes", zap.Error(err))
		sendError(c, http.StatusInternalServerError, "")
		return
	}
	out := make([]themes.APITheme, 0, len(list))
	for i := range list {
		out = append(out, list[i].API())
	}
	sendList(c, h.binder, "themes", out)
}
