package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/photohunt/internal/identity"
	"github.com/jmerrifield20/photohunt/internal/session"
	"github.com/jmerrifield20/photohunt/internal/users"
	"go.uber.org/zap"
)

// disconnector is the interface expected by DisconnectHandler, satisfied by *disconnect.Orchestrator.
type disconnector interface {
	Disconnect(ctx context.Context, u *users.User, clearSession func()) error
}

// DisconnectHandler removes the signed-in user and their data.
type DisconnectHandler struct {
	orchestrator disconnector
	binder       *session.Binder
	logger       *zap.Logger
}

// NewDisconnectHandler creates a new DisconnectHandler.
func NewDisconnectHandler(o disconnector, binder *session.Binder, logger *zap.Logger) *DisconnectHandler {
	return &DisconnectHandler{orchestrator: o, binder: binder, logger: logger}
}

// Register mounts the disconnect route on rg.
func (h *DisconnectHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/disconnect", h.Disconnect)
}

// Disconnect handles POST /disconnect.
func (h *DisconnectHandler) Disconnect(c *gin.Context) {
	u, err := session.RequireUser(c)
	if err != nil {
		sendError(c, http.StatusUnauthorized, "Unauthorized request.")
		return
	}

	err = h.orchestrator.Disconnect(c.Request.Context(), u, func() { h.binder.Clear(c) })
	if err != nil {
		RecordDisconnect(false)
		if errors.Is(err, identity.ErrRevokeFailed) {
			sendError(c, http.StatusInternalServerError, "Error returned from revoke endpoint: "+err.Error())
			return
		}
		h.logger.Error("disconnect failed", zap.Int64("user_id", u.ID), zap.Error(err))
		sendError(c, http.StatusInternalServerError, "Failed to disconnect.")
		return
	}

	RecordDisconnect(true)
	c.String(http.StatusOK, "Successfully disconnected.")
}
