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

// connector is the interface expected by ConnectHandler, satisfied by *users.ConnectService.
type connector interface {
	Connect(ctx context.Context, req users.TokenRequest) (*users.User, error)
	Reload(ctx context.Context, id int64) (*users.User, error)
}

// ConnectHandler signs users in with provider credentials.
type ConnectHandler struct {
	users  connector
	binder *session.Binder
	logger *zap.Logger
}

// NewConnectHandler creates a new ConnectHandler.
func NewConnectHandler(svc connector, binder *session.Binder, logger *zap.Logger) *ConnectHandler {
	return &ConnectHandler{users: svc, binder: binder, logger: logger}
}

// Register mounts the connect route on rg.
func (h *ConnectHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/connect", h.Connect)
}

// Connect handles POST /connect.
// An already authenticated session is answered with its stored user. A session
// whose user was disconnected elsewhere is cleared and the request signs in
// from its body.
func (h *ConnectHandler) Connect(c *gin.Context) {
	if cur := session.Current(c); cur.Authenticated() {
		u, err := h.users.Reload(c.Request.Context(), cur.User.ID)
		switch {
		case err == nil:
			sendJSON(c, h.binder, http.StatusOK, u.Public())
			return
		case errors.Is(err, users.ErrNotFound):
			h.logger.Info("dropping session of removed user", zap.Int64("user_id", cur.User.ID))
			h.binder.Clear(c)
		default:
			h.logger.Error("reload session user", zap.Int64("user_id", cur.User.ID), zap.Error(err))
			sendError(c, http.StatusInternalServerError, "Failed to read user from the database.")
			return
		}
	}

	var req users.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RecordConnect("malformed")
		sendError(c, http.StatusBadRequest, "Malformed request body.")
		return
	}

	u, err := h.users.Connect(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrMalformedCode):
			RecordConnect("malformed")
			sendError(c, http.StatusBadRequest, "Failed to upgrade the authorization code.")
		case errors.Is(err, identity.ErrVerificationFailed):
			RecordConnect("unverified")
			sendError(c, http.StatusUnauthorized, "Failed to verify the access token.")
		case errors.Is(err, identity.ErrExchangeFailed):
			RecordConnect("error")
			h.logger.Error("code exchange failed", zap.Error(err))
			sendError(c, http.StatusInternalServerError, "Failed to upgrade the authorization code.")
		default:
			RecordConnect("error")
			h.logger.Error("connect failed", zap.Error(err))
			sendError(c, http.StatusInternalServerError, "Failed to read user from the database.")
		}
		return
	}

	if err := h.binder.Save(c, u); err != nil {
		RecordConnect("error")
		h.logger.Error("save session", zap.Int64("user_id", u.ID), zap.Error(err))
		sendError(c, http.StatusInternalServerError, "Failed to save the session.")
		return
	}

	RecordConnect("success")
	sendJSON(c, h.binder, http.StatusOK, u.Public())
}
