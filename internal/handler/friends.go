package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/photohunt/internal/session"
	"github.com/jmerrifield20/photohunt/internal/users"
	"go.uber.org/zap"
)

type friendLister interface {
	ListFriends(ctx context.Context, userID int64) ([]users.User, error)
}

// FriendsHandler lists the signed-in user's friends.
type FriendsHandler struct {
	friends friendLister
	binder  *session.Binder
	logger  *zap.Logger
}

// NewFriendsHandler creates a new FriendsHandler.
func NewFriendsHandler(friends friendLister, binder *session.Binder, logger *zap.Logger) *FriendsHandler {
	return &FriendsHandler{friends: friends, binder: binder, logger: logger}
}

// Register mounts the friends route on rg.
func (h *FriendsHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/friends", h.List)
}

// List handles GET /friends.
func (h *FriendsHandler) List(c *gin.Context) {
	u, err := session.RequireUser(c)
	if err != nil {
		sendError(c, http.StatusUnauthorized, "Unauthorized request.")
		return
	}

	list, err := h.friends.ListFriends(c.Request.Context(), u.ID)
	if err != nil {
		h.logger.Error("list friends", zap.Int64("user_id", u.ID), zap.Error(err))
		sendError(c, http.StatusInternalServerError, "")
		return
	}

	out := make([]users.PublicUser, 0, len(list))
	for i := range list {
		out = append(out, list[i].Public())
	}
	sendList(c, h.binder, "friends", out)
}
