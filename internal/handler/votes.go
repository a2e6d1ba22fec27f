package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/photohunt/internal/photos"
	"github.com/jmerrifield20/photohunt/internal/session"
	"github.com/jmerrifield20/photohunt/internal/users"
	"github.com/jmerrifield20/photohunt/internal/votes"
	"go.uber.org/zap"
)

// voter is the interface expected by VotesHandler, satisfied by *votes.Ledger.
type voter interface {
	DoVote(ctx context.Context, u *users.User, photoID int64) (*photos.Photo, error)
}

// VotesHandler records votes.
type VotesHandler struct {
	ledger voter
	binder *session.Binder
	logger *zap.Logger
}

// NewVotesHandler creates a new VotesHandler.
func NewVotesHandler(ledger voter, binder *session.Binder, logger *zap.Logger) *VotesHandler {
	return &VotesHandler{ledger: ledger, binder: binder, logger: logger}
}

// Register mounts the vote route on rg.
func (h *VotesHandler) Register(rg *gin.RouterGroup) {
	rg.PUT("/votes", h.Vote)
}

type voteRequest struct {
	PhotoID int64 `json:"photoId" binding:"required"`
}

// Vote handles PUT /votes.
func (h *VotesHandler) Vote(c *gin.Context) {
	u, err := session.RequireUser(c)
	if err != nil {
		RecordVote("unauthorized")
		sendError(c, http.StatusUnauthorized, "Unauthorized request.")
		return
	}

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Malformed request body.")
		return
	}

	p, err := h.ledger.DoVote(c.Request.Context(), u, req.PhotoID)
	if err != nil {
		switch {
		case errors.Is(err, votes.ErrUnauthorized):
			RecordVote("rejected")
			sendError(c, http.StatusUnauthorized, "Unauthorized request.")
		case errors.Is(err, photos.ErrNotFound):
			RecordVote("not_found")
			sendError(c, http.StatusNotFound, "Photo not found.")
		default:
			RecordVote("error")
			h.logger.Error("vote failed", zap.Int64("user_id", u.ID), zap.Int64("photo_id", req.PhotoID), zap.Error(err))
			sendError(c, http.StatusInternalServerError, "")
		}
		return
	}
	RecordVote("success")

	// The activity notifier may have refreshed the user's tokens.
	if err := h.binder.Update(c, u); err != nil {
		h.logger.Warn("update session", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	sendJSON(c, h.binder, http.StatusOK, p)
}
