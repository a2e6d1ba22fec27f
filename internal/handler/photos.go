package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/photohunt/internal/photos"
	"github.com/jmerrifield20/photohunt/internal/session"
	"github.com/jmerrifield20/photohunt/internal/themes"
	"github.com/jmerrifield20/photohunt/internal/users"
	"go.uber.org/zap"
)

// photoService is the interface expected by PhotosHandler, satisfied by *photos.Service.
type photoService interface {
	List(ctx context.Context, f photos.Filter) ([]photos.Photo, error)
	Get(ctx context.Context, id, viewerID int64) (*photos.Photo, error)
	Create(ctx context.Context, owner *users.User, theme *themes.Theme, fullsizeURL, thumbnailURL string) (*photos.Photo, error)
	Delete(ctx context.Context, u *users.User, id int64) (*photos.Photo, error)
}

type themeSelector interface {
	Selected(ctx context.Context, id int64) (*themes.Theme, error)
}

// PhotosHandler lists, submits and deletes photos.
type PhotosHandler struct {
	photos photoService
	themes themeSelector
	binder *session.Binder
	logger *zap.Logger
}

// NewPhotosHandler creates a new PhotosHandler.
func NewPhotosHandler(svc photoService, themes themeSelector, binder *session.Binder, logger *zap.Logger) *PhotosHandler {
	return &PhotosHandler{photos: svc, themes: themes, binder: binder, logger: logger}
}

// Register mounts the photo routes on rg.
func (h *PhotosHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/photos", h.List)
	rg.POST("/photos", h.Create)
	rg.DELETE("/photos", h.Delete)
}

// List handles GET /photos.
//
// Query parameters:
//   - photoId: return that single photo.
//   - userId: owner id, or "me" for the signed-in user. Without themeId all
//     of the owner's photos are returned.
//   - themeId: theme to list; defaults to the current theme.
//   - friends=true: photos in the theme owned by the signed-in user's friends.
func (h *PhotosHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	var viewerID int64
	if cur := session.Current(c); cur.Authenticated() {
		viewerID = cur.User.ID
	}

	if raw := c.Query("photoId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			sendError(c, http.StatusBadRequest, "Invalid photoId.")
			return
		}
		p, err := h.photos.Get(ctx, id, viewerID)
		if err != nil {
			h.photoError(c, err)
			return
		}
		sendJSON(c, h.binder, http.StatusOK, p)
		return
	}

	f := photos.Filter{ViewerID: viewerID}

	switch raw := c.Query("userId"); raw {
	case "":
	case "me":
		if viewerID == 0 {
			sendError(c, http.StatusUnauthorized, "Unauthorized request.")
			return
		}
		f.OwnerID = viewerID
	default:
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			sendError(c, http.StatusBadRequest, "Invalid userId.")
			return
		}
		f.OwnerID = id
	}

	if c.Query("friends") == "true" {
		if viewerID == 0 {
			sendError(c, http.StatusUnauthorized, "Unauthorized request.")
			return
		}
		f.OwnerID = 0
		f.FriendsOf = viewerID
	}

	themeParam := c.Query("themeId")
	if themeParam != "" || f.OwnerID == 0 {
		themeID, err := parseOptionalID(themeParam)
		if err != nil {
			sendError(c, http.StatusBadRequest, "Invalid themeId.")
			return
		}
		t, err := h.themes.Selected(ctx, themeID)
		if err != nil {
			h.themeError(c, err)
			return
		}
		f.ThemeID = t.ID
	}

	list, err := h.photos.List(ctx, f)
	if err != nil {
		h.logger.Error("list photos", zap.Error(err))
		sendError(c, http.StatusInternalServerError, "")
		return
	}
	if list == nil {
		list = []photos.Photo{}
	}
	sendList(c, h.binder, "photos", list)
}

type createPhotoRequest struct {
	ThemeID      int64  `json:"themeId"`
	FullsizeURL  string `json:"fullsizeUrl"  binding:"required"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// Create handles POST /photos. The photo joins themeId, or the current theme.
func (h *PhotosHandler) Create(c *gin.Context) {
	u, err := session.RequireUser(c)
	if err != nil {
		sendError(c, http.StatusUnauthorized, "Unauthorized request.")
		return
	}

	var req createPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Malformed request body.")
		return
	}

	ctx := c.Request.Context()
	t, err := h.themes.Selected(ctx, req.ThemeID)
	if err != nil {
		h.themeError(c, err)
		return
	}

	p, err := h.photos.Create(ctx, u, t, req.FullsizeURL, req.ThumbnailURL)
	if err != nil {
		h.photoError(c, err)
		return
	}
	RecordPhotoSubmitted()

	if err := h.binder.Update(c, u); err != nil {
		h.logger.Warn("update session", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	sendJSON(c, h.binder, http.StatusOK, p)
}

// Delete handles DELETE /photos?photoId=N. Only the owner may delete.
func (h *PhotosHandler) Delete(c *gin.Context) {
	u, err := session.RequireUser(c)
	if err != nil {
		sendError(c, http.StatusUnauthorized, "Unauthorized request.")
		return
	}

	id, err := strconv.ParseInt(c.Query("photoId"), 10, 64)
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid photoId.")
		return
	}

	if _, err := h.photos.Delete(c.Request.Context(), u, id); err != nil {
		h.photoError(c, err)
		return
	}
	h.binder.Mirror(c)
	c.String(http.StatusOK, "Photo successfully deleted.")
}

func (h *PhotosHandler) photoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, photos.ErrNotFound):
		sendError(c, http.StatusNotFound, "Photo not found.")
	case errors.Is(err, photos.ErrUnauthorized):
		sendError(c, http.StatusUnauthorized, "Unauthorized request.")
	default:
		h.logger.Error("photo request failed", zap.Error(err))
		sendError(c, http.StatusInternalServerError, "")
	}
}

func (h *PhotosHandler) themeError(c *gin.Context, err error) {
	if errors.Is(err, themes.ErrNotFound) {
		sendError(c, http.StatusNotFound, "Theme not found.")
		return
	}
	h.logger.Error("select theme", zap.Error(err))
	sendError(c, http.StatusInternalServerError, "")
}

// parseOptionalID parses raw as an id; the empty string is 0.
func parseOptionalID(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
