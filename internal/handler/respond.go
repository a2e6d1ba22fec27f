// Package handler exposes PhotoHunt over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/photohunt/internal/session"
)

// listEnvelope is the response shape requested with ?items=true.
type listEnvelope struct {
	Kind  string `json:"kind"`
	Items any    `json:"items"`
}

// sendJSON mirrors the session into the mobile cookie and writes v.
func sendJSON(c *gin.Context, binder *session.Binder, status int, v any) {
	binder.Mirror(c)
	c.JSON(status, v)
}

// sendList writes items, wrapped in a kind envelope when the client asked
// for ?items=true.
func sendList(c *gin.Context, binder *session.Binder, resource string, items any) {
	if c.Query("items") == "true" {
		sendJSON(c, binder, http.StatusOK, listEnvelope{Kind: "photohunt#" + resource, Items: items})
		return
	}
	sendJSON(c, binder, http.StatusOK, items)
}

// sendError replies with a short plain-text description.
func sendError(c *gin.Context, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	c.String(status, msg)
	c.Abort()
}
