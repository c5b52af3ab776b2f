package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/pos-sync/kds"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type FeedController struct {
	Hub         *kds.KDSHub
	Status      func() interface{}
	SessionUser func() string
}

func NewFeedController(hub *kds.KDSHub, status func() interface{}, sessionUser func() string) *FeedController {
	return &FeedController{Hub: hub, Status: status, SessionUser: sessionUser}
}

// Serve upgrades to a websocket and keeps the client registered until it
// disconnects. The first message is the current sync status.
func (fc *FeedController) Serve(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if fc.SessionUser != nil && fc.SessionUser() != userID {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	if fc.Status != nil {
		if err := ws.WriteJSON(kds.Message{Event: kds.EventStatus, Data: fc.Status()}); err != nil {
			ws.Close()
			return
		}
	}
	fc.Hub.RegisterClient(ws, userID)

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	fc.Hub.UnregisterClient(ws)
}
