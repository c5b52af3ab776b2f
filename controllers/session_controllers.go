package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-sync/syncengine"
	"github.com/yeremiapane/pos-sync/utils"
)

// SessionController binds the signed-in user to the terminal's engine.
type SessionController struct {
	Engine *syncengine.Engine
}

func NewSessionController(engine *syncengine.Engine) *SessionController {
	return &SessionController{Engine: engine}
}

// Start resolves the tenant and hydrates from cache; the refresh continues
// in the background and is announced on the change feed.
func (sc *SessionController) Start(c *gin.Context) {
	userID := c.GetString("userID")
	if err := sc.Engine.SetIdentity(c.Request.Context(), syncengine.Identity{UserID: userID}); err != nil {
		respondEngineError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session started", gin.H{
		"status": sc.Engine.Status(),
		"state":  sc.Engine.Store().Snapshot(),
	})
}

// End logs out and drops the tenant's cached data from this terminal.
func (sc *SessionController) End(c *gin.Context) {
	sc.Engine.Logout()
	utils.RespondJSON(c, http.StatusOK, "Session ended", nil)
}
