package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-sync/syncengine"
	"github.com/yeremiapane/pos-sync/utils"
)

type SyncController struct {
	Engine *syncengine.Engine
}

func NewSyncController(engine *syncengine.Engine) *SyncController {
	return &SyncController{Engine: engine}
}

func (sc *SyncController) GetStatus(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Sync status", sc.Engine.Status())
}

// Refresh is the manual "sync now" button.
func (sc *SyncController) Refresh(c *gin.Context) {
	if err := sc.Engine.RefreshNow(c.Request.Context()); err != nil {
		utils.RespondErrorData(c, statusFor(err), err.Error(), sc.Engine.Status())
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Refreshed", sc.Engine.Status())
}

// GetState returns everything the UI renders from in one read.
func (sc *SyncController) GetState(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Current state", gin.H{
		"status": sc.Engine.Status(),
		"state":  sc.Engine.Store().Snapshot(),
	})
}
