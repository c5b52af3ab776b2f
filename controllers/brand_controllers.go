package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-sync/models"
	"github.com/yeremiapane/pos-sync/syncengine"
	"github.com/yeremiapane/pos-sync/utils"
)

type BrandController struct {
	Engine *syncengine.Engine
}

func NewBrandController(engine *syncengine.Engine) *BrandController {
	return &BrandController{Engine: engine}
}

func (bc *BrandController) GetBrand(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Brand settings", bc.Engine.Store().Brand())
}

// UpdateBrand saves locally first; a remote rejection is reported while the
// local copy stays as submitted.
func (bc *BrandController) UpdateBrand(c *gin.Context) {
	var settings models.BrandSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if settings.Name == "" {
		settings.Name = models.DefaultBrandSettings().Name
	}
	if settings.Currency == "" {
		settings.Currency = models.DefaultBrandSettings().Currency
	}

	if err := bc.Engine.SaveBrandSettings(c.Request.Context(), settings); err != nil {
		utils.RespondErrorData(c, statusFor(err),
			"Saved on this terminal but the server rejected it: "+err.Error(),
			bc.Engine.Store().Brand())
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Brand settings saved", bc.Engine.Store().Brand())
}
