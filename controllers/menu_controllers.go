package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-sync/models"
	"github.com/yeremiapane/pos-sync/syncengine"
	"github.com/yeremiapane/pos-sync/utils"
)

type MenuController struct {
	Engine *syncengine.Engine
}

func NewMenuController(engine *syncengine.Engine) *MenuController {
	return &MenuController{Engine: engine}
}

func (mc *MenuController) GetAllMenus(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "All menu items", mc.Engine.Store().MenuItems())
}

func (mc *MenuController) CreateMenu(c *gin.Context) {
	var body struct {
		Name       string  `json:"name" binding:"required"`
		Price      float64 `json:"price"`
		CategoryID string  `json:"categoryId"`
		Stock      int     `json:"stock"`
		Image      string  `json:"image"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item, err := mc.Engine.AddMenuItem(c.Request.Context(), models.MenuItem{
		Name:       body.Name,
		Price:      body.Price,
		CategoryID: body.CategoryID,
		Stock:      body.Stock,
		Image:      body.Image,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Menu item created", item)
}

// UpdateMenu applies a partial update; omitted fields are kept.
func (mc *MenuController) UpdateMenu(c *gin.Context) {
	var patch syncengine.MenuItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item, err := mc.Engine.UpdateMenuItem(c.Request.Context(), models.ParseEntityID(c.Param("menu_id")), patch)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item updated", item)
}

func (mc *MenuController) DeleteMenu(c *gin.Context) {
	if err := mc.Engine.DeleteMenuItem(c.Request.Context(), models.ParseEntityID(c.Param("menu_id"))); err != nil {
		respondEngineError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item deleted", nil)
}
