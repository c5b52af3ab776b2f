package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-sync/models"
	"github.com/yeremiapane/pos-sync/syncengine"
	"github.com/yeremiapane/pos-sync/utils"
)

type MenuCategoryController struct {
	Engine *syncengine.Engine
}

func NewMenuCategoryController(engine *syncengine.Engine) *MenuCategoryController {
	return &MenuCategoryController{Engine: engine}
}

// GetAllCategories
func (mcc *MenuCategoryController) GetAllCategories(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "All menu categories", mcc.Engine.Store().Categories())
}

// CreateCategory
func (mcc *MenuCategoryController) CreateCategory(c *gin.Context) {
	var body struct {
		Name string `json:"name" binding:"required"`
		Icon string `json:"icon"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	category, err := mcc.Engine.AddCategory(c.Request.Context(), body.Name, body.Icon)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Category created", category)
}

// DeleteCategory
func (mcc *MenuCategoryController) DeleteCategory(c *gin.Context) {
	id := models.ParseEntityID(c.Param("cat_id"))
	if err := mcc.Engine.DeleteCategory(c.Request.Context(), id); err != nil {
		respondEngineError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category deleted", nil)
}
