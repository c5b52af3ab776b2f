package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-sync/billing"
	"github.com/yeremiapane/pos-sync/models"
	"github.com/yeremiapane/pos-sync/state"
	"github.com/yeremiapane/pos-sync/syncengine"
	"github.com/yeremiapane/pos-sync/utils"
)

// CartController exposes the order in progress. It lives only in memory
// and is dropped on a tenant switch.
type CartController struct {
	Engine *syncengine.Engine
}

func NewCartController(engine *syncengine.Engine) *CartController {
	return &CartController{Engine: engine}
}

func (cc *CartController) view() gin.H {
	store := cc.Engine.Store()
	cart := store.Cart()
	draft := store.Draft()

	lines := make([]models.OrderLine, 0, len(cart))
	for _, l := range cart {
		lines = append(lines, models.OrderLine{
			MenuItemID: l.Item.ID.String(),
			Name:       l.Item.Name,
			Price:      l.Item.Price,
			Quantity:   l.Quantity,
			Category:   l.Item.Category,
		})
	}
	return gin.H{
		"lines":  cart,
		"draft":  draft,
		"totals": billing.Compute(lines, draft.Discount, draft.DiscountType, store.Brand()),
	}
}

func (cc *CartController) GetCart(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Current cart", cc.view())
}

func (cc *CartController) UpdateCart(c *gin.Context) {
	var body struct {
		Lines []state.CartLine  `json:"lines"`
		Draft *state.OrderDraft `json:"draft"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	store := cc.Engine.Store()
	if body.Lines != nil {
		store.SetCart(body.Lines)
	}
	if body.Draft != nil {
		store.SetDraft(*body.Draft)
	}
	utils.RespondJSON(c, http.StatusOK, "Cart updated", cc.view())
}

func (cc *CartController) ClearCart(c *gin.Context) {
	cc.Engine.Store().ClearOrderInProgress()
	utils.RespondJSON(c, http.StatusOK, "Cart cleared", cc.view())
}
