package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-sync/billing"
	"github.com/yeremiapane/pos-sync/models"
	"github.com/yeremiapane/pos-sync/syncengine"
	"github.com/yeremiapane/pos-sync/utils"
)

type OrderController struct {
	Engine *syncengine.Engine
}

func NewOrderController(engine *syncengine.Engine) *OrderController {
	return &OrderController{Engine: engine}
}

// GetAllOrders -> order history, newest first
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "List of orders", oc.Engine.Store().Orders())
}

// CreateOrder prices the lines with the current brand's tax settings and
// records the sale. The order in progress is cleared afterwards.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var body struct {
		Items         []models.OrderLine `json:"items" binding:"required"`
		Discount      float64            `json:"discount"`
		DiscountType  string             `json:"discountType"`
		OrderType     string             `json:"orderType"`
		PaymentMethod string             `json:"paymentMethod"`
		TableNumber   string             `json:"tableNumber"`
		CustomerName  string             `json:"customerName"`
		CustomerPhone string             `json:"customerPhone"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order := models.Order{
		Items:         body.Items,
		Discount:      body.Discount,
		DiscountType:  body.DiscountType,
		OrderType:     body.OrderType,
		PaymentMethod: body.PaymentMethod,
		TableNumber:   body.TableNumber,
		CustomerName:  body.CustomerName,
		CustomerPhone: body.CustomerPhone,
	}
	if order.DiscountType == "" {
		order.DiscountType = models.DiscountPercentage
	}
	if order.OrderType == "" {
		order.OrderType = models.OrderTypeDineIn
	}
	billing.Apply(&order, oc.Engine.Store().Brand())

	saved, err := oc.Engine.SaveOrder(c.Request.Context(), order)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	oc.Engine.Store().ClearOrderInProgress()

	utils.RespondJSON(c, http.StatusCreated, "Order saved", saved)
}
