package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type OrderController struct {
	Orders      *services.OrderService
	RecentHours int
}

func NewOrderController(orders *services.OrderService, recentHours int) *OrderController {
	return &OrderController{Orders: orders, RecentHours: recentHours}
}

// PlaceOrder -> ?sessionId overrides any session in the body
func (oc *OrderController) PlaceOrder(c *gin.Context) {
	var req services.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if id := c.Query("sessionId"); id != "" {
		req.SessionID = &id
	}

	order, err := oc.Orders.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Order %s placed in session %s (table %d)", order.ID, order.SessionID, order.TableNumber)
	utils.RespondJSON(c, http.StatusCreated, "Order created successfully", order)
}

func (oc *OrderController) PlaceOrders(c *gin.Context) {
	var body struct {
		SessionID *string                      `json:"session_id"`
		Orders    []services.PlaceOrderRequest `json:"orders" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	orders, err := oc.Orders.PlaceOrders(c.Request.Context(), body.Orders, body.SessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Orders created successfully", orders)
}

func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.Orders.GetOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order details", order)
}

func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	var body struct {
		PrepStatus string `json:"prep_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	status, err := models.ParseOrderPrepStatus(body.PrepStatus)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.UpdateOrderPrepStatus(c.Request.Context(), c.Param("orderId"), status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

func (oc *OrderController) MarkDelivered(c *gin.Context) {
	order, err := oc.Orders.MarkOrderDelivered(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order delivered", order)
}

func (oc *OrderController) CancelOrder(c *gin.Context) {
	order, err := oc.Orders.CancelOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}

func (oc *OrderController) ListForSession(c *gin.Context) {
	orders, err := oc.Orders.ListOrdersForSession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

func (oc *OrderController) ListForRestaurant(c *gin.Context) {
	orders, err := oc.Orders.ListOrdersForRestaurant(c.Request.Context(), c.Param("restaurantId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// ListRecent -> ?hours=N, defaults to the configured window
func (oc *OrderController) ListRecent(c *gin.Context) {
	hours := oc.RecentHours
	if raw := c.Query("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.RespondError(c, http.StatusBadRequest, errors.New("hours must be a positive integer"))
			return
		}
		hours = n
	}

	orders, err := oc.Orders.ListRecentOrders(c.Request.Context(), c.Param("restaurantId"), hours)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of recent orders", orders)
}

func (oc *OrderController) ListByStatus(c *gin.Context) {
	status, err := models.ParseOrderPrepStatus(c.Param("prepStatus"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	orders, err := oc.Orders.ListOrdersByPrepStatus(c.Request.Context(), status, c.Query("restaurantId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}
