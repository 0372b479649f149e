package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// RestaurantController covers the setup data the lifecycle reads: restaurants,
// menu items, stock and recipes.
type RestaurantController struct {
	Restaurants *services.RestaurantService
	Stock       *services.StockService
	Recipes     *services.RecipeService
}

func NewRestaurantController(restaurants *services.RestaurantService, stock *services.StockService, recipes *services.RecipeService) *RestaurantController {
	return &RestaurantController{Restaurants: restaurants, Stock: stock, Recipes: recipes}
}

func (rc *RestaurantController) CreateRestaurant(c *gin.Context) {
	var req struct {
		Name                string `json:"name" binding:"required"`
		Address             string `json:"address"`
		PhoneNumber         string `json:"phone_number"`
		AutoStockAdjustment bool   `json:"auto_stock_adjustment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	restaurant := models.Restaurant{
		Name:                req.Name,
		Address:             req.Address,
		PhoneNumber:         req.PhoneNumber,
		AutoStockAdjustment: req.AutoStockAdjustment,
	}
	if err := rc.Restaurants.CreateRestaurant(c.Request.Context(), &restaurant); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Restaurant created successfully", restaurant)
}

func (rc *RestaurantController) GetRestaurant(c *gin.Context) {
	restaurant, err := rc.Restaurants.GetRestaurant(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Restaurant details", restaurant)
}

func (rc *RestaurantController) CreateMenuItem(c *gin.Context) {
	var req struct {
		RestaurantID string  `json:"restaurant_id" binding:"required"`
		Name         string  `json:"name" binding:"required"`
		Price        float64 `json:"price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item := models.MenuItem{RestaurantID: req.RestaurantID, Name: req.Name, Price: req.Price, IsAvailable: true}
	if err := rc.Restaurants.CreateMenuItem(c.Request.Context(), &item); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Item created successfully", item)
}

func (rc *RestaurantController) CreateStockItem(c *gin.Context) {
	var req struct {
		RestaurantID    string  `json:"restaurant_id" binding:"required"`
		Name            string  `json:"name" binding:"required"`
		Unit            string  `json:"unit"`
		CurrentQuantity float64 `json:"current_quantity"`
		MinQuantity     float64 `json:"min_quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item := models.StockItem{
		RestaurantID:    req.RestaurantID,
		Name:            req.Name,
		Unit:            req.Unit,
		CurrentQuantity: req.CurrentQuantity,
		MinQuantity:     req.MinQuantity,
	}
	if err := rc.Stock.CreateStockItem(c.Request.Context(), &item); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Stock item created successfully", item)
}

func (rc *RestaurantController) ListStockItems(c *gin.Context) {
	items, err := rc.Stock.ListStockItems(c.Request.Context(), c.Param("restaurantId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of stock items", items)
}

func (rc *RestaurantController) CreateRecipe(c *gin.Context) {
	var req struct {
		RestaurantID string                    `json:"restaurant_id" binding:"required"`
		MenuItemID   string                    `json:"menu_item_id" binding:"required"`
		DishName     string                    `json:"dish_name"`
		Servings     int                       `json:"servings"`
		Ingredients  []models.RecipeIngredient `json:"ingredients"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	recipe := models.Recipe{
		RestaurantID: req.RestaurantID,
		MenuItemID:   req.MenuItemID,
		DishName:     req.DishName,
		Servings:     req.Servings,
		Ingredients:  req.Ingredients,
	}
	if err := rc.Recipes.CreateRecipe(c.Request.Context(), &recipe); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Recipe created successfully", recipe)
}

// SetAutoStock -> PUT /restaurants/:id/auto-stock {"enabled": bool}
func (rc *RestaurantController) SetAutoStock(c *gin.Context) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Enabled == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("enabled is required"))
		return
	}

	restaurant, err := rc.Restaurants.SetAutoStockAdjustment(c.Request.Context(), c.Param("id"), *body.Enabled)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Auto stock adjustment updated", restaurant)
}

func (rc *RestaurantController) GetMenuItem(c *gin.Context) {
	item, err := rc.Restaurants.GetMenuItem(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item details", item)
}

type stockAdjustment struct {
	Quantity float64 `json:"quantity" binding:"required"`
	Reason   string  `json:"reason"`
	User     string  `json:"user"`
}

func (rc *RestaurantController) AddStock(c *gin.Context) {
	var body stockAdjustment
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	item, err := rc.Stock.AddStock(c.Request.Context(), c.Param("stockItemId"), body.Quantity, body.Reason, body.User)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Stock added", item)
}

func (rc *RestaurantController) RemoveStock(c *gin.Context) {
	var body stockAdjustment
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	item, err := rc.Stock.RemoveStock(c.Request.Context(), c.Param("stockItemId"), body.Quantity, body.Reason, body.User)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Stock removed", item)
}

func (rc *RestaurantController) ListMovements(c *gin.Context) {
	movements, err := rc.Stock.ListMovements(c.Request.Context(), c.Param("restaurantId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of stock movements", movements)
}
