package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type TableController struct {
	Tables *services.TableService
}

func NewTableController(tables *services.TableService) *TableController {
	return &TableController{Tables: tables}
}

// CreateTable -> adds a table and opens its first session
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		RestaurantID string `json:"restaurant_id" binding:"required"`
		Number       int    `json:"number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Tables.CreateTable(c.Request.Context(), req.RestaurantID, req.Number)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("New table created: %d (restaurant=%s)", table.Number, table.RestaurantID)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

func (tc *TableController) GetTable(c *gin.Context) {
	table, err := tc.Tables.GetTable(c.Request.Context(), c.Param("tableId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table details", table)
}

func (tc *TableController) ListTablesForRestaurant(c *gin.Context) {
	tables, err := tc.Tables.ListTablesForRestaurant(c.Request.Context(), c.Param("restaurantId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

func (tc *TableController) UpdateTableStatus(c *gin.Context) {
	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.IsActive == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("is_active is required"))
		return
	}

	table, err := tc.Tables.UpdateTableStatus(c.Request.Context(), c.Param("tableId"), *body.IsActive)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table status updated", table)
}

// UpdateTableSession -> a null session_id clears the pointer
func (tc *TableController) UpdateTableSession(c *gin.Context) {
	var body struct {
		SessionID *string `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Tables.UpdateTableSession(c.Request.Context(), c.Param("tableId"), body.SessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table session updated", table)
}

func (tc *TableController) ResetTable(c *gin.Context) {
	session, err := tc.Tables.ResetTable(c.Request.Context(), c.Param("tableId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Table %s reset, new session %s", session.TableID, session.ID)
	utils.RespondJSON(c, http.StatusOK, "Table reset", session)
}

func (tc *TableController) ResetTablesForRestaurant(c *gin.Context) {
	sessions, err := tc.Tables.ResetTablesForRestaurant(c.Request.Context(), c.Param("restaurantId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Tables reset", sessions)
}

func (tc *TableController) CleanTable(c *gin.Context) {
	out, err := tc.Tables.CleanTable(c.Request.Context(), c.Param("tableId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table cleaned", out)
}

func (tc *TableController) DeleteTable(c *gin.Context) {
	tableID := c.Param("tableId")
	if err := tc.Tables.DeleteTable(c.Request.Context(), tableID); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Table %s deleted", tableID)
	utils.RespondJSON(c, http.StatusOK, "Table deleted successfully", nil)
}
