package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// AdminController exposes the consistency sweeps.
type AdminController struct {
	Diagnostics *services.DiagnosticsService
}

func NewAdminController(diagnostics *services.DiagnosticsService) *AdminController {
	return &AdminController{Diagnostics: diagnostics}
}

func (ac *AdminController) DuplicateActiveSessions(c *gin.Context) {
	out, err := ac.Diagnostics.FindDuplicateActiveSessions(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Duplicate active sessions", out)
}

func (ac *AdminController) MismatchedCurrentSessions(c *gin.Context) {
	out, err := ac.Diagnostics.FindMismatchedCurrentSessions(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Mismatched current sessions", out)
}

func (ac *AdminController) OrphanSessions(c *gin.Context) {
	out, err := ac.Diagnostics.FindOrphanSessions(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Orphan sessions", out)
}

func (ac *AdminController) RunAll(c *gin.Context) {
	report, err := ac.Diagnostics.RunAll(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Diagnostics report", report)
}

func (ac *AdminController) CleanupUnlinkedSessions(c *gin.Context) {
	result, err := ac.Diagnostics.CleanupUnlinkedSessions(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Admin %v removed %d unlinked sessions", c.GetString("user_id"), len(result.DeletedSessions))
	utils.RespondJSON(c, http.StatusOK, "Unlinked sessions removed", result)
}
